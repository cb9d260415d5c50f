package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type PhonebookRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Phonebook, error)
}

type PhonebookRepository struct {
	DB *sql.DB
}

func insertPhonebook(ctx context.Context, q querier, p *model.Phonebook) error {
	p.CreatedAt = time.Now()
	query := `
        INSERT INTO phonebooks (account_id, name, description, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	err := q.QueryRowContext(ctx, query, p.AccountID, p.Name, p.Description, p.CreatedAt).Scan(&p.ID)
	if isUniqueViolation(err) {
		return appErrors.NewConflict("phonebook", p.Name)
	}
	return err
}

func (r *PhonebookRepository) GetByID(ctx context.Context, id int) (*model.Phonebook, error) {
	query := `SELECT id, account_id, name, description, created_at, updated_at FROM phonebooks WHERE id=$1`
	var p model.Phonebook
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewPhonebookNotFound(id)
		}
		return nil, err
	}
	return &p, nil
}

var _ PhonebookRepositoryInterface = (*PhonebookRepository)(nil)
