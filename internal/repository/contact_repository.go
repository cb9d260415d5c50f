package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *model.Contact) error
	ActiveContactsWithoutSubscriber(ctx context.Context, campaignID int) ([]model.Contact, error)
	CountForCampaign(ctx context.Context, campaignID int) (int, error)
	CountByAccount(ctx context.Context, accountID int) (int, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `ct.id, ct.phonebook_id, ct.contact, ct.first_name, ct.last_name, ct.email, ct.city,
	ct.description, ct.status, ct.additional_vars, ct.created_at, ct.updated_at`

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	var vars []byte
	err := row.Scan(&c.ID, &c.PhonebookID, &c.Phone, &c.FirstName, &c.LastName, &c.Email, &c.City,
		&c.Description, &c.Status, &vars, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.AdditionalVars, err = decodeVars(vars); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeVars(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	vars := map[string]string{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("decode additional_vars: %w", err)
	}
	return vars, nil
}

func encodeVars(vars map[string]string) (string, error) {
	if vars == nil {
		return "{}", nil
	}
	b, err := json.Marshal(vars)
	return string(b), err
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.ContactActive
	}
	vars, err := encodeVars(c.AdditionalVars)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO contacts (phonebook_id, contact, first_name, last_name, email, city, description,
            status, additional_vars, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
        RETURNING id
    `
	err = r.DB.QueryRowContext(ctx, query, c.PhonebookID, c.Phone, c.FirstName, c.LastName, c.Email,
		c.City, c.Description, c.Status, vars, c.CreatedAt).Scan(&c.ID)
	if isUniqueViolation(err) {
		return appErrors.NewConflict("contact", fmt.Sprintf("%s in phonebook %d", c.Phone, c.PhonebookID))
	}
	return err
}

// ActiveContactsWithoutSubscriber is the set difference between the active contacts of
// the campaign's phonebooks and the numbers already subscribed to it. A number held by
// several phonebooks of the campaign comes back once, as its lowest contact id.
func (r *ContactRepository) ActiveContactsWithoutSubscriber(ctx context.Context, campaignID int) ([]model.Contact, error) {
	query := `
        SELECT ` + contactColumns + `
        FROM (
            SELECT DISTINCT ON (ct.contact) ct.*
            FROM contacts ct
            JOIN campaign_phonebooks cp ON cp.phonebook_id = ct.phonebook_id
            WHERE cp.campaign_id = $1
              AND ct.status = $2
              AND NOT EXISTS (
                  SELECT 1 FROM campaign_subscribers s
                  WHERE s.campaign_id = cp.campaign_id
                    AND (s.contact_id = ct.id OR s.duplicate_contact = ct.contact)
              )
            ORDER BY ct.contact, ct.id
        ) ct
        ORDER BY ct.id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, model.ContactActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) CountForCampaign(ctx context.Context, campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM contacts ct
        JOIN campaign_phonebooks cp ON cp.phonebook_id = ct.phonebook_id
        WHERE cp.campaign_id = $1`, campaignID).Scan(&count)
	return count, err
}

func (r *ContactRepository) CountByAccount(ctx context.Context, accountID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM contacts ct
        JOIN phonebooks p ON p.id = ct.phonebook_id
        WHERE p.account_id = $1`, accountID).Scan(&count)
	return count, err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
