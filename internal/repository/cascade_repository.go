package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

// CascadeTx is the set of statements a cascade deletion runs inside one transaction.
type CascadeTx interface {
	LockCampaign(ctx context.Context, campaignID int) error
	PhonebookIDs(ctx context.Context, campaignID int) ([]int, error)
	LockPhonebooks(ctx context.Context, phonebookIDs []int) error
	OtherCampaignsReferencing(ctx context.Context, campaignID int, phonebookIDs []int) (int, error)
	DeleteContactsInPhonebooks(ctx context.Context, phonebookIDs []int) (int, error)
	DeletePhonebooks(ctx context.Context, phonebookIDs []int) (int, error)
	DeleteCampaign(ctx context.Context, campaignID int) error
}

type CascadeRepositoryInterface interface {
	RunInTx(ctx context.Context, fn func(tx CascadeTx) error) error
}

type CascadeRepository struct {
	DB *sql.DB
}

// RunInTx runs fn at READ COMMITTED. The ownership check is made safe by the explicit row
// locks CascadeTx takes: a phonebook locked FOR UPDATE cannot gain a new campaign reference
// until the transaction ends, since attachment takes the same row FOR SHARE.
func (r *CascadeRepository) RunInTx(ctx context.Context, fn func(tx CascadeTx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return withTx(ctx, r.DB, opts, func(tx *sql.Tx) error {
		return fn(&cascadeTx{tx: tx})
	})
}

type cascadeTx struct {
	tx *sql.Tx
}

func (c *cascadeTx) LockCampaign(ctx context.Context, campaignID int) error {
	var id int
	err := c.tx.QueryRowContext(ctx, `SELECT id FROM campaigns WHERE id=$1 FOR UPDATE`, campaignID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return err
}

func (c *cascadeTx) PhonebookIDs(ctx context.Context, campaignID int) ([]int, error) {
	return phonebookIDs(ctx, c.tx, campaignID)
}

func (c *cascadeTx) LockPhonebooks(ctx context.Context, ids []int) error {
	rows, err := c.tx.QueryContext(ctx,
		`SELECT id FROM phonebooks WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c *cascadeTx) OtherCampaignsReferencing(ctx context.Context, campaignID int, ids []int) (int, error) {
	var count int
	err := c.tx.QueryRowContext(ctx, `
        SELECT COUNT(DISTINCT campaign_id) FROM campaign_phonebooks
        WHERE phonebook_id = ANY($1) AND campaign_id <> $2`, pq.Array(ids), campaignID).Scan(&count)
	return count, err
}

func (c *cascadeTx) DeleteContactsInPhonebooks(ctx context.Context, ids []int) (int, error) {
	return c.execCount(ctx, `DELETE FROM contacts WHERE phonebook_id = ANY($1)`, pq.Array(ids))
}

func (c *cascadeTx) DeletePhonebooks(ctx context.Context, ids []int) (int, error) {
	return c.execCount(ctx, `DELETE FROM phonebooks WHERE id = ANY($1)`, pq.Array(ids))
}

func (c *cascadeTx) DeleteCampaign(ctx context.Context, campaignID int) error {
	res, err := c.tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, campaignID)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewCampaignNotFound(campaignID))
}

func (c *cascadeTx) execCount(ctx context.Context, query string, args ...any) (int, error) {
	res, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

var _ CascadeRepositoryInterface = (*CascadeRepository)(nil)
