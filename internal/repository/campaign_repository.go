package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign, defaultPhonebook *model.Phonebook) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	Update(ctx context.Context, c *model.Campaign) error
	UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error
	ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error)
	ListActiveForContact(ctx context.Context, contactID int) ([]*model.Campaign, error)
	AttachPhonebook(ctx context.Context, campaignID, phonebookID int) error
	CreatePhonebook(ctx context.Context, campaignID int, pb *model.Phonebook) error
	CountByAccount(ctx context.Context, accountID int) (int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `c.id, c.account_id, c.name, c.description, c.status, c.starting_date, c.expiration_date,
	c.daily_start_time, c.daily_stop_time, c.monday, c.tuesday, c.wednesday, c.thursday, c.friday,
	c.saturday, c.sunday, c.frequency, c.call_max_duration, c.max_retry, c.interval_retry,
	c.call_timeout, c.aleg_gateway, c.answer_url, c.extra_data, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	w := &c.Weekdays
	err := row.Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Description, &c.Status, &c.StartingDate, &c.ExpirationDate,
		&c.DailyStartTime, &c.DailyStopTime,
		&w[time.Monday], &w[time.Tuesday], &w[time.Wednesday], &w[time.Thursday], &w[time.Friday],
		&w[time.Saturday], &w[time.Sunday],
		&c.Frequency, &c.CallMaxDuration, &c.MaxRetry, &c.IntervalRetry,
		&c.CallTimeout, &c.GatewayID, &c.AnswerURL, &c.ExtraData, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaigns(rows *sql.Rows) ([]*model.Campaign, error) {
	defer rows.Close()
	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ====================== Campaign CRUD ======================

// Create inserts the campaign and, when defaultPhonebook is set, that phonebook attached to it.
// Either everything is stored or nothing is.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign, defaultPhonebook *model.Phonebook) error {
	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		if err := insertCampaign(ctx, tx, c); err != nil {
			return err
		}
		if defaultPhonebook == nil {
			c.PhonebookIDs = []int{}
			return nil
		}
		if err := insertPhonebook(ctx, tx, defaultPhonebook); err != nil {
			return err
		}
		if err := link(ctx, tx, c.ID, defaultPhonebook.ID); err != nil {
			return err
		}
		c.PhonebookIDs = []int{defaultPhonebook.ID}
		return nil
	})
}

func insertCampaign(ctx context.Context, q querier, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	w := c.Weekdays
	query := `
        INSERT INTO campaigns (account_id, name, description, status, starting_date, expiration_date,
            daily_start_time, daily_stop_time, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
            frequency, call_max_duration, max_retry, interval_retry, call_timeout, aleg_gateway,
            answer_url, extra_data, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
            $16, $17, $18, $19, $20, $21, $22, $23, $24)
        RETURNING id
    `
	err := q.QueryRowContext(ctx, query,
		c.AccountID, c.Name, c.Description, c.Status, c.StartingDate, c.ExpirationDate,
		c.DailyStartTime, c.DailyStopTime,
		w[time.Monday], w[time.Tuesday], w[time.Wednesday], w[time.Thursday], w[time.Friday],
		w[time.Saturday], w[time.Sunday],
		c.Frequency, c.CallMaxDuration, c.MaxRetry, c.IntervalRetry, c.CallTimeout, c.GatewayID,
		c.AnswerURL, c.ExtraData, c.CreatedAt,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return appErrors.NewConflict("campaign", c.Name)
	}
	return err
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	w := c.Weekdays
	query := `
        UPDATE campaigns
        SET description=$1, status=$2, starting_date=$3, expiration_date=$4,
            daily_start_time=$5, daily_stop_time=$6, monday=$7, tuesday=$8, wednesday=$9,
            thursday=$10, friday=$11, saturday=$12, sunday=$13, frequency=$14,
            call_max_duration=$15, max_retry=$16, interval_retry=$17, call_timeout=$18,
            aleg_gateway=$19, answer_url=$20, extra_data=$21, updated_at=NOW()
        WHERE id=$22
    `
	res, err := r.DB.ExecContext(ctx, query,
		c.Description, c.Status, c.StartingDate, c.ExpirationDate,
		c.DailyStartTime, c.DailyStopTime,
		w[time.Monday], w[time.Tuesday], w[time.Wednesday], w[time.Thursday], w[time.Friday],
		w[time.Saturday], w[time.Sunday],
		c.Frequency, c.CallMaxDuration, c.MaxRetry, c.IntervalRetry, c.CallTimeout,
		c.GatewayID, c.AnswerURL, c.ExtraData, c.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewCampaignNotFound(c.ID))
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now(), campaignID)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewCampaignNotFound(campaignID))
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE c.id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}

	ids, err := phonebookIDs(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	c.PhonebookIDs = ids
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM campaigns c WHERE 1=1`
	args := []any{}
	argPos := 1

	if status != "" {
		filter := fmt.Sprintf(" AND c.status=$%d", argPos)
		query += filter
		countQuery += filter
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY c.id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	campaigns, err := scanCampaigns(rows)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *CampaignRepository) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE c.status=$1 ORDER BY c.id`
	rows, err := r.DB.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

// ListActiveForContact returns the START campaigns whose phonebooks hold the contact
func (r *CampaignRepository) ListActiveForContact(ctx context.Context, contactID int) ([]*model.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns c
        JOIN campaign_phonebooks cp ON cp.campaign_id = c.id
        JOIN contacts ct ON ct.phonebook_id = cp.phonebook_id
        WHERE ct.id = $1 AND c.status = $2
        ORDER BY c.id
    `
	rows, err := r.DB.QueryContext(ctx, query, contactID, model.CampaignStart)
	if err != nil {
		return nil, err
	}
	return scanCampaigns(rows)
}

// AttachPhonebook shares the phonebook row lock with other attachments and
// conflicts with a cascade delete holding it exclusively.
func (r *CampaignRepository) AttachPhonebook(ctx context.Context, campaignID, phonebookID int) error {
	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		var id int
		err := tx.QueryRowContext(ctx, `SELECT id FROM phonebooks WHERE id=$1 FOR SHARE`, phonebookID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewPhonebookNotFound(phonebookID)
		}
		if err != nil {
			return err
		}
		if err := lockCampaignShared(ctx, tx, campaignID); err != nil {
			return err
		}
		return link(ctx, tx, campaignID, phonebookID)
	})
}

// CreatePhonebook inserts pb and attaches it to the campaign in one transaction.
func (r *CampaignRepository) CreatePhonebook(ctx context.Context, campaignID int, pb *model.Phonebook) error {
	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		if err := lockCampaignShared(ctx, tx, campaignID); err != nil {
			return err
		}
		if err := insertPhonebook(ctx, tx, pb); err != nil {
			return err
		}
		return link(ctx, tx, campaignID, pb.ID)
	})
}

func lockCampaignShared(ctx context.Context, tx *sql.Tx, campaignID int) error {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM campaigns WHERE id=$1 FOR SHARE`, campaignID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return err
}

func link(ctx context.Context, q querier, campaignID, phonebookID int) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO campaign_phonebooks (campaign_id, phonebook_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING`, campaignID, phonebookID)
	return err
}

func (r *CampaignRepository) CountByAccount(ctx context.Context, accountID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE account_id=$1`, accountID).Scan(&count)
	return count, err
}

func phonebookIDs(ctx context.Context, q querier, campaignID int) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT phonebook_id FROM campaign_phonebooks WHERE campaign_id=$1 ORDER BY phonebook_id`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
