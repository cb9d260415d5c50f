package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type SubscriberRepositoryInterface interface {
	Create(ctx context.Context, s *model.CampaignSubscriber) error
	ClaimPending(ctx context.Context, campaignID, limit int, now time.Time) ([]model.DispatchCandidate, error)
	ReleaseToPending(ctx context.Context, id int) error
	MarkNotAuthorized(ctx context.Context, id int) error
	AssignRequest(ctx context.Context, id int, requestID string) error
	UpdateLocked(ctx context.Context, id int, fn func(sub *model.CampaignSubscriber, maxRetry int) error) (*model.CampaignSubscriber, error)
	FindByCampaignAndPhone(ctx context.Context, campaignID int, phone string) (*model.CampaignSubscriber, error)
	ListByCampaign(ctx context.Context, campaignID int, phone string) ([]*model.CampaignSubscriber, error)
	CountByStatus(ctx context.Context, campaignID int) (map[model.SubscriberStatus]int, error)
}

type SubscriberRepository struct {
	DB *sql.DB
}

const subscriberColumns = `s.id, s.contact_id, s.campaign_id, s.callrequest_id, s.duplicate_contact,
	s.last_attempt, s.count_attempt, s.status, s.created_at, s.updated_at, s.request_id`

func subscriberDest(s *model.CampaignSubscriber, callRequestID *sql.NullInt64, requestID *sql.NullString) []any {
	return []any{&s.ID, &s.ContactID, &s.CampaignID, callRequestID, &s.DuplicateContact,
		&s.LastAttempt, &s.CountAttempt, &s.Status, &s.CreatedAt, &s.UpdatedAt, requestID}
}

func scanSubscriber(row rowScanner, extra ...any) (*model.CampaignSubscriber, error) {
	var s model.CampaignSubscriber
	var callRequestID sql.NullInt64
	var requestID sql.NullString
	if err := row.Scan(append(subscriberDest(&s, &callRequestID, &requestID), extra...)...); err != nil {
		return nil, err
	}
	if callRequestID.Valid {
		id := int(callRequestID.Int64)
		s.CallRequestID = &id
	}
	s.RequestID = requestID.String
	return &s, nil
}

func (r *SubscriberRepository) Create(ctx context.Context, s *model.CampaignSubscriber) error {
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Status == "" {
		s.Status = model.SubscriberPending
	}
	query := `
        INSERT INTO campaign_subscribers (contact_id, campaign_id, duplicate_contact, count_attempt, status,
            created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query, s.ContactID, s.CampaignID, s.DuplicateContact,
		s.CountAttempt, s.Status, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if isUniqueViolation(err) {
		return appErrors.NewConflict("subscriber",
			fmt.Sprintf("contact %d in campaign %d", s.ContactID, s.CampaignID))
	}
	return err
}

// claimPendingQuery selects due PENDING rows, skipping rows another claimer holds,
// and moves them to IN_PROCESS in the same statement.
const claimPendingQuery = `
    WITH due AS (
        SELECT s.id
        FROM campaign_subscribers s
        JOIN campaigns c ON c.id = s.campaign_id
        WHERE s.campaign_id = $1
          AND s.status = $3
          AND (s.last_attempt IS NULL
               OR s.last_attempt + make_interval(secs => c.interval_retry) <= $2)
        ORDER BY s.id
        LIMIT $4
        FOR UPDATE OF s SKIP LOCKED
    )
    UPDATE campaign_subscribers s
    SET status = $5, updated_at = $2
    FROM due, contacts ct
    WHERE s.id = due.id AND ct.id = s.contact_id
    RETURNING ` + subscriberColumns + `, ct.additional_vars
`

// ClaimPending hands out at most limit due subscribers. Concurrent callers never receive the same row.
func (r *SubscriberRepository) ClaimPending(ctx context.Context, campaignID, limit int, now time.Time) ([]model.DispatchCandidate, error) {
	if limit <= 0 {
		return []model.DispatchCandidate{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, claimPendingQuery,
		campaignID, now, model.SubscriberPending, limit, model.SubscriberInProcess)
	if err != nil {
		return nil, fmt.Errorf("claim pending subscribers: %w", err)
	}
	defer rows.Close()

	claimed := []model.DispatchCandidate{}
	for rows.Next() {
		var vars []byte
		s, err := scanSubscriber(rows, &vars)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeVars(vars)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, model.DispatchCandidate{Subscriber: *s, AdditionalVars: decoded})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING carries no order
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].Subscriber.ID < claimed[j].Subscriber.ID })
	return claimed, nil
}

func (r *SubscriberRepository) moveFromInProcess(ctx context.Context, id int, to model.SubscriberStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE campaign_subscribers SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, time.Now(), id, model.SubscriberInProcess)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewSubscriberNotFound(id))
}

// ReleaseToPending undoes a claim whose dial request never reached the dialer
func (r *SubscriberRepository) ReleaseToPending(ctx context.Context, id int) error {
	return r.moveFromInProcess(ctx, id, model.SubscriberPending)
}

func (r *SubscriberRepository) MarkNotAuthorized(ctx context.Context, id int) error {
	return r.moveFromInProcess(ctx, id, model.SubscriberNotAuthorized)
}

// AssignRequest records the dial request a claimed subscriber is waiting on.
// Reports carrying any other request id are refused.
func (r *SubscriberRepository) AssignRequest(ctx context.Context, id int, requestID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE campaign_subscribers SET request_id=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		requestID, time.Now(), id, model.SubscriberInProcess)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewSubscriberNotFound(id))
}

// UpdateLocked loads the subscriber under a row lock together with its campaign's max_retry,
// lets fn mutate it and writes the result back in the same transaction.
func (r *SubscriberRepository) UpdateLocked(ctx context.Context, id int, fn func(sub *model.CampaignSubscriber, maxRetry int) error) (*model.CampaignSubscriber, error) {
	var updated *model.CampaignSubscriber
	err := withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		query := `
            SELECT ` + subscriberColumns + `, c.max_retry
            FROM campaign_subscribers s
            JOIN campaigns c ON c.id = s.campaign_id
            WHERE s.id = $1
            FOR UPDATE OF s
        `
		var maxRetry int
		sub, err := scanSubscriber(tx.QueryRowContext(ctx, query, id), &maxRetry)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewSubscriberNotFound(id)
		}
		if err != nil {
			return err
		}

		if err := fn(sub, maxRetry); err != nil {
			return err
		}

		sub.UpdatedAt = time.Now()
		_, err = tx.ExecContext(ctx, `
            UPDATE campaign_subscribers
            SET status=$1, count_attempt=$2, last_attempt=$3, callrequest_id=$4, updated_at=$5
            WHERE id=$6`,
			sub.Status, sub.CountAttempt, sub.LastAttempt, sub.CallRequestID, sub.UpdatedAt, sub.ID)
		if err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SubscriberRepository) FindByCampaignAndPhone(ctx context.Context, campaignID int, phone string) (*model.CampaignSubscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM campaign_subscribers s WHERE s.campaign_id=$1 AND s.duplicate_contact=$2`
	s, err := scanSubscriber(r.DB.QueryRowContext(ctx, query, campaignID, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewSubscriberNotFound(fmt.Sprintf("%s in campaign %d", phone, campaignID))
	}
	return s, err
}

// ListByCampaign returns the campaign's subscribers, narrowed to one number when phone is set
func (r *SubscriberRepository) ListByCampaign(ctx context.Context, campaignID int, phone string) ([]*model.CampaignSubscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM campaign_subscribers s WHERE s.campaign_id=$1`
	args := []any{campaignID}
	if phone != "" {
		query += ` AND s.duplicate_contact=$2`
		args = append(args, phone)
	}
	query += ` ORDER BY s.id`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*model.CampaignSubscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubscriberRepository) CountByStatus(ctx context.Context, campaignID int) (map[model.SubscriberStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_subscribers WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.SubscriberStatus]int, len(model.SubscriberStatuses))
	for _, st := range model.SubscriberStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st model.SubscriberStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
