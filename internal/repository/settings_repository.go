package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type SettingsRepositoryInterface interface {
	GetByAccount(ctx context.Context, accountID int) (*model.AccountSettings, error)
}

type SettingsRepository struct {
	DB *sql.DB
}

// GetByAccount returns nil, nil when the account has no dialer settings
func (r *SettingsRepository) GetByAccount(ctx context.Context, accountID int) (*model.AccountSettings, error) {
	query := `
        SELECT account_id, max_frequency, call_max_duration, max_campaigns, max_contacts, whitelist, blacklist
        FROM account_settings WHERE account_id=$1
    `
	var s model.AccountSettings
	var maxFreq, maxDur, maxCamp, maxCont sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, accountID).Scan(
		&s.AccountID, &maxFreq, &maxDur, &maxCamp, &maxCont, &s.Whitelist, &s.Blacklist)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.MaxFrequency = intOrNil(maxFreq)
	s.CallMaxDuration = intOrNil(maxDur)
	s.MaxCampaigns = intOrNil(maxCamp)
	s.MaxContacts = intOrNil(maxCont)
	return &s, nil
}

func intOrNil(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)
