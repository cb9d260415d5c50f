// internal/model/campaign.go
package model

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

type CampaignStatus string

const (
	CampaignStart CampaignStatus = "START"
	CampaignPause CampaignStatus = "PAUSE"
	CampaignAbort CampaignStatus = "ABORT"
	CampaignEnd   CampaignStatus = "END"
)

func ParseCampaignStatus(s string) (CampaignStatus, error) {
	switch st := CampaignStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case CampaignStart, CampaignPause, CampaignAbort, CampaignEnd:
		return st, nil
	}
	return "", fmt.Errorf("campaign status %q: %w", s, appErrors.ErrInvalidStatus)
}

// Defaults applied to a campaign created without explicit settings
const (
	DefaultFrequency       = 10
	DefaultCallMaxDuration = 1800
	DefaultMaxRetry        = 3
	DefaultIntervalRetry   = 3
	DefaultCallTimeout     = 45
	DefaultCampaignLength  = 7 * 24 * time.Hour
)

type Campaign struct {
	ID              int            `db:"id" json:"id"`
	AccountID       int            `db:"account_id" json:"account_id"`
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description,omitempty"`
	Status          CampaignStatus `db:"status" json:"status"`
	StartingDate    time.Time      `db:"starting_date" json:"startingdate"`
	ExpirationDate  time.Time      `db:"expiration_date" json:"expirationdate"`
	DailyStartTime  TimeOfDay      `db:"daily_start_time" json:"daily_start_time"`
	DailyStopTime   TimeOfDay      `db:"daily_stop_time" json:"daily_stop_time"`
	Weekdays        Weekdays       `json:"weekdays"`
	Frequency       int            `db:"frequency" json:"frequency"`
	CallMaxDuration int            `db:"call_max_duration" json:"callmaxduration"`
	MaxRetry        int            `db:"max_retry" json:"maxretry"`
	IntervalRetry   int            `db:"interval_retry" json:"intervalretry"`
	CallTimeout     int            `db:"call_timeout" json:"calltimeout"`
	GatewayID       int            `db:"aleg_gateway" json:"aleg_gateway,omitempty"`
	AnswerURL       string         `db:"answer_url" json:"answer_url,omitempty"`
	ExtraData       string         `db:"extra_data" json:"extra_data,omitempty"`
	PhonebookIDs    []int          `json:"phonebook_ids,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// NewCampaign returns a START campaign running for a week from now,
// all day, every day, with the stock pacing settings.
func NewCampaign(accountID int, name string, now time.Time) *Campaign {
	return &Campaign{
		AccountID:       accountID,
		Name:            name,
		Status:          CampaignStart,
		StartingDate:    now,
		ExpirationDate:  now.Add(DefaultCampaignLength),
		DailyStartTime:  StartOfDay,
		DailyStopTime:   EndOfDay,
		Weekdays:        AllWeekdays(),
		Frequency:       DefaultFrequency,
		CallMaxDuration: DefaultCallMaxDuration,
		MaxRetry:        DefaultMaxRetry,
		IntervalRetry:   DefaultIntervalRetry,
		CallTimeout:     DefaultCallTimeout,
	}
}

// RetryInterval is the minimum gap between two attempts on the same subscriber
func (c *Campaign) RetryInterval() time.Duration {
	return time.Duration(c.IntervalRetry) * time.Second
}
