// internal/model/subscriber.go
package model

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

type SubscriberStatus string

const (
	SubscriberPending       SubscriberStatus = "PENDING"
	SubscriberPause         SubscriberStatus = "PAUSE"
	SubscriberAbort         SubscriberStatus = "ABORT"
	SubscriberFail          SubscriberStatus = "FAIL"
	SubscriberComplete      SubscriberStatus = "COMPLETE"
	SubscriberInProcess     SubscriberStatus = "IN_PROCESS"
	SubscriberNotAuthorized SubscriberStatus = "NOT_AUTHORIZED"
)

// SubscriberStatuses lists every status in a stable order, used for stats.
var SubscriberStatuses = []SubscriberStatus{
	SubscriberPending,
	SubscriberPause,
	SubscriberAbort,
	SubscriberFail,
	SubscriberComplete,
	SubscriberInProcess,
	SubscriberNotAuthorized,
}

func ParseSubscriberStatus(s string) (SubscriberStatus, error) {
	norm := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_")
	for _, st := range SubscriberStatuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("subscriber status %q: %w", s, appErrors.ErrInvalidStatus)
}

func (s SubscriberStatus) IsTerminal() bool {
	switch s {
	case SubscriberFail, SubscriberComplete, SubscriberAbort, SubscriberNotAuthorized:
		return true
	}
	return false
}

// CampaignSubscriber is the per (contact, campaign) dialing record.
type CampaignSubscriber struct {
	ID               int              `db:"id" json:"id"`
	ContactID        int              `db:"contact_id" json:"contact_id"`
	CampaignID       int              `db:"campaign_id" json:"campaign_id"`
	CallRequestID    *int             `db:"callrequest_id" json:"callrequest_id,omitempty"`
	DuplicateContact string           `db:"duplicate_contact" json:"contact"`
	LastAttempt      *time.Time       `db:"last_attempt" json:"last_attempt,omitempty"`
	CountAttempt     int              `db:"count_attempt" json:"count_attempt"`
	Status           SubscriberStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
	RequestID        string           `db:"request_id" json:"request_id,omitempty"`
}

// DueAt is the earliest instant the subscriber may be dialed again.
func (s *CampaignSubscriber) DueAt(retryInterval time.Duration) time.Time {
	if s.LastAttempt == nil {
		return time.Time{}
	}
	return s.LastAttempt.Add(retryInterval)
}

// IsDue reports whether a PENDING subscriber may be selected at now.
func (s *CampaignSubscriber) IsDue(now time.Time, retryInterval time.Duration) bool {
	return s.Status == SubscriberPending && !now.Before(s.DueAt(retryInterval))
}

// DispatchCandidate is a claimed subscriber along with what the dialer needs from its contact.
type DispatchCandidate struct {
	Subscriber     CampaignSubscriber
	AdditionalVars map[string]string
}
