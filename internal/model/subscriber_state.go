// internal/model/subscriber_state.go
package model

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

// AttemptOutcome is the dialer's classification of a finished call attempt.
type AttemptOutcome string

const (
	OutcomeComplete     AttemptOutcome = "COMPLETE"
	OutcomeFail         AttemptOutcome = "FAIL"
	OutcomeTerminalFail AttemptOutcome = "TERMINAL_FAIL"
)

func ParseAttemptOutcome(s string) (AttemptOutcome, error) {
	switch o := AttemptOutcome(strings.ToUpper(strings.TrimSpace(s))); o {
	case OutcomeComplete, OutcomeFail, OutcomeTerminalFail:
		return o, nil
	}
	return "", fmt.Errorf("attempt outcome %q: %w", s, appErrors.ErrInvalidStatus)
}

var transitions = map[SubscriberStatus][]SubscriberStatus{
	SubscriberPending: {SubscriberInProcess, SubscriberPause, SubscriberAbort},
	SubscriberInProcess: {
		SubscriberPending, SubscriberComplete, SubscriberFail,
		SubscriberPause, SubscriberAbort, SubscriberNotAuthorized,
	},
	SubscriberPause: {SubscriberPending, SubscriberAbort},
}

func CanTransition(from, to SubscriberStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func invalidTransition(from, to SubscriberStatus) error {
	return &appErrors.ErrInvalidTransition{From: string(from), To: string(to)}
}

// ApplyAttempt records one finished attempt on an IN_PROCESS subscriber.
// A retryable failure re-arms the subscriber to PENDING until maxRetry attempts are used.
func ApplyAttempt(sub *CampaignSubscriber, maxRetry int, outcome AttemptOutcome, callRequestID *int, at time.Time) error {
	if sub.Status != SubscriberInProcess {
		return invalidTransition(sub.Status, SubscriberStatus(outcome))
	}

	sub.CountAttempt++
	sub.LastAttempt = &at
	if callRequestID != nil {
		sub.CallRequestID = callRequestID
	}

	switch outcome {
	case OutcomeComplete:
		sub.Status = SubscriberComplete
	case OutcomeTerminalFail:
		sub.Status = SubscriberFail
	case OutcomeFail:
		if sub.CountAttempt < maxRetry {
			sub.Status = SubscriberPending
		} else {
			sub.Status = SubscriberFail
		}
	default:
		return fmt.Errorf("attempt outcome %q: %w", outcome, appErrors.ErrInvalidStatus)
	}
	return nil
}

// ApplyAdminStatus is an operator status change. IN_PROCESS subscribers belong to the
// dialer until it reports back, and IN_PROCESS / NOT_AUTHORIZED are only set by the engine.
func ApplyAdminStatus(sub *CampaignSubscriber, to SubscriberStatus) error {
	if sub.Status == to {
		return nil
	}
	if sub.Status.IsTerminal() {
		return invalidTransition(sub.Status, to)
	}
	if sub.Status == SubscriberInProcess || to == SubscriberInProcess || to == SubscriberNotAuthorized {
		return invalidTransition(sub.Status, to)
	}
	if !CanTransition(sub.Status, to) {
		return invalidTransition(sub.Status, to)
	}
	sub.Status = to
	return nil
}
