// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist
type ErrNotFound struct {
	Resource string
	ID       any
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
}

func NewCampaignNotFound(id int) error {
	return &ErrNotFound{Resource: "campaign", ID: id}
}

func NewPhonebookNotFound(id int) error {
	return &ErrNotFound{Resource: "phonebook", ID: id}
}

func NewSubscriberNotFound(id any) error {
	return &ErrNotFound{Resource: "subscriber", ID: id}
}

// ErrConflict is a uniqueness violation
type ErrConflict struct {
	Resource string
	Detail   string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Detail)
}

func NewConflict(resource, detail string) error {
	return &ErrConflict{Resource: resource, Detail: detail}
}

// ErrInvalidTransition is returned when the subscriber state machine refuses a move
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ErrCapacityExceeded is raised by the API layer when an account quota is full
type ErrCapacityExceeded struct {
	Limit string
	Max   int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("too many %s, max allowed %d", e.Limit, e.Max)
}

var ErrInvalidStatus = errors.New("unrecognized status value")

func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ErrConflict
	return errors.As(err, &c)
}

// ErrValidation is a request the core refuses to act on
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ErrValidation{Field: field, Reason: reason}
}

// ErrStaleReport is an attempt report for a dial request the subscriber is no longer waiting on
type ErrStaleReport struct {
	SubscriberID int
	RequestID    string
}

func (e *ErrStaleReport) Error() string {
	return fmt.Sprintf("report for request %q does not match the current attempt of subscriber %d", e.RequestID, e.SubscriberID)
}

func IsStaleReport(err error) bool {
	var s *ErrStaleReport
	return errors.As(err, &s)
}
