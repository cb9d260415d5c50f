// internal/model/contact.go
package model

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

type ContactStatus string

const (
	ContactActive   ContactStatus = "ACTIVE"
	ContactInactive ContactStatus = "INACTIVE"
)

func ParseContactStatus(s string) (ContactStatus, error) {
	switch st := ContactStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ContactActive, ContactInactive:
		return st, nil
	}
	return "", fmt.Errorf("contact status %q: %w", s, appErrors.ErrInvalidStatus)
}

type Contact struct {
	ID             int               `db:"id" json:"id"`
	PhonebookID    int               `db:"phonebook_id" json:"phonebook_id"`
	Phone          string            `db:"contact" json:"contact"`
	FirstName      string            `db:"first_name" json:"first_name,omitempty"`
	LastName       string            `db:"last_name" json:"last_name,omitempty"`
	Email          string            `db:"email" json:"email,omitempty"`
	City           string            `db:"city" json:"city,omitempty"`
	Description    string            `db:"description" json:"description,omitempty"`
	Status         ContactStatus     `db:"status" json:"status"`
	AdditionalVars map[string]string `db:"additional_vars" json:"additional_vars,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time        `db:"updated_at" json:"updated_at,omitempty"`
}

func (c *Contact) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
