// internal/model/phonebook.go
package model

import "time"

type Phonebook struct {
	ID          int        `db:"id" json:"id"`
	AccountID   int        `db:"account_id" json:"account_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
