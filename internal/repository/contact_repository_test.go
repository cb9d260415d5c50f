package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

var contactCols = []string{"id", "phonebook_id", "contact", "first_name", "last_name", "email", "city",
	"description", "status", "additional_vars", "created_at", "updated_at"}

func TestActiveContactsWithoutSubscriber_KeyedOnNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := &repository.ContactRepository{DB: db}
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`DISTINCT ON \(ct\.contact\)(.|\n)*s\.duplicate_contact = ct\.contact`).
		WithArgs(7, model.ContactActive).
		WillReturnRows(sqlmock.NewRows(contactCols).
			AddRow(3, 1, "5550001", "ada", "", "", "", "", "ACTIVE", []byte(`{"tier":"gold"}`), now, nil))

	contacts, err := repo.ActiveContactsWithoutSubscriber(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "5550001", contacts[0].Phone)
	assert.Equal(t, "gold", contacts[0].AdditionalVars["tier"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountForCampaign(t *testing.T) {
	db, mock := newMock(t)
	repo := &repository.ContactRepository{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta("campaign_phonebooks")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := repo.CountForCampaign(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
