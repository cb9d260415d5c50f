package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

func TestCascadeTx_LocksBeforeCountingAndCommits(t *testing.T) {
	db, mock := newMock(t)
	repo := &repository.CascadeRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM campaigns WHERE id=$1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT phonebook_id FROM campaign_phonebooks")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"phonebook_id"}).AddRow(8).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("FROM phonebooks WHERE id = ANY($1) ORDER BY id FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT campaign_id)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contacts")).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM phonebooks")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM campaigns")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var contacts, phonebooks int
	err := repo.RunInTx(context.Background(), func(tx repository.CascadeTx) error {
		ctx := context.Background()
		require.NoError(t, tx.LockCampaign(ctx, 3))
		ids, err := tx.PhonebookIDs(ctx, 3)
		require.NoError(t, err)
		require.Equal(t, []int{8, 9}, ids)
		require.NoError(t, tx.LockPhonebooks(ctx, ids))
		others, err := tx.OtherCampaignsReferencing(ctx, 3, ids)
		require.NoError(t, err)
		require.Zero(t, others)
		if contacts, err = tx.DeleteContactsInPhonebooks(ctx, ids); err != nil {
			return err
		}
		if phonebooks, err = tx.DeletePhonebooks(ctx, ids); err != nil {
			return err
		}
		return tx.DeleteCampaign(ctx, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, contacts)
	assert.Equal(t, 2, phonebooks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadeTx_MissingCampaignRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := &repository.CascadeRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns WHERE id=$1 FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.RunInTx(context.Background(), func(tx repository.CascadeTx) error {
		return tx.LockCampaign(context.Background(), 3)
	})
	assert.True(t, appErrors.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
