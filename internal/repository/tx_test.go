package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManagerCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM data_submissions")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	manager := NewTxManager(db, true)
	err := manager.WithinTx(context.Background(), func(q Querier) error {
		return NewSubmissionRepository(q).Delete(context.Background(), "sub-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	boom := errors.New("production write failed")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staged_chest_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	manager := NewTxManager(db, true)
	err := manager.WithinTx(context.Background(), func(q Querier) error {
		if _, err := q.ExecContext(context.Background(), "UPDATE staged_chest_entries SET chest_name = 'x'"); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackOnPanic(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	manager := NewTxManager(db, true)
	assert.Panics(t, func() {
		_ = manager.WithinTx(context.Background(), func(q Querier) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerBestEffortRunsOnPool(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM data_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	manager := NewTxManager(db, false)
	assert.False(t, manager.Transactional())
	err := manager.WithinTx(context.Background(), func(q Querier) error {
		return NewSubmissionRepository(q).Delete(context.Background(), "sub-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
