package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clanstats-api/internal/models"
)

func newReconcileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var chestColumns = []string{"id", "submission_id", "player_name", "matched_game_account_id", "item_status", "created_at", "chest_name", "source", "level", "opened_at"}

func TestStagedEntryRepositoryGetScansConcreteType(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	opened := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM staged_chest_entries WHERE")).
		WithArgs("entry-1", "sub-1").
		WillReturnRows(sqlmock.NewRows(chestColumns).
			AddRow("entry-1", "sub-1", "Foo", "acc-1", "approved", time.Now(), "Gold", "Crypt", nil, opened))

	repo := NewStagedEntryRepository(db)
	entry, err := repo.Get(context.Background(), models.SubmissionTypeChests, "sub-1", "entry-1")
	require.NoError(t, err)

	chest, ok := entry.(*models.ChestEntry)
	require.True(t, ok)
	assert.Equal(t, "Gold", chest.ChestName)
	assert.Equal(t, "Crypt", *chest.Source)
	assert.Nil(t, chest.Level)
	assert.Equal(t, models.ItemStatusApproved, chest.ItemStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM staged_event_entries")).
		WillReturnError(sql.ErrNoRows)

	repo := NewStagedEntryRepository(db)
	_, err := repo.Get(context.Background(), models.SubmissionTypeEvents, "sub-1", "entry-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStagedEntryRepositoryRejectsUnknownKind(t *testing.T) {
	repo := NewStagedEntryRepository(nil)
	_, err := repo.Get(context.Background(), models.SubmissionType("raids"), "sub-1", "entry-1")

	var unsupported *UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, models.SubmissionType("raids"), unsupported.Type)
}

func TestStagedEntryRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staged_chest_entries e WHERE")).
		WithArgs("sub-1", "approved", "%fo\\_o%", "%fo\\_o%", "%fo\\_o%", "Gold").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`LEFT JOIN game_accounts ga ON ga.id = e.matched_game_account_id .*ORDER BY e.chest_name DESC, e.id ASC LIMIT 10 OFFSET 20`).
		WillReturnRows(sqlmock.NewRows(append(chestColumns, "matched_account_name")).
			AddRow("entry-1", "sub-1", "Fo_o", "acc-1", "approved", time.Now(), "Gold", nil, nil, time.Now(), "FooMain"))

	repo := NewStagedEntryRepository(db)
	entries, total, err := repo.List(context.Background(), models.SubmissionTypeChests, models.StagedEntryFilter{
		SubmissionID: "sub-1",
		ItemStatus:   models.ItemStatusApproved,
		Search:       " fo_o ",
		Facets:       map[string]string{"chest_name": "Gold", "event_name": "ignored"},
		SortBy:       "chest_name",
		SortOrder:    "desc",
		Limit:        10,
		Offset:       20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "FooMain", *entries[0].Base().MatchedAccountName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryListUnmatchedUsesIsNull(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("e.matched_game_account_id IS NULL")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.created_at ASC, e.id ASC LIMIT 50")).
		WillReturnRows(sqlmock.NewRows(append([]string{"id", "submission_id", "player_name", "matched_game_account_id", "item_status", "created_at", "coordinates", "score", "captured_at"}, "matched_account_name")))

	repo := NewStagedEntryRepository(db)
	entries, total, err := repo.List(context.Background(), models.SubmissionTypeMembers, models.StagedEntryFilter{
		SubmissionID: "sub-1",
		Unmatched:    true,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM staged_chest_entries WHERE submission_id = $1 GROUP BY item_status")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_status", "total", "matched"}).
			AddRow("approved", 2, 2).
			AddRow("pending", 1, 0).
			AddRow("unknown", 4, 1))

	repo := NewStagedEntryRepository(db)
	counts, matched, err := repo.CountByStatus(context.Background(), models.SubmissionTypeChests, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCounts{Approved: 2, Pending: 1}, counts)
	assert.Equal(t, 3, matched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryUpdateAssignment(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staged_chest_entries SET matched_game_account_id = $1, item_status = $2 WHERE id = $3")).
		WithArgs(nil, "pending", "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staged_chest_entries SET matched_game_account_id")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewStagedEntryRepository(db)
	require.NoError(t, repo.UpdateAssignment(context.Background(), models.SubmissionTypeChests, "entry-1", nil, models.ItemStatusPending))

	err := repo.UpdateAssignment(context.Background(), models.SubmissionTypeChests, "gone", nil, models.ItemStatusPending)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryReassignApprovedSiblings(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	account := "acc-2"
	mock.ExpectExec(regexp.QuoteMeta("AND player_name = $3 AND item_status = $4 AND id <> $5")).
		WithArgs(account, "sub-1", "Foo", "approved", "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewStagedEntryRepository(db)
	rows, err := repo.ReassignApprovedSiblings(context.Background(), models.SubmissionTypeChests, "sub-1", "Foo", "entry-1", &account)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryUpdateFields(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staged_chest_entries SET chest_name = $1, source = $2 WHERE id = $3")).
		WithArgs("Silver", nil, "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewStagedEntryRepository(db)
	err := repo.UpdateFields(context.Background(), models.SubmissionTypeChests, "entry-1", []models.FieldEdit{
		{Column: "chest_name", ProductionColumn: "chest_name", Value: "Silver"},
		{Column: "source", ProductionColumn: "source", Value: (*string)(nil)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStagedEntryRepositoryDistinctValues(t *testing.T) {
	db, mock, cleanup := newReconcileRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT source FROM staged_chest_entries WHERE submission_id = $1 AND source IS NOT NULL ORDER BY source")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"source"}).AddRow("Arena").AddRow("Crypt"))

	repo := NewStagedEntryRepository(db)
	values, err := repo.DistinctValues(context.Background(), models.SubmissionTypeChests, "sub-1", "source")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arena", "Crypt"}, values)

	_, err = repo.DistinctValues(context.Background(), models.SubmissionTypeMembers, "sub-1", "source")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
