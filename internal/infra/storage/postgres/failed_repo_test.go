package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

var _ storage.FailedFetchRepository = (*FailedFetchRepo)(nil)

var testColumns = []string{
	"id", "target", "request_id", "status_code", "error_msg", "class", "reason",
	"attempts", "retry_count", "status", "last_attempt", "created_at",
}

func newMockRepo(t *testing.T) (*FailedFetchRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFailedFetchRepo(Wrap(db)), mock
}

func TestFailedFetchRepo_Add(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO failed_fetches").
		WithArgs(
			sqlmock.AnyArg(), "http://a/503", "req-1", 503, "",
			"transient_response", "exhausted", 3, 0, "pending",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ff := &domain.FailedFetch{
		Target:     "http://a/503",
		RequestID:  "req-1",
		StatusCode: 503,
		Class:      domain.ClassTransientResponse,
		Reason:     domain.ReasonExhausted,
		Attempts:   3,
	}
	require.NoError(t, repo.Add(context.Background(), ff))
	assert.NotEmpty(t, ff.ID)
	assert.Equal(t, domain.FailedFetchStatusPending, ff.Status)
	assert.False(t, ff.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedFetchRepo_GetNext(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows(testColumns).AddRow(
		"0b7c6a52-4b9c-4b8e-9f0c-2f1f3e0c1a11", "http://b/", "req-2", 0, "connection refused",
		"transient_network", "exhausted", 3, 1, "pending", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM failed_fetches").WillReturnRows(rows)

	ff, err := repo.GetNext(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ff)
	assert.Equal(t, "http://b/", ff.Target)
	assert.Equal(t, "connection refused", ff.Error)
	assert.Equal(t, domain.ClassTransientNetwork, ff.Class)
	assert.Equal(t, domain.ReasonExhausted, ff.Reason)
	assert.Equal(t, 1, ff.RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedFetchRepo_GetNextEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM failed_fetches").WillReturnRows(sqlmock.NewRows(testColumns))

	ff, err := repo.GetNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ff)
}

func TestFailedFetchRepo_Updates(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE failed_fetches SET retry_count").WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE failed_fetches SET status").WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE failed_fetches SET status").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.IncrementRetry(ctx, "a"))
	require.NoError(t, repo.MarkResolved(ctx, "a"))
	assert.ErrorIs(t, repo.MarkResolved(ctx, "missing"), storage.ErrFailedFetchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedFetchRepo_GetAllCountClear(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(testColumns).
		AddRow("a", "http://a/", "r1", 503, "", "transient_response", "exhausted", 3, 0, "pending", now, now).
		AddRow("b", "http://b/", "r2", 404, "", "permanent_response", "terminal", 1, 2, "pending", now, now)
	mock.ExpectQuery("SELECT (.+) FROM failed_fetches").WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM failed_fetches").WillReturnResult(sqlmock.NewResult(0, 2))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 404, all[1].StatusCode)
	assert.Equal(t, domain.ReasonTerminal, all[1].Reason)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.Clear(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations_Embedded(t *testing.T) {
	data, err := migrations.ReadFile("migrations/00001_create_failed_fetches.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS failed_fetches")
}

func TestFailedFetchRepo_Live(t *testing.T) {
	dsn := os.Getenv("FETCHER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FETCHER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, Config{URL: dsn})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db.DB.DB))

	repo := NewFailedFetchRepo(db)
	require.NoError(t, repo.Clear(ctx))

	ff := &domain.FailedFetch{Target: "http://a/", Class: domain.ClassTransientNetwork, Reason: domain.ReasonExhausted}
	require.NoError(t, repo.Add(ctx, ff))

	next, err := repo.GetNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ff.ID, next.ID)

	require.NoError(t, repo.IncrementRetry(ctx, ff.ID))
	require.NoError(t, repo.MarkResolved(ctx, ff.ID))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
