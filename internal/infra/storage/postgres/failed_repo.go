package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

const failedFetchColumns = `id, target, request_id, status_code, error_msg, class, reason, attempts, retry_count, status, last_attempt, created_at`

type failedFetchRow struct {
	ID          string    `db:"id"`
	Target      string    `db:"target"`
	RequestID   string    `db:"request_id"`
	StatusCode  int       `db:"status_code"`
	ErrorMsg    string    `db:"error_msg"`
	Class       string    `db:"class"`
	Reason      string    `db:"reason"`
	Attempts    int       `db:"attempts"`
	RetryCount  int       `db:"retry_count"`
	Status      string    `db:"status"`
	LastAttempt time.Time `db:"last_attempt"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row failedFetchRow) toDomain() *domain.FailedFetch {
	return &domain.FailedFetch{
		ID:          row.ID,
		Target:      row.Target,
		RequestID:   row.RequestID,
		StatusCode:  row.StatusCode,
		Error:       row.ErrorMsg,
		Class:       domain.FailureClass(row.Class),
		Reason:      domain.FinalReason(row.Reason),
		Attempts:    row.Attempts,
		RetryCount:  row.RetryCount,
		Status:      domain.FailedFetchStatus(row.Status),
		LastAttempt: row.LastAttempt,
		CreatedAt:   row.CreatedAt,
	}
}

// FailedFetchRepo implements storage.FailedFetchRepository using PostgreSQL.
type FailedFetchRepo struct {
	db *DB
}

// NewFailedFetchRepo creates a new PostgreSQL failure journal.
func NewFailedFetchRepo(db *DB) *FailedFetchRepo {
	return &FailedFetchRepo{db: db}
}

// Add adds a failed fetch.
func (r *FailedFetchRepo) Add(ctx context.Context, ff *domain.FailedFetch) error {
	if ff.ID == "" {
		ff.ID = uuid.NewString()
	}
	if ff.Status == "" {
		ff.Status = domain.FailedFetchStatusPending
	}
	now := time.Now()
	if ff.CreatedAt.IsZero() {
		ff.CreatedAt = now
	}
	if ff.LastAttempt.IsZero() {
		ff.LastAttempt = now
	}

	query := `
		INSERT INTO failed_fetches (` + failedFetchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		ff.ID,
		ff.Target,
		ff.RequestID,
		ff.StatusCode,
		ff.Error,
		string(ff.Class),
		string(ff.Reason),
		ff.Attempts,
		ff.RetryCount,
		string(ff.Status),
		ff.LastAttempt,
		ff.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed fetch: %w", err)
	}
	return nil
}

// GetNext returns the next failed fetch to replay.
func (r *FailedFetchRepo) GetNext(ctx context.Context) (*domain.FailedFetch, error) {
	query := `
		SELECT ` + failedFetchColumns + `
		FROM failed_fetches
		WHERE status = 'pending'
		ORDER BY retry_count ASC, last_attempt ASC
		LIMIT 1
	`

	var row failedFetchRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No pending failed fetches
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed fetch: %w", err)
	}
	return row.toDomain(), nil
}

// IncrementRetry increments retry count and updates timestamp.
func (r *FailedFetchRepo) IncrementRetry(ctx context.Context, id string) error {
	query := `
		UPDATE failed_fetches
		SET retry_count = retry_count + 1, last_attempt = NOW()
		WHERE id = $1
	`
	return r.update(ctx, query, id)
}

// MarkResolved marks a failed fetch as resolved.
func (r *FailedFetchRepo) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE failed_fetches
		SET status = 'resolved'
		WHERE id = $1
	`
	return r.update(ctx, query, id)
}

func (r *FailedFetchRepo) update(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update failed fetch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrFailedFetchNotFound
	}
	return nil
}

// GetAll returns all pending failed fetches.
func (r *FailedFetchRepo) GetAll(ctx context.Context) ([]*domain.FailedFetch, error) {
	query := `
		SELECT ` + failedFetchColumns + `
		FROM failed_fetches
		WHERE status = 'pending'
		ORDER BY retry_count ASC, last_attempt ASC
	`

	var rows []failedFetchRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get all failed fetches: %w", err)
	}

	entries := make([]*domain.FailedFetch, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

// Count returns the number of pending failed fetches.
func (r *FailedFetchRepo) Count(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_fetches
		WHERE status = 'pending'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count failed fetches: %w", err)
	}
	return count, nil
}

// Clear deletes every journal entry.
func (r *FailedFetchRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM failed_fetches`); err != nil {
		return fmt.Errorf("failed to clear failed fetches: %w", err)
	}
	return nil
}
