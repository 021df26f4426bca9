package storage

import (
	"context"
	"errors"

	"github.com/vietddude/fetcher/internal/core/domain"
)

var (
	// ErrFailedFetchNotFound is returned when a journal entry doesn't exist
	ErrFailedFetchNotFound = errors.New("failed fetch not found")
)

// FailedFetchRepository records invocations whose final result was not a success
type FailedFetchRepository interface {
	// Add records a failed invocation
	Add(ctx context.Context, ff *domain.FailedFetch) error

	// GetNext returns the pending entry to replay first, or nil when there is none
	GetNext(ctx context.Context) (*domain.FailedFetch, error)

	// IncrementRetry bumps the replay counter after an unsuccessful replay
	IncrementRetry(ctx context.Context, id string) error

	// MarkResolved removes an entry from the pending set after a successful replay
	MarkResolved(ctx context.Context, id string) error

	// GetAll returns all pending entries, lowest retry count first
	GetAll(ctx context.Context) ([]*domain.FailedFetch, error)

	// Count returns the number of pending entries
	Count(ctx context.Context) (int, error)

	// Clear drops every entry
	Clear(ctx context.Context) error
}
