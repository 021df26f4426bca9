package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

// FailedRepo keeps the failure journal in process memory.
type FailedRepo struct {
	entries map[string]*domain.FailedFetch
	mu      sync.RWMutex
}

func NewFailedRepo() *FailedRepo {
	return &FailedRepo{entries: make(map[string]*domain.FailedFetch)}
}

func (r *FailedRepo) Add(ctx context.Context, ff *domain.FailedFetch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

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

	cp := *ff
	r.entries[ff.ID] = &cp
	return nil
}

func (r *FailedRepo) GetNext(ctx context.Context) (*domain.FailedFetch, error) {
	pending := r.pending()
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

func (r *FailedRepo) IncrementRetry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ff, ok := r.entries[id]
	if !ok {
		return storage.ErrFailedFetchNotFound
	}
	ff.RetryCount++
	ff.LastAttempt = time.Now()
	return nil
}

func (r *FailedRepo) MarkResolved(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ff, ok := r.entries[id]
	if !ok {
		return storage.ErrFailedFetchNotFound
	}
	ff.Status = domain.FailedFetchStatusResolved
	return nil
}

func (r *FailedRepo) GetAll(ctx context.Context) ([]*domain.FailedFetch, error) {
	return r.pending(), nil
}

func (r *FailedRepo) Count(ctx context.Context) (int, error) {
	return len(r.pending()), nil
}

func (r *FailedRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*domain.FailedFetch)
	return nil
}

// pending returns copies of the pending entries ordered by retry count, then by last attempt.
func (r *FailedRepo) pending() []*domain.FailedFetch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.FailedFetch, 0, len(r.entries))
	for _, ff := range r.entries {
		if ff.Status != domain.FailedFetchStatusPending {
			continue
		}
		cp := *ff
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RetryCount != out[j].RetryCount {
			return out[i].RetryCount < out[j].RetryCount
		}
		return out[i].LastAttempt.Before(out[j].LastAttempt)
	})
	return out
}
