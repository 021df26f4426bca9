package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/storage"
)

// EntryTTL bounds how long a journal entry survives without being touched.
const EntryTTL = 24 * time.Hour

const defaultNamespace = "fetcher"

// FailedFetchRepo implements storage.FailedFetchRepository using Redis.
type FailedFetchRepo struct {
	rdb       *redis.Client
	namespace string
}

// NewFailedFetchRepo creates a new Redis-backed failure journal.
func NewFailedFetchRepo(client *Client, namespace string) *FailedFetchRepo {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &FailedFetchRepo{
		rdb:       client.rdb,
		namespace: namespace,
	}
}

// Key helpers
func (r *FailedFetchRepo) queueKey() string {
	return fmt.Sprintf("failed_fetches:%s", r.namespace)
}

func (r *FailedFetchRepo) entryKey(id string) string {
	return fmt.Sprintf("failed_fetch:%s:%s", r.namespace, id)
}

// Add adds a failed fetch to the queue.
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
	return r.save(ctx, ff)
}

func (r *FailedFetchRepo) save(ctx context.Context, ff *domain.FailedFetch) error {
	data, err := json.Marshal(ff)
	if err != nil {
		return fmt.Errorf("failed to marshal failed fetch: %w", err)
	}

	if err := r.rdb.Set(ctx, r.entryKey(ff.ID), data, EntryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed fetch: %w", err)
	}

	// Score = retry count, lower is replayed first
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(ff.RetryCount),
		Member: ff.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}
	return nil
}

func (r *FailedFetchRepo) load(ctx context.Context, id string) (*domain.FailedFetch, error) {
	data, err := r.rdb.Get(ctx, r.entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrFailedFetchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed fetch: %w", err)
	}

	var ff domain.FailedFetch
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed fetch: %w", err)
	}
	return &ff, nil
}

// GetNext retrieves the next failed fetch to replay.
func (r *FailedFetchRepo) GetNext(ctx context.Context) (*domain.FailedFetch, error) {
	for {
		results, err := r.rdb.ZRange(ctx, r.queueKey(), 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("zrange failed: %w", err)
		}
		if len(results) == 0 {
			return nil, nil
		}

		id := results[0]
		ff, err := r.load(ctx, id)
		if errors.Is(err, storage.ErrFailedFetchNotFound) {
			// Data expired but ID still in queue
			if err := r.rdb.ZRem(ctx, r.queueKey(), id).Err(); err != nil {
				return nil, fmt.Errorf("zrem failed: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return ff, nil
	}
}

// IncrementRetry increments retry count and updates last attempt.
func (r *FailedFetchRepo) IncrementRetry(ctx context.Context, id string) error {
	ff, err := r.load(ctx, id)
	if err != nil {
		return err
	}

	ff.RetryCount++
	ff.LastAttempt = time.Now()
	return r.save(ctx, ff)
}

// MarkResolved removes a failed fetch after a successful replay.
func (r *FailedFetchRepo) MarkResolved(ctx context.Context, id string) error {
	removed, err := r.rdb.ZRem(ctx, r.queueKey(), id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if removed == 0 {
		return storage.ErrFailedFetchNotFound
	}

	if err := r.rdb.Del(ctx, r.entryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed fetch: %w", err)
	}
	return nil
}

// GetAll retrieves all pending failed fetches.
func (r *FailedFetchRepo) GetAll(ctx context.Context) ([]*domain.FailedFetch, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	entries := make([]*domain.FailedFetch, 0, len(ids))
	for _, id := range ids {
		ff, err := r.load(ctx, id)
		if errors.Is(err, storage.ErrFailedFetchNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, ff)
	}
	return entries, nil
}

// Count returns the count of pending failed fetches.
func (r *FailedFetchRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// Clear removes the queue and every entry it references.
func (r *FailedFetchRepo) Clear(ctx context.Context) error {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.entryKey(id))
	}
	keys = append(keys, r.queueKey())

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}
	return nil
}
