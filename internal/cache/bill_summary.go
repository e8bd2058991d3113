package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/naimprince010-ship-it/isp-billing/internal/domain"
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
)

const (
	keyPrefix        = "billing:bill_summary:"
	generationPrefix = "billing:bill_gen:"
)

// ErrStaleSummary is returned by Set when the bill changed after the
// generation passed to it was read. Nothing is stored.
var ErrStaleSummary = errors.New("bill summary is stale")

// BillSummaryCache stores bill read models between payments.
// Entries are dropped after every committed change to the bill, and each drop
// bumps the bill's generation. Readers take the generation before loading the
// summary from the database and hand it back to Set.
type BillSummaryCache interface {
	Get(ctx context.Context, billID uuid.UUID) (*domain.BillSummary, bool, error)
	Generation(ctx context.Context, billID uuid.UUID) (int64, error)
	Set(ctx context.Context, summary *domain.BillSummary, generation int64) error
	Invalidate(ctx context.Context, billIDs ...uuid.UUID) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(billID uuid.UUID) string {
	return keyPrefix + billID.String()
}

func generationKey(billID uuid.UUID) string {
	return generationPrefix + billID.String()
}

func (c *RedisCache) Get(ctx context.Context, billID uuid.UUID) (*domain.BillSummary, bool, error) {
	raw, err := c.client.Get(ctx, key(billID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, customError.WrapCacheError(err)
	}

	var summary domain.BillSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false, customError.WrapCacheError(fmt.Errorf("decode %s: %w", key(billID), err))
	}
	return &summary, true, nil
}

// Generation reads the bill's invalidation counter; a bill never invalidated is at 0
func (c *RedisCache) Generation(ctx context.Context, billID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(billID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, customError.WrapCacheError(err)
	}
	return gen, nil
}

// Set stores the summary only while the bill is still at generation.
// The counter is watched so an Invalidate racing the write aborts it.
func (c *RedisCache) Set(ctx context.Context, summary *domain.BillSummary, generation int64) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return customError.WrapCacheError(err)
	}

	genKey := generationKey(summary.Bill.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStaleSummary
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(summary.Bill.ID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleSummary), errors.Is(err, redis.TxFailedErr):
		return ErrStaleSummary
	default:
		return customError.WrapCacheError(err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, billIDs ...uuid.UUID) error {
	if len(billIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(billIDs))
	// counters outlive the summaries they guard
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range billIDs {
			keys = append(keys, key(id))
			pipe.Incr(ctx, generationKey(id))
			if c.ttl > 0 {
				pipe.Expire(ctx, generationKey(id), 2*c.ttl)
			}
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

// NoopCache is used when REDIS_URL is not configured
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (*domain.BillSummary, bool, error) {
	return nil, false, nil
}

func (NoopCache) Generation(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (NoopCache) Set(context.Context, *domain.BillSummary, int64) error { return nil }

func (NoopCache) Invalidate(context.Context, ...uuid.UUID) error { return nil }

// NewRedisClient parses a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
