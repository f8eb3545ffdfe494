package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/openfeeds/homefeed/pkg/config"
	"github.com/openfeeds/homefeed/pkg/logging"
)

// ErrCacheUnavailable is returned when the cache backend is unreachable
// or an operation timed out. An empty feed never produces this error.
var ErrCacheUnavailable = errors.New("feed cache unavailable")

// FeedCache is the Redis-backed per-account ordered set of status ids,
// keyed by feed type and owner. It is derived state: the publisher
// writes entries, readers only range over them, and a regeneration
// marker flags accounts whose set is being rebuilt.
type FeedCache struct {
	client     *redis.Client
	timeout    time.Duration
	markerTTL  time.Duration
	maxEntries int64
}

// New creates a new feed cache backed by the configured Redis
func New(cfg *config.RedisConfig, feedCfg *config.FeedConfig) (*FeedCache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return NewWithClient(client, feedCfg), nil
}

// NewWithClient creates a feed cache over an existing client
func NewWithClient(client *redis.Client, feedCfg *config.FeedConfig) *FeedCache {
	timeout := feedCfg.CacheTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	markerTTL := feedCfg.MarkerTTL
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &FeedCache{
		client:     client,
		timeout:    timeout,
		markerTTL:  markerTTL,
		maxEntries: feedCfg.MaxEntries,
	}
}

// Client exposes the underlying Redis client so other Redis-backed
// components can share the connection pool.
func (c *FeedCache) Client() *redis.Client {
	return c.client
}

func (c *FeedCache) key(accountID int64) string {
	return fmt.Sprintf("feed:home:%d", accountID)
}

func (c *FeedCache) markerKey(accountID int64) string {
	return fmt.Sprintf("account:%d:regeneration", accountID)
}

// IsRegenerating reports whether a rebuild of the account's feed has
// been enqueued and not yet completed. While true, the ordered set must
// not be trusted.
func (c *FeedCache) IsRegenerating(ctx context.Context, accountID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	count, err := c.client.Exists(ctx, c.markerKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return count > 0, nil
}

// RangeByIDBounds returns up to limit status ids from the account's
// ordered set, descending by id. All bounds are exclusive. When minID
// is set the fetch runs ascending from just above minID and the page is
// re-sorted descending before return, so a cursor continuation returns
// the oldest matching ids in the same output order as every other page.
func (c *FeedCache) RangeByIDBounds(ctx context.Context, accountID int64, limit int, maxID, sinceID, minID *int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	max := "+inf"
	if maxID != nil {
		max = fmt.Sprintf("(%d", *maxID)
	}

	var (
		raw []string
		err error
	)
	if minID == nil {
		min := "-inf"
		if sinceID != nil {
			min = fmt.Sprintf("(%d", *sinceID)
		}
		raw, err = c.client.ZRevRangeByScore(ctx, c.key(accountID), &redis.ZRangeBy{
			Min:   min,
			Max:   max,
			Count: int64(limit),
		}).Result()
	} else {
		raw, err = c.client.ZRangeByScore(ctx, c.key(accountID), &redis.ZRangeBy{
			Min:   fmt.Sprintf("(%d", *minID),
			Max:   max,
			Count: int64(limit),
		}).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	ids := make([]int64, 0, len(raw))
	for _, member := range raw {
		id, parseErr := strconv.ParseInt(member, 10, 64)
		if parseErr != nil {
			continue
		}
		ids = append(ids, id)
	}

	if minID != nil {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	return ids, nil
}

// AddToHome inserts a status id into the account's ordered set and
// trims the set to the configured maximum. Score equals the id.
func (c *FeedCache) AddToHome(ctx context.Context, accountID, statusID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := c.key(accountID)
	if err := c.client.ZAdd(ctx, key, &redis.Z{
		Score:  float64(statusID),
		Member: statusID,
	}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if c.maxEntries > 0 {
		if err := c.client.ZRemRangeByRank(ctx, key, 0, -(c.maxEntries + 1)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
	}
	return nil
}

// RemoveFromHome removes a status id from the account's ordered set
func (c *FeedCache) RemoveFromHome(ctx context.Context, accountID, statusID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.ZRem(ctx, c.key(accountID), statusID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// MarkRegenerating sets the regeneration marker for the account. The
// marker expires on its own in case the rebuild never reports back.
func (c *FeedCache) MarkRegenerating(ctx context.Context, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.markerKey(accountID), "1", c.markerTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// ClearRegenerating removes the regeneration marker once a rebuild has
// completed
func (c *FeedCache) ClearRegenerating(ctx context.Context, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, c.markerKey(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// InvalidateHome drops the account's cached feed and marks it as
// regenerating, forcing readers onto the aggregate path until the
// rebuild completes.
func (c *FeedCache) InvalidateHome(ctx context.Context, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if err := c.client.Set(ctx, c.markerKey(accountID), "1", c.markerTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection
func (c *FeedCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *FeedCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
