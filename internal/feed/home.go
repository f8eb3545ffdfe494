package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/db"
	"github.com/openfeeds/homefeed/pkg/telemetry"
)

// ErrInvalidArgument is returned for malformed read parameters. It is
// raised before any I/O happens.
var ErrInvalidArgument = errors.New("invalid argument")

// Entry is one home feed item: the status id plus the timestamp used
// for client-side cache validation. Nothing else is loaded on the hot
// path.
type Entry struct {
	ID        int64     `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Range bounds a feed page. All bounds are exclusive; nil means
// unbounded. MinID flips pagination to "oldest ids above the cursor"
// while keeping descending output order; when both SinceID and MinID
// are set, MinID wins.
type Range struct {
	Limit   int
	MaxID   *int64
	SinceID *int64
	MinID   *int64
}

// Cache is the feed cache surface the reader consumes
type Cache interface {
	IsRegenerating(ctx context.Context, accountID int64) (bool, error)
	RangeByIDBounds(ctx context.Context, accountID int64, limit int, maxID, sinceID, minID *int64) ([]int64, error)
}

// RelationshipStore is the follow storage surface the reader consumes
type RelationshipStore interface {
	FollowedTargetIDs(ctx context.Context, sourceID int64, excludeHiddenFromHome bool) ([]int64, error)
}

// StatusStore is the status storage surface the reader consumes
type StatusStore interface {
	IDsByAccounts(ctx context.Context, accountIDs []int64, limit int, maxID, sinceID, minID *int64) ([]int64, error)
	FetchProjections(ctx context.Context, ids []int64) ([]db.StatusProjection, error)
}

// pageSource tags where a page of ids came from so hydration stays
// oblivious to origin.
type pageSource int

const (
	sourceCache pageSource = iota
	sourceAggregate
)

func (s pageSource) String() string {
	if s == sourceCache {
		return "cache"
	}
	return "aggregate"
}

type page struct {
	source pageSource
	ids    []int64
}

// HomeFeed serves an account's home timeline. It owns no state: pages
// come either from the feed cache or, while the cache is being rebuilt,
// from the authoritative aggregate query, and both paths honor the same
// bound semantics.
type HomeFeed struct {
	cache         Cache
	relationships RelationshipStore
	statuses      StatusStore
	logger        *zap.Logger
}

// NewHomeFeed creates a new home feed reader
func NewHomeFeed(cache Cache, relationships RelationshipStore, statuses StatusStore, logger *zap.Logger) *HomeFeed {
	return &HomeFeed{
		cache:         cache,
		relationships: relationships,
		statuses:      statuses,
		logger:        logger.With(zap.String("component", "home-feed")),
	}
}

// Get returns up to r.Limit entries for the account, descending by id.
// Cache outages propagate as errors rather than silently degrading to
// the slow path; only the known regenerating state triggers fallback.
func (f *HomeFeed) Get(ctx context.Context, accountID int64, r Range) ([]Entry, error) {
	if r.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, r.Limit)
	}

	ctx, span := telemetry.StartSpan(ctx, "feed.home.get")
	defer span.End()

	regenerating, err := f.cache.IsRegenerating(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var pg page
	if regenerating {
		pg, err = f.fromDatabase(ctx, accountID, r)
	} else {
		pg, err = f.fromCache(ctx, accountID, r)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug("serving home feed page",
		zap.Int64("account_id", accountID),
		zap.String("source", pg.source.String()),
		zap.Int("count", len(pg.ids)))

	return f.hydrate(ctx, pg)
}

func (f *HomeFeed) fromCache(ctx context.Context, accountID int64, r Range) (page, error) {
	ids, err := f.cache.RangeByIDBounds(ctx, accountID, r.Limit, r.MaxID, r.SinceID, r.MinID)
	if err != nil {
		return page{}, err
	}
	return page{source: sourceCache, ids: ids}, nil
}

func (f *HomeFeed) fromDatabase(ctx context.Context, accountID int64, r Range) (page, error) {
	targetIDs, err := f.relationships.FollowedTargetIDs(ctx, accountID, true)
	if err != nil {
		return page{}, err
	}

	// The owner's own statuses are always part of the home feed.
	accountIDs := append(targetIDs, accountID)

	ids, err := f.statuses.IDsByAccounts(ctx, accountIDs, r.Limit, r.MaxID, r.SinceID, r.MinID)
	if err != nil {
		return page{}, err
	}
	return page{source: sourceAggregate, ids: ids}, nil
}

func (f *HomeFeed) hydrate(ctx context.Context, pg page) ([]Entry, error) {
	if len(pg.ids) == 0 {
		return []Entry{}, nil
	}

	projections, err := f.statuses.FetchProjections(ctx, pg.ids)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(projections))
	for i, p := range projections {
		entries[i] = Entry{ID: p.ID, UpdatedAt: p.UpdatedAt}
	}
	return entries, nil
}
