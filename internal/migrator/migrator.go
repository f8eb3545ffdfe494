package migrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openfeeds/homefeed/internal/db"
	"github.com/openfeeds/homefeed/pkg/telemetry"
)

var (
	// ErrMigrationConflict is returned when a concurrent mutation of
	// the same relationship rows broke the transaction. The whole
	// Migrate call is safe to retry with the same arguments.
	ErrMigrationConflict = errors.New("migration conflict")

	// ErrInvalidArgument is returned for account ids that can never
	// name a relationship. Retrying such a job cannot help.
	ErrInvalidArgument = errors.New("invalid migration arguments")
)

// Invalidator schedules a home feed rebuild for an account after its
// relationships changed.
type Invalidator interface {
	InvalidateHome(ctx context.Context, accountID int64) error
}

// Migrator atomically swaps one follow relationship for another while
// preserving per-relationship preference flags. It runs as a job
// invoked at least once by the dispatcher, so every step tolerates
// re-delivery.
type Migrator struct {
	db          *gorm.DB
	invalidator Invalidator
	logger      *zap.Logger
}

// New creates a new relationship migrator
func New(database *gorm.DB, invalidator Invalidator, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:          database,
		invalidator: invalidator,
		logger:      logger.With(zap.String("component", "migrator")),
	}
}

// Migrate unfollows oldTargetID and follows newTargetID on behalf of
// followerID, carrying over show_reblogs and hide_from_home. A missing
// old relationship is not a failure: the new follow is still created
// with default flags. An existing follow to the new target keeps its
// own flags.
func (m *Migrator) Migrate(ctx context.Context, followerID, oldTargetID, newTargetID int64) error {
	if followerID <= 0 || oldTargetID <= 0 || newTargetID <= 0 {
		return fmt.Errorf("%w: account ids must be positive (%d, %d, %d)", ErrInvalidArgument, followerID, oldTargetID, newTargetID)
	}
	if oldTargetID == newTargetID {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "migrator.migrate")
	defer span.End()

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := db.NewRelationshipRepository(tx)

		showReblogs, hideFromHome := true, false
		if old, err := repo.Find(ctx, followerID, oldTargetID); err != nil {
			return err
		} else if old != nil {
			showReblogs, hideFromHome = old.ShowReblogs, old.HideFromHome
		} else if req, err := repo.FindRequest(ctx, followerID, oldTargetID); err != nil {
			return err
		} else if req != nil {
			showReblogs, hideFromHome = req.ShowReblogs, req.HideFromHome
		}

		if err := repo.Destroy(ctx, followerID, oldTargetID); err != nil {
			return err
		}

		follow, err := repo.CreateOrGet(ctx, followerID, newTargetID, showReblogs, hideFromHome)
		if err != nil {
			return err
		}
		if follow == nil {
			// Insert raced with a concurrent destroy of the same pair.
			return ErrMigrationConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", ErrMigrationConflict, err)
		}
		return err
	}

	m.logger.Info("migrated follow relationship",
		zap.Int64("follower_id", followerID),
		zap.Int64("old_target_id", oldTargetID),
		zap.Int64("new_target_id", newTargetID))

	if m.invalidator != nil {
		if err := m.invalidator.InvalidateHome(ctx, followerID); err != nil {
			// The follow swap is already committed; the marker will be
			// set again by the next relationship change if this one is
			// lost.
			m.logger.Warn("failed to schedule home feed invalidation",
				zap.Int64("follower_id", followerID),
				zap.Error(err))
		}
	}
	return nil
}
