package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openfeeds/homefeed/internal/models"
)

// RelationshipRepository provides access to follows and follow requests.
// Construct it with a transaction handle to compose multiple mutations
// atomically.
type RelationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Find retrieves the follow from source to target, or nil when absent
func (r *RelationshipRepository) Find(ctx context.Context, sourceID, targetID int64) (*models.Follow, error) {
	var follow models.Follow
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", sourceID, targetID).
		First(&follow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapQueryErr(err)
	}
	return &follow, nil
}

// FindRequest retrieves the pending follow request from source to
// target, or nil when absent
func (r *RelationshipRepository) FindRequest(ctx context.Context, sourceID, targetID int64) (*models.FollowRequest, error) {
	var req models.FollowRequest
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", sourceID, targetID).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapQueryErr(err)
	}
	return &req, nil
}

// FollowedTargetIDs returns the ids of all accounts followed by source.
// When excludeHiddenFromHome is set, follows flagged hide_from_home are
// omitted, which is what the home feed aggregate query wants.
func (r *RelationshipRepository) FollowedTargetIDs(ctx context.Context, sourceID int64, excludeHiddenFromHome bool) ([]int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("account_id = ?", sourceID)
	if excludeHiddenFromHome {
		query = query.Where("hide_from_home = ?", false)
	}

	var ids []int64
	if err := query.Pluck("target_account_id", &ids).Error; err != nil {
		return nil, wrapQueryErr(err)
	}
	return ids, nil
}

// Destroy removes the follow and any pending request from source to
// target. Destroying rows that do not exist is not an error.
func (r *RelationshipRepository) Destroy(ctx context.Context, sourceID, targetID int64) error {
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", sourceID, targetID).
		Delete(&models.Follow{}).Error; err != nil {
		return wrapQueryErr(err)
	}
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND target_account_id = ?", sourceID, targetID).
		Delete(&models.FollowRequest{}).Error; err != nil {
		return wrapQueryErr(err)
	}
	return nil
}

// CreateOrGet creates a follow with the given flags, or returns the
// existing row untouched. The insert uses ON CONFLICT DO NOTHING so a
// concurrent create never produces a duplicate pair; the row is
// re-read afterwards to observe whichever writer won.
func (r *RelationshipRepository) CreateOrGet(ctx context.Context, sourceID, targetID int64, showReblogs, hideFromHome bool) (*models.Follow, error) {
	if existing, err := r.Find(ctx, sourceID, targetID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	follow := &models.Follow{
		AccountID:       sourceID,
		TargetAccountID: targetID,
		ShowReblogs:     showReblogs,
		HideFromHome:    hideFromHome,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error; err != nil {
		return nil, wrapQueryErr(err)
	}

	return r.Find(ctx, sourceID, targetID)
}

// ApproveRequest promotes a pending follow request to a follow,
// carrying its preference flags. Returns nil when no request exists.
func (r *RelationshipRepository) ApproveRequest(ctx context.Context, sourceID, targetID int64) (*models.Follow, error) {
	req, err := r.FindRequest(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, nil
	}

	follow, err := r.CreateOrGet(ctx, sourceID, targetID, req.ShowReblogs, req.HideFromHome)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(req).Error; err != nil {
		return nil, wrapQueryErr(err)
	}
	return follow, nil
}
