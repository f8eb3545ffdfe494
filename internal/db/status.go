package db

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/openfeeds/homefeed/internal/models"
)

// StatusProjection is the minimal view of a status loaded on the feed
// hot path.
type StatusProjection struct {
	ID        int64     `gorm:"column:id"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// StatusRepository provides read access to statuses
type StatusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// IDsByAccounts returns up to limit status ids authored by the given
// accounts, descending by id, within the same exclusive bounds the
// cached path applies. A minID bound without maxID flips the fetch to
// ascending from just above minID; the result is re-sorted descending
// so both paginations return the same shape.
func (r *StatusRepository) IDsByAccounts(ctx context.Context, accountIDs []int64, limit int, maxID, sinceID, minID *int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return []int64{}, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.Status{}).
		Where("account_id IN ?", accountIDs)

	if maxID != nil {
		query = query.Where("id < ?", *maxID)
	}

	ascending := false
	if minID != nil {
		query = query.Where("id > ?", *minID)
		ascending = true
	} else if sinceID != nil {
		query = query.Where("id > ?", *sinceID)
	}

	if ascending {
		query = query.Order("id ASC")
	} else {
		query = query.Order("id DESC")
	}

	var ids []int64
	if err := query.Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, wrapQueryErr(err)
	}

	if ascending {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	}
	return ids, nil
}

// FetchProjections hydrates status ids into id+updated_at projections,
// preserving the input order. Ids with no backing row are skipped.
func (r *StatusRepository) FetchProjections(ctx context.Context, ids []int64) ([]StatusProjection, error) {
	if len(ids) == 0 {
		return []StatusProjection{}, nil
	}

	var rows []StatusProjection
	if err := r.db.WithContext(ctx).
		Model(&models.Status{}).
		Select("id", "updated_at").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, wrapQueryErr(err)
	}

	byID := make(map[int64]StatusProjection, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	ordered := make([]StatusProjection, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}
