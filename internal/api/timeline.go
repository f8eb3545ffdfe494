package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/cache"
	"github.com/openfeeds/homefeed/internal/db"
	"github.com/openfeeds/homefeed/internal/feed"
)

// homeTimeline handles GET /api/v1/timelines/home.
// Authentication is handled upstream; the account id arrives as a
// query parameter set by the gateway.
func (r *Router) homeTimeline(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id must be a positive integer"})
		return
	}

	limit := r.cfg.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}
	if limit > r.cfg.MaxLimit {
		limit = r.cfg.MaxLimit
	}

	rng := feed.Range{Limit: limit}
	if rng.MaxID, err = optionalID(c, "max_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_id must be an integer"})
		return
	}
	if rng.SinceID, err = optionalID(c, "since_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since_id must be an integer"})
		return
	}
	if rng.MinID, err = optionalID(c, "min_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min_id must be an integer"})
		return
	}

	entries, err := r.feed.Get(c.Request.Context(), accountID, rng)
	if err != nil {
		r.renderFeedError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (r *Router) renderFeedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feed.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cache.ErrCacheUnavailable), errors.Is(err, db.ErrStorageUnavailable):
		r.logger.Error("feed backend unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed temporarily unavailable"})
	default:
		r.logger.Error("feed fetch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func optionalID(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
