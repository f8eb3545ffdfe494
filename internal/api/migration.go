package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/worker"
)

type migrationRequest struct {
	FollowerID  int64 `json:"follower_id" binding:"required,gt=0"`
	OldTargetID int64 `json:"old_target_id" binding:"required,gt=0"`
	NewTargetID int64 `json:"new_target_id" binding:"required,gt=0"`
}

// createMigration handles POST /api/v1/migrations. The swap itself
// runs asynchronously on the worker; this endpoint only enqueues it.
func (r *Router) createMigration(c *gin.Context) {
	var req migrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := worker.Job{
		FollowerID:  req.FollowerID,
		OldTargetID: req.OldTargetID,
		NewTargetID: req.NewTargetID,
	}
	if err := r.queue.Enqueue(c.Request.Context(), job); err != nil {
		r.logger.Error("failed to enqueue migration", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not enqueue migration"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
