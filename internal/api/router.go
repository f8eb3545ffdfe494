package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/feed"
	"github.com/openfeeds/homefeed/internal/worker"
	"github.com/openfeeds/homefeed/pkg/config"
	"github.com/openfeeds/homefeed/pkg/logging"
)

// Router sets up API routes
type Router struct {
	feed   *feed.HomeFeed
	queue  *worker.Queue
	cfg    *config.FeedConfig
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(homeFeed *feed.HomeFeed, queue *worker.Queue, cfg *config.FeedConfig) *Router {
	return &Router{
		feed:   homeFeed,
		queue:  queue,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/api/v1")
	v1.GET("/timelines/home", r.homeTimeline)
	v1.POST("/migrations", r.createMigration)
}

func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "homefeed",
	})
}
