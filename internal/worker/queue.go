package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/pkg/logging"
)

// Job is a relationship migration to perform. Delivery is at least
// once: the migrator is idempotent for a fixed id triple, so re-running
// a job is harmless.
type Job struct {
	FollowerID  int64 `json:"follower_id"`
	OldTargetID int64 `json:"old_target_id"`
	NewTargetID int64 `json:"new_target_id"`
	Retries     int   `json:"retries,omitempty"`
}

// Queue is a Redis-list backed job queue
type Queue struct {
	client *redis.Client
	name   string
	logger *zap.Logger
}

// NewQueue creates a queue over the given Redis client and list name
func NewQueue(client *redis.Client, name string) *Queue {
	return &Queue{
		client: client,
		name:   name,
		logger: logging.GetLogger().With(zap.String("component", "queue"), zap.String("queue", name)),
	}
}

// Enqueue pushes a job onto the queue
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Len returns the number of pending jobs
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// dequeue blocks for up to timeout waiting for a job. Returns
// (nil, nil) when the queue stayed empty.
func (q *Queue) dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	vals, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(vals) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		q.logger.Error("dropping malformed job payload", zap.Error(err))
		return nil, nil
	}
	return &job, nil
}
