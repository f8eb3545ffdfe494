package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openfeeds/homefeed/internal/migrator"
	"github.com/openfeeds/homefeed/pkg/config"
	"github.com/openfeeds/homefeed/pkg/logging"
)

// Migrator performs one relationship migration
type Migrator interface {
	Migrate(ctx context.Context, followerID, oldTargetID, newTargetID int64) error
}

// Runner consumes migration jobs from a queue and hands them to the
// migrator. Failed jobs go back onto the queue with a bumped retry
// counter until the attempt budget runs out.
type Runner struct {
	queue    *Queue
	migrator Migrator
	cfg      *config.WorkerConfig
	logger   *zap.Logger
}

// NewRunner creates a new worker runner
func NewRunner(queue *Queue, migrator Migrator, cfg *config.WorkerConfig) *Runner {
	return &Runner{
		queue:    queue,
		migrator: migrator,
		cfg:      cfg,
		logger:   logging.GetLogger().With(zap.String("component", "worker")),
	}
}

// Run consumes jobs until the context is cancelled
func (r *Runner) Run(ctx context.Context) {
	pollTimeout := r.cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Second
	}

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.consume(ctx, pollTimeout)
		}()
	}
	wg.Wait()
}

func (r *Runner) consume(ctx context.Context, pollTimeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := r.queue.dequeue(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to dequeue job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollTimeout):
			}
			continue
		}
		if job == nil {
			continue
		}

		r.process(ctx, *job)
	}
}

// ProcessOne runs a single job synchronously, applying the same retry
// policy as the background loop.
func (r *Runner) ProcessOne(ctx context.Context, job Job) {
	r.process(ctx, job)
}

func (r *Runner) process(ctx context.Context, job Job) {
	err := r.migrator.Migrate(ctx, job.FollowerID, job.OldTargetID, job.NewTargetID)
	if err == nil {
		return
	}

	if errors.Is(err, migrator.ErrInvalidArgument) {
		r.logger.Error("dropping migration job with invalid ids",
			zap.Int64("follower_id", job.FollowerID),
			zap.Int64("old_target_id", job.OldTargetID),
			zap.Int64("new_target_id", job.NewTargetID),
			zap.Error(err))
		return
	}

	if job.Retries >= r.cfg.MaxRetries {
		r.logger.Error("dropping migration job after retries exhausted",
			zap.Int64("follower_id", job.FollowerID),
			zap.Int64("old_target_id", job.OldTargetID),
			zap.Int64("new_target_id", job.NewTargetID),
			zap.Int("retries", job.Retries),
			zap.Error(err))
		return
	}

	job.Retries++
	r.logger.Warn("migration failed, re-enqueueing",
		zap.Int64("follower_id", job.FollowerID),
		zap.Int("retries", job.Retries),
		zap.Error(err))

	if r.cfg.RetryDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.RetryDelay):
		}
	}
	if enqueueErr := r.queue.Enqueue(ctx, job); enqueueErr != nil {
		r.logger.Error("failed to re-enqueue job", zap.Error(enqueueErr))
	}
}
