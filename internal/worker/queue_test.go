package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/openfeeds/homefeed/internal/migrator"
	"github.com/openfeeds/homefeed/pkg/config"
)

func setupQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, "queue:migrations")
}

type fakeMigrator struct {
	calls []Job
	errs  []error
}

func (f *fakeMigrator) Migrate(_ context.Context, followerID, oldTargetID, newTargetID int64) error {
	f.calls = append(f.calls, Job{FollowerID: followerID, OldTargetID: oldTargetID, NewTargetID: newTargetID})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := setupQueue(t)
	ctx := context.Background()

	want := Job{FollowerID: 1, OldTargetID: 2, NewTargetID: 3}
	if err := q.Enqueue(ctx, want); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}

	job, err := q.dequeue(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue() error: %v", err)
	}
	if job == nil {
		t.Fatal("dequeue() = nil, want job")
	}
	if *job != want {
		t.Errorf("dequeue() = %+v, want %+v", *job, want)
	}
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := setupQueue(t)

	job, err := q.dequeue(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue() error: %v", err)
	}
	if job != nil {
		t.Errorf("dequeue() on empty queue = %+v, want nil", job)
	}
}

func TestQueue_DropsMalformedPayload(t *testing.T) {
	q := setupQueue(t)
	ctx := context.Background()

	if err := q.client.LPush(ctx, q.name, "not json").Err(); err != nil {
		t.Fatalf("lpush: %v", err)
	}

	job, err := q.dequeue(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue() error: %v", err)
	}
	if job != nil {
		t.Errorf("dequeue() of malformed payload = %+v, want nil", job)
	}
}

func TestRunner_ProcessRetriesThenSucceeds(t *testing.T) {
	q := setupQueue(t)
	m := &fakeMigrator{errs: []error{errors.New("conflict")}}
	runner := NewRunner(q, m, &config.WorkerConfig{
		Concurrency: 1,
		MaxRetries:  3,
	})
	ctx := context.Background()

	runner.ProcessOne(ctx, Job{FollowerID: 1, OldTargetID: 2, NewTargetID: 3})

	// First attempt failed and went back on the queue.
	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Len() after failed attempt = %d, want 1", n)
	}

	job, err := q.dequeue(ctx, 100*time.Millisecond)
	if err != nil || job == nil {
		t.Fatalf("dequeue() = (%+v, %v), want requeued job", job, err)
	}
	if job.Retries != 1 {
		t.Errorf("requeued job retries = %d, want 1", job.Retries)
	}

	runner.ProcessOne(ctx, *job)
	if len(m.calls) != 2 {
		t.Fatalf("migrator called %d times, want 2", len(m.calls))
	}
	n, _ = q.Len(ctx)
	if n != 0 {
		t.Errorf("Len() after success = %d, want 0", n)
	}
}

func TestRunner_DropsInvalidJobWithoutRetry(t *testing.T) {
	q := setupQueue(t)
	m := &fakeMigrator{errs: []error{fmt.Errorf("%w: account ids must be positive (0, 2, 3)", migrator.ErrInvalidArgument)}}
	runner := NewRunner(q, m, &config.WorkerConfig{
		Concurrency: 1,
		MaxRetries:  3,
	})
	ctx := context.Background()

	// Bad ids can never succeed; the job must not go back on the queue.
	runner.ProcessOne(ctx, Job{FollowerID: 0, OldTargetID: 2, NewTargetID: 3})

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Len() after invalid job = %d, want 0", n)
	}
	if len(m.calls) != 1 {
		t.Errorf("migrator called %d times, want 1", len(m.calls))
	}
}

func TestRunner_DropsAfterMaxRetries(t *testing.T) {
	q := setupQueue(t)
	m := &fakeMigrator{errs: []error{errors.New("conflict")}}
	runner := NewRunner(q, m, &config.WorkerConfig{
		Concurrency: 1,
		MaxRetries:  2,
	})
	ctx := context.Background()

	runner.ProcessOne(ctx, Job{FollowerID: 1, OldTargetID: 2, NewTargetID: 3, Retries: 2})

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 0 {
		t.Errorf("Len() after exhausted retries = %d, want 0", n)
	}
}

func TestRunner_RunConsumesUntilCancelled(t *testing.T) {
	q := setupQueue(t)
	m := &fakeMigrator{}
	runner := NewRunner(q, m, &config.WorkerConfig{
		Concurrency: 2,
		MaxRetries:  1,
		PollTimeout: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	for i := int64(1); i <= 3; i++ {
		if err := q.Enqueue(ctx, Job{FollowerID: i, OldTargetID: 2, NewTargetID: 3}); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		n, _ := q.Len(context.Background())
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue not drained in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
