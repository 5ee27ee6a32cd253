package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

const (
	// TaskIdempotencyCleanup purges expired sell keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// IdempotencyCleanupCron runs the purge nightly.
	IdempotencyCleanupCron = "0 3 * * *"
	// DefaultIdempotencyRetention bounds how long a sell key blocks a resubmit.
	DefaultIdempotencyRetention = 7 * 24 * time.Hour
)

// KeyPurger removes idempotency keys older than a retention window.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob handles TaskIdempotencyCleanup.
type IdempotencyCleanupJob struct {
	Store     KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires the purge handler.
func NewIdempotencyCleanupJob(store KeyPurger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{Store: store, Retention: retention, Logger: logger, Metrics: metrics}
}

// NewIdempotencyCleanupTask constructs the purge task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}

// Handle deletes expired keys.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	removed, err := j.Store.Cleanup(ctx, j.Retention)
	if err != nil {
		return err
	}
	j.Logger.Info("idempotency keys purged", slog.Int64("removed", removed), slog.Duration("retention", j.Retention))
	return nil
}
