package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
)

// DailyDigestCron runs the digest just after midnight UTC, once the
// previous day is complete.
const DailyDigestCron = "5 0 * * *"

// DailyDigestJob logs the sales summary of a day. Tasks without a day
// summarise the UTC day before the one Clock reports.
type DailyDigestJob struct {
	Reports *reports.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Clock   func() time.Time
}

// NewDailyDigestJob wires dependencies for the digest handler.
func NewDailyDigestJob(svc *reports.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailyDigestJob {
	return &DailyDigestJob{
		Reports: svc,
		Logger:  logger,
		Metrics: metrics,
		Clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle computes and logs the digest.
func (j *DailyDigestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("daily digest: handler not configured")
	}
	var payload DailyDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	day := payload.Day
	if day.IsZero() {
		day = j.Clock().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)
	}

	tracker := j.Metrics.Track(TaskDailyDigest)
	defer func() {
		err = tracker.End(err)
	}()

	summary, err := j.Reports.DaySummary(ctx, day)
	if err != nil {
		j.logger().Error("daily digest", slog.Any("error", err))
		return err
	}
	j.logger().Info("daily sales digest",
		slog.String("day", summary.Label),
		slog.Int64("sales", summary.Sales),
		slog.Int64("units", summary.Units),
		slog.String("revenue", summary.Revenue.StringFixed(2)),
	)
	return nil
}

func (j *DailyDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
