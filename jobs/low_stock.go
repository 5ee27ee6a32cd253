package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// LowStockJob handles TaskLowStockAlert.
type LowStockJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob wires dependencies for the low-stock handler.
func NewLowStockJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Logger: logger, Metrics: metrics}
}

// Handle logs the alert and counts it.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskLowStockAlert)
	j.logger().Warn("product stock low",
		slog.Int64("product_id", payload.ProductID),
		slog.String("name", payload.Name),
		slog.Int("stock", payload.Stock),
		slog.Int("threshold", payload.Threshold),
	)
	j.Metrics.AddLowStockAlert()
	return tracker.End(nil)
}

func (j *LowStockJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
