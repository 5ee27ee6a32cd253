package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert reports a product whose stock fell to the threshold.
	TaskLowStockAlert = "inventory:low_stock"
	// TaskDailyDigest summarises the day's sales.
	TaskDailyDigest = "reports:daily_digest"
)

// LowStockPayload is the body of TaskLowStockAlert.
type LowStockPayload = sales.LowStockAlert

// NewLowStockTask constructs an Asynq task for a low-stock alert.
func NewLowStockTask(alert sales.LowStockAlert) (*asynq.Task, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// DailyDigestPayload carries the day to summarise. A zero Day means the
// previous UTC day at execution time.
type DailyDigestPayload struct {
	Day time.Time `json:"day,omitempty"`
}

// NewDailyDigestTask constructs the digest task.
func NewDailyDigestTask(day time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DailyDigestPayload{Day: day})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyDigest, body, asynq.Queue(QueueDefault)), nil
}
