package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nextfactory/nextfactory/internal/jobs"
	"github.com/nextfactory/nextfactory/internal/telemetry"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueTelemetry receives reading inserts so they never wait behind
	// maintenance jobs.
	QueueTelemetry = "telemetry"
	// TaskTelemetryRecord persists one sensor reading.
	TaskTelemetryRecord = "telemetry:record"
	// TaskTelemetryPrune deletes readings older than the retention window.
	TaskTelemetryPrune = "telemetry:prune"
)

// DefaultRetention keeps a week of readings.
const DefaultRetention = 7 * 24 * time.Hour

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RecordReadingPayload carries the reading to persist.
type RecordReadingPayload struct {
	Reading telemetry.Reading `json:"reading"`
}

// NewRecordReadingTask constructs an Asynq task for a reading.
func NewRecordReadingTask(r telemetry.Reading) (*asynq.Task, error) {
	data, err := json.Marshal(RecordReadingPayload{Reading: r})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTelemetryRecord, data), nil
}

// PrunePayload configures a prune run. Zero Retention selects the worker's
// configured window.
type PrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewPruneTask constructs an Asynq task for the retention sweep.
func NewPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTelemetryPrune, data), nil
}
