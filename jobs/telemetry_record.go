package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nextfactory/nextfactory/internal/jobs"
	"github.com/nextfactory/nextfactory/internal/telemetry"
)

// RecordReadingJob writes queued readings to the store.
type RecordReadingJob struct {
	Store   telemetry.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRecordReadingJob initialises the record handler.
func NewRecordReadingJob(store telemetry.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecordReadingJob {
	return &RecordReadingJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle persists the reading carried by t.
func (j *RecordReadingJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("record reading: store not configured")
	}
	var payload RecordReadingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("record reading: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	r := payload.Reading
	if r.Sensor == "" || r.RecordedAt.IsZero() {
		return fmt.Errorf("record reading: incomplete reading: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskTelemetryRecord)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Store.Insert(ctx, r); err != nil {
		j.logger().Error("insert reading failed",
			slog.String("sensor", r.Sensor),
			slog.Any("error", err),
		)
		return err
	}
	if r.IsAnomaly {
		j.metrics().AddAnomalies(r.Sensor, 1)
		j.logger().Warn("sensor anomaly recorded",
			slog.String("sensor", r.Sensor),
			slog.Float64("value", r.Value),
			slog.String("unit", r.Unit),
			slog.Float64("threshold_min", r.ThresholdMin),
			slog.Float64("threshold_max", r.ThresholdMax),
		)
	}
	return nil
}

func (j *RecordReadingJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTelemetryRecord))
	}
	return slog.Default().With(slog.String("job", TaskTelemetryRecord))
}

func (j *RecordReadingJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
