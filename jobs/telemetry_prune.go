package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nextfactory/nextfactory/internal/jobs"
	"github.com/nextfactory/nextfactory/internal/telemetry"
)

// PruneReadingsJob enforces the reading retention window.
type PruneReadingsJob struct {
	Store     telemetry.Store
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewPruneReadingsJob initialises the prune handler.
func NewPruneReadingsJob(store telemetry.Store, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *PruneReadingsJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &PruneReadingsJob{
		Store:     store,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle deletes readings recorded before now minus the retention window.
func (j *PruneReadingsJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("prune readings: store not configured")
	}
	var payload PrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("prune readings: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTelemetryPrune)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := start.Add(-retention)
	logger := j.logger().With(slog.Time("cutoff", cutoff))
	deleted, err := j.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		logger.Error("prune failed", slog.Any("error", err))
		return err
	}
	j.metrics().AddPruned(deleted)
	logger.Info("completed reading prune",
		slog.Int64("deleted", deleted),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *PruneReadingsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTelemetryPrune))
	}
	return slog.Default().With(slog.String("job", TaskTelemetryPrune))
}

func (j *PruneReadingsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PruneReadingsJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
