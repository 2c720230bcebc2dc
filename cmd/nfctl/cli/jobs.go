package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nextfactory/nextfactory/jobs"
)

// Pruner enqueues retention sweeps.
type Pruner interface {
	EnqueuePrune(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for the telemetry queues.
type JobsCLI struct {
	pruner    Pruner
	inspector jobs.QueueInspector
}

// NewJobsCLI builds the helpers from a queue client and inspector.
func NewJobsCLI(pruner Pruner, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{pruner: pruner, inspector: inspector}
}

// JobsOptions holds the flags shared by the jobs subcommands.
type JobsOptions struct {
	Retention  time.Duration
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *JobsOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Trigger enqueues the named job immediately.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts JobsOptions) int {
	opts.defaults()
	if c == nil || c.pruner == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: client not configured")
		return 1
	}
	switch name {
	case "prune", jobs.TaskTelemetryPrune:
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: unsupported job %q\n", name)
		return 1
	}
	info, err := c.pruner.EnqueuePrune(ctx, opts.Retention)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

// Stats prints the backlog of every served queue.
func (c *JobsCLI) Stats(ctx context.Context, opts JobsOptions) int {
	opts.defaults()
	stats, err := c.InspectQueues(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%-10s %8s %8s %8s %8s\n", "QUEUE", "PENDING", "ACTIVE", "RETRY", "FAILED")
	for _, s := range stats {
		_, _ = fmt.Fprintf(opts.Stdout, "%-10s %8d %8d %8d %8d\n", s.Queue, s.Pending, s.Active, s.Retry, s.Failed)
	}
	return 0
}

// QueueStats summarises the current state of one queue.
type QueueStats struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
	Retry   int    `json:"retry"`
	Failed  int    `json:"failed"`
}

// InspectQueues reports every served queue. Queues that have never seen a
// task are reported empty.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	names := []string{jobs.QueueTelemetry, jobs.QueueDefault}
	out := make([]QueueStats, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats := QueueStats{Queue: name}
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, fmt.Errorf("inspect %s: %w", name, err)
		}
		if info != nil {
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Retry = info.Retry
			stats.Failed = info.Failed
		}
		out = append(out, stats)
	}
	return out, nil
}
