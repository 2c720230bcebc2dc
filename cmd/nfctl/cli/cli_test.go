package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/nextfactory/nextfactory/internal/layout"
	"github.com/nextfactory/nextfactory/jobs"
)

func TestViewsCommandJSON(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := ViewsCommand(ViewsOptions{Role: "Operator", JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code, stderr.String())

	var views []layout.View
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "operator", views[0].User)
	require.Contains(t, views[0].SectionIDs(), layout.SectionRealTimeData)
	require.NotContains(t, views[0].SectionIDs(), layout.SectionUserAdmin)
}

func TestViewsCommandHumanListsEveryRole(t *testing.T) {
	stdout := new(bytes.Buffer)
	require.Equal(t, 0, ViewsCommand(ViewsOptions{Stdout: stdout, Stderr: new(bytes.Buffer)}))
	for _, label := range []string{"Admin:", "Manager:", "Operator:", "Guest:", "Analyst:"} {
		require.Contains(t, stdout.String(), label)
	}
}

func TestViewsCommandErrors(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 1, ViewsCommand(ViewsOptions{Role: "pilot", Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), `unknown role "pilot"`)

	path := filepath.Join(t.TempDir(), "sections.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  - id: dashboard\n    label: Dashboard\n    any_of: [can_fly]\n"), 0o600))
	stderr.Reset()
	require.Equal(t, 1, ViewsCommand(ViewsOptions{TablePath: path, Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "views:")
}

type stubPruner struct {
	retention time.Duration
	err       error
}

func (s *stubPruner) EnqueuePrune(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.retention = retention
	return &asynq.TaskInfo{ID: "t-1", Type: jobs.TaskTelemetryPrune, Queue: jobs.QueueDefault}, nil
}

type stubInspector map[string]*asynq.QueueInfo

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if info, ok := s[queue]; ok {
		return info, nil
	}
	return nil, asynq.ErrQueueNotFound
}

func TestJobsTrigger(t *testing.T) {
	pruner := &stubPruner{}
	c := NewJobsCLI(pruner, nil)
	stdout := new(bytes.Buffer)

	code := c.Trigger(context.Background(), "prune", JobsOptions{Retention: 48 * time.Hour, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)
	require.Equal(t, 48*time.Hour, pruner.retention)
	require.Contains(t, stdout.String(), "enqueued telemetry:prune id=t-1")

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, c.Trigger(context.Background(), "reindex", JobsOptions{Stdout: stdout, Stderr: stderr}))
	require.Contains(t, stderr.String(), "unsupported job")

	pruner.err = errors.New("redis down")
	require.Equal(t, 1, c.Trigger(context.Background(), "prune", JobsOptions{Stdout: stdout, Stderr: stderr}))
}

func TestJobsStats(t *testing.T) {
	c := NewJobsCLI(nil, stubInspector{jobs.QueueTelemetry: {Pending: 7, Active: 1, Failed: 2}})

	stdout := new(bytes.Buffer)
	require.Equal(t, 0, c.Stats(context.Background(), JobsOptions{JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)}))
	require.JSONEq(t, `[
		{"queue":"telemetry","pending":7,"active":1,"retry":0,"failed":2},
		{"queue":"default","pending":0,"active":0,"retry":0,"failed":0}
	]`, stdout.String())

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, NewJobsCLI(nil, nil).Stats(context.Background(), JobsOptions{Stdout: stdout, Stderr: stderr}))
	require.Contains(t, stderr.String(), "inspector not configured")
}
