package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/nextfactory/nextfactory/testing"
)

func TestRunUsage(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	require.Equal(t, 1, run(context.Background(), nil, stdout, stderr))
	require.Contains(t, stderr.String(), "usage:")

	stderr.Reset()
	require.Equal(t, 1, run(context.Background(), []string{"deploy"}, stdout, stderr))
	require.Contains(t, stderr.String(), `unknown command "deploy"`)

	require.Equal(t, 0, run(context.Background(), []string{"help"}, stdout, stderr))
	require.Contains(t, stdout.String(), "nfctl views")
}

func TestRunViews(t *testing.T) {
	t.Setenv("SECTIONS_FILE", "")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	require.Equal(t, 0, run(context.Background(), []string{"views", "--role", "guest"}, stdout, stderr), stderr.String())
	require.Contains(t, stdout.String(), "Guest:")
	require.NotContains(t, stdout.String(), "real_time_data")

	require.Equal(t, 1, run(context.Background(), []string{"views", "--bogus"}, stdout, stderr))
}

func TestRunJobsRejectsUnknownSubcommand(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	require.Equal(t, 1, run(context.Background(), []string{"jobs"}, stdout, stderr))
	require.Equal(t, 1, run(context.Background(), []string{"jobs", "flush"}, stdout, stderr))
	require.Contains(t, stderr.String(), `unknown jobs command "flush"`)
}
