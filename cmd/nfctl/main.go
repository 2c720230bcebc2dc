// Command nfctl inspects role views and manages telemetry jobs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/nextfactory/nextfactory/cmd/nfctl/cli"
	"github.com/nextfactory/nextfactory/internal/app"
	"github.com/nextfactory/nextfactory/jobs"
)

const usage = `usage:
  nfctl views [--role R] [--table FILE] [--json]
  nfctl jobs trigger prune [--retention D]
  nfctl jobs stats [--json]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	switch args[0] {
	case "views":
		return runViews(args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
	return 1
}

func runViews(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("views", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ViewsOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Role, "role", "", "only show this seed role")
	fs.StringVar(&opts.TablePath, "table", os.Getenv("SECTIONS_FILE"), "section table YAML (defaults to the built-in table)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return cli.ViewsCommand(opts)
}

func runJobs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 1
	}
	fs := pflag.NewFlagSet("jobs", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.JobsOptions{Stdout: stdout, Stderr: stderr}
	fs.DurationVar(&opts.Retention, "retention", 0, "override TELEMETRY_RETENTION for this sweep")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if opts.Retention == 0 {
		opts.Retention = cfg.TelemetryRetention
	}
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	switch args[0] {
	case "trigger":
		if fs.NArg() != 1 {
			_, _ = fmt.Fprint(stderr, usage)
			return 1
		}
		client, err := jobs.NewClient(redisOpts, nil)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs: %v\n", err)
			return 1
		}
		defer client.Close()
		return cli.NewJobsCLI(client, nil).Trigger(ctx, fs.Arg(0), opts)
	case "stats":
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		return cli.NewJobsCLI(nil, inspector).Stats(ctx, opts)
	}
	_, _ = fmt.Fprintf(stderr, "unknown jobs command %q\n%s", args[0], usage)
	return 1
}
