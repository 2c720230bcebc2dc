// Command nextfactory serves the workspace API and runs the sensor feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/nextfactory/nextfactory/internal/app"
	"github.com/nextfactory/nextfactory/internal/auth"
	jobmetrics "github.com/nextfactory/nextfactory/internal/jobs"
	"github.com/nextfactory/nextfactory/internal/layout"
	"github.com/nextfactory/nextfactory/internal/observability"
	"github.com/nextfactory/nextfactory/internal/platform/cache"
	"github.com/nextfactory/nextfactory/internal/platform/db"
	"github.com/nextfactory/nextfactory/internal/rbac"
	"github.com/nextfactory/nextfactory/internal/roles"
	"github.com/nextfactory/nextfactory/internal/telemetry"
	"github.com/nextfactory/nextfactory/internal/users"
	"github.com/nextfactory/nextfactory/internal/workspace"
	"github.com/nextfactory/nextfactory/jobs"
)

// consumerTimeout bounds each Redis write made on behalf of one reading.
const consumerTimeout = time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("nextfactory exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	table, err := loadTable(cfg)
	if err != nil {
		return fmt.Errorf("load section table: %w", err)
	}
	composer, err := layout.NewComposer(table, cfg.ViewCacheSize)
	if err != nil {
		return fmt.Errorf("build composer: %w", err)
	}
	simCfg, err := cfg.SimulatorConfig()
	if err != nil {
		return fmt.Errorf("load sensors: %w", err)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("nextfactory"))
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobsClient, err := jobs.NewClient(redisOpts, jobmetrics.NewMetrics(metrics.Registerer()))
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	telemetryMetrics := telemetry.NewMetrics(metrics.Registerer())
	hub := telemetry.NewHub(telemetryMetrics)
	snapshot := telemetry.NewSnapshot(redisClient, cfg.SnapshotKey)
	sim, err := telemetry.NewSimulator(simCfg,
		telemetry.WithLogger(logger),
		telemetry.WithMetrics(telemetryMetrics),
	)
	if err != nil {
		return fmt.Errorf("init simulator: %w", err)
	}
	feed := telemetry.NewFeed(ctx, sim, telemetry.Chain(
		hub.Publish,
		snapshot.Consumer(consumerTimeout),
		jobsClient.ReadingConsumer(cfg.PersistMode(), consumerTimeout),
	))
	if cfg.TelemetryEnabled {
		if err := feed.Start(); err != nil {
			return fmt.Errorf("start feed: %w", err)
		}
	}
	defer feed.Stop()

	rbacMW := rbac.Middleware{Logger: logger}
	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		Authenticator: auth.NewService(auth.NewRepository(pool)),
		Workspace: workspace.NewHandler(workspace.Params{
			Logger:   logger,
			Composer: composer,
			Snapshot: snapshot,
			Readings: telemetry.NewPGStore(pool),
			Monitor:  feed,
			Hub:      hub,
		}),
		Users: users.NewHandler(logger, users.NewService(users.NewRepository(pool)), rbacMW),
		Roles: roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool)), rbacMW),
		Jobs:  jobs.NewHandler(inspector, logger),
		Readiness: []app.ReadinessCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		ReadTimeout:       cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.Int("sensors", len(simCfg.Sensors)),
			slog.Bool("telemetry", cfg.TelemetryEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		feed.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func loadTable(cfg *app.Config) (*layout.Table, error) {
	if cfg.SectionsFile == "" {
		return layout.DefaultTable()
	}
	return layout.LoadTableFile(cfg.SectionsFile, layout.ShellSections()...)
}
