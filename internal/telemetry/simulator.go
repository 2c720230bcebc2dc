// Package telemetry produces the synthetic sensor feed of the demo line and
// fans it out to live subscribers, a Redis snapshot and persistent storage.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Rand is the random source used for value synthesis.
type Rand interface {
	Float64() float64
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Simulator) { s.clock = clock }
}

// WithRand overrides the random source.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// Simulator emits one reading per configured sensor on every tick from a
// single producer goroutine. Consumers must not call Start or Stop: Stop
// waits for the producer, which would be waiting on the consumer.
type Simulator struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	clock   func() time.Time
	rng     Rand

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// NewSimulator validates cfg and builds a stopped Simulator.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sensors := make([]SensorConfig, len(cfg.Sensors))
	copy(sensors, cfg.Sensors)
	cfg.Sensors = sensors
	s := &Simulator{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "sensor_simulator"))
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s, nil
}

// Sensors returns the configured sensors.
func (s *Simulator) Sensors() []SensorConfig {
	out := make([]SensorConfig, len(s.cfg.Sensors))
	copy(out, s.cfg.Sensors)
	return out
}

// Interval returns the tick interval.
func (s *Simulator) Interval() time.Duration {
	return s.cfg.Interval
}

// Running reports whether a producer goroutine is active.
func (s *Simulator) Running() bool {
	return s.running.Load()
}

// Start begins ticking. The first tick fires immediately. The run ends on
// Stop or when ctx is cancelled.
func (s *Simulator) Start(ctx context.Context, consume Consumer) error {
	if consume == nil {
		return ErrNilConsumer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		if s.running.Load() {
			return ErrAlreadyRunning
		}
		// The previous run ended on its own context and is exiting.
		<-s.done
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.running.Store(true)
	go s.run(runCtx, uuid.NewString(), consume, done)
	return nil
}

// Stop halts future ticks and waits for an in-flight tick to finish
// delivering. Stopping a stopped simulator is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *Simulator) run(ctx context.Context, runID string, consume Consumer, done chan struct{}) {
	defer close(done)
	defer s.running.Store(false)

	logger := s.logger.With(slog.String("run_id", runID))
	logger.Info("sensor simulation started",
		slog.Int("sensors", len(s.cfg.Sensors)),
		slog.Duration("interval", s.cfg.Interval),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(logger, consume)
	for {
		select {
		case <-ctx.Done():
			logger.Info("sensor simulation stopped")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				logger.Info("sensor simulation stopped")
				return
			}
			s.tick(logger, consume)
		}
	}
}

func (s *Simulator) tick(logger *slog.Logger, consume Consumer) {
	for _, sensor := range s.cfg.Sensors {
		s.deliver(logger, consume, s.generate(sensor))
	}
}

// deliver isolates consumer failures so the rest of the tick proceeds.
func (s *Simulator) deliver(logger *slog.Logger, consume Consumer, r Reading) {
	s.metrics.Observe(r)
	defer func() {
		if p := recover(); p != nil {
			s.metrics.ConsumerFailed(r.Sensor)
			logger.Error("sensor consumer panicked",
				slog.String("sensor", r.Sensor),
				slog.String("panic", fmt.Sprint(p)),
			)
		}
	}()
	if err := consume(r); err != nil {
		s.metrics.ConsumerFailed(r.Sensor)
		logger.Warn("sensor consumer failed",
			slog.String("sensor", r.Sensor),
			slog.Any("error", err),
		)
	}
}

// generate draws a value near the normal midpoint, or with AnomalyRate
// probability an excursion near one of the threshold edges. The anomaly
// flag is recomputed from the final value either way.
func (s *Simulator) generate(sensor SensorConfig) Reading {
	value := sensor.Normal.Midpoint() + sensor.Normal.Width()*0.2*(s.rng.Float64()-0.5)
	if s.rng.Float64() < s.cfg.AnomalyRate {
		if s.rng.Float64() < 0.5 {
			value = sensor.Threshold.Max * (0.8 + 0.4*s.rng.Float64())
		} else {
			value = sensor.Threshold.Min * (0.5 + 0.5*s.rng.Float64())
		}
	}
	value = math.Round(value*100) / 100
	return Reading{
		Sensor:       sensor.Name,
		Kind:         sensor.Kind,
		Value:        value,
		Unit:         sensor.Unit,
		Equipment:    sensor.Equipment,
		Location:     sensor.Location,
		ThresholdMin: sensor.Threshold.Min,
		ThresholdMax: sensor.Threshold.Max,
		IsAnomaly:    IsAnomaly(value, sensor.Threshold),
		RecordedAt:   s.clock(),
	}
}
