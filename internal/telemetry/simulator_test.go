package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func tempSensor() SensorConfig {
	return SensorConfig{
		Name: "Temp", Kind: KindTemperature, Unit: "°C",
		Normal: Band{Min: 18, Max: 25}, Threshold: Band{Min: 15, Max: 30},
	}
}

type scriptedRand struct {
	values []float64
	i      int
}

func (r *scriptedRand) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

func newTestSimulator(t *testing.T, cfg Config, opts ...Option) *Simulator {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger)}, opts...)
	sim, err := NewSimulator(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(sim.Stop)
	return sim
}

func TestGeneratePaths(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		draws   []float64
		value   float64
		anomaly bool
	}{
		{name: "midpoint", draws: []float64{0.5, 0.9}, value: 21.5, anomaly: false},
		{name: "jitter stays in normal band", draws: []float64{1.0, 0.9}, value: 22.2, anomaly: false},
		{name: "high excursion flagged", draws: []float64{0.5, 0.01, 0.2, 1.0}, value: 36, anomaly: true},
		{name: "high excursion back in range", draws: []float64{0.5, 0.01, 0.2, 0.0}, value: 24, anomaly: false},
		{name: "low excursion flagged", draws: []float64{0.5, 0.01, 0.9, 0.0}, value: 7.5, anomaly: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sim := newTestSimulator(t,
				Config{Interval: time.Second, AnomalyRate: 0.05, Sensors: []SensorConfig{tempSensor()}},
				WithRand(&scriptedRand{values: tc.draws}),
				WithClock(func() time.Time { return at }),
			)
			r := sim.generate(tempSensor())
			require.InDelta(t, tc.value, r.Value, 1e-9)
			require.Equal(t, tc.anomaly, r.IsAnomaly)
			require.Equal(t, at, r.RecordedAt)
			require.Equal(t, Band{Min: 15, Max: 30}, r.Threshold())
		})
	}
}

func TestEmittedFlagsMatchThresholdBand(t *testing.T) {
	sim := newTestSimulator(t,
		Config{Interval: time.Millisecond, AnomalyRate: 0.5, Sensors: []SensorConfig{tempSensor()}},
		WithRand(rand.New(rand.NewPCG(7, 11))),
	)

	readings := make(chan Reading, 256)
	require.NoError(t, sim.Start(context.Background(), func(r Reading) error {
		select {
		case readings <- r:
		default:
		}
		return nil
	}))

	band := Band{Min: 15, Max: 30}
	var anomalies, normal int
	for i := 0; i < 100; i++ {
		select {
		case r := <-readings:
			require.Equal(t, "Temp", r.Sensor)
			require.Equal(t, r.Value < band.Min || r.Value > band.Max, r.IsAnomaly)
			require.Equal(t, IsAnomaly(r.Value, r.Threshold()), r.IsAnomaly)
			if r.IsAnomaly {
				anomalies++
			} else {
				normal++
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d readings", i)
		}
	}
	sim.Stop()
	require.Positive(t, anomalies)
	require.Positive(t, normal)
}

func TestConsumerFailuresAreIsolated(t *testing.T) {
	sensors := []SensorConfig{tempSensor(), tempSensor(), tempSensor()}
	sensors[0].Name, sensors[1].Name, sensors[2].Name = "A", "B", "C"
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	sim := newTestSimulator(t,
		Config{Interval: time.Hour, AnomalyRate: 0, Sensors: sensors},
		WithMetrics(metrics),
	)

	var mu sync.Mutex
	var seen []string
	tickDone := make(chan struct{})
	require.NoError(t, sim.Start(context.Background(), func(r Reading) error {
		mu.Lock()
		seen = append(seen, r.Sensor)
		mu.Unlock()
		switch r.Sensor {
		case "A":
			panic("display crashed")
		case "B":
			return errors.New("display busy")
		}
		close(tickDone)
		return nil
	}))

	select {
	case <-tickDone:
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not reach the last sensor")
	}
	sim.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"A", "B", "C"}, seen)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("A")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("B")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.failures.WithLabelValues("C")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.readings.WithLabelValues("C")))
}

func TestStartStopLifecycle(t *testing.T) {
	sim := newTestSimulator(t, Config{Interval: time.Millisecond, AnomalyRate: 0.05, Sensors: DefaultSensors()})

	require.ErrorIs(t, sim.Start(context.Background(), nil), ErrNilConsumer)
	sim.Stop()
	require.False(t, sim.Running())

	noop := func(Reading) error { return nil }
	require.NoError(t, sim.Start(context.Background(), noop))
	require.True(t, sim.Running())
	require.ErrorIs(t, sim.Start(context.Background(), noop), ErrAlreadyRunning)

	sim.Stop()
	sim.Stop()
	require.False(t, sim.Running())
}

func TestRestartDoesNotOverlapOrLeak(t *testing.T) {
	sim := newTestSimulator(t, Config{Interval: time.Millisecond, AnomalyRate: 0.05, Sensors: DefaultSensors()})

	var inFlight, maxInFlight atomic.Int32
	track := func(counter *atomic.Int64) Consumer {
		return func(Reading) error {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			counter.Add(1)
			time.Sleep(100 * time.Microsecond)
			inFlight.Add(-1)
			return nil
		}
	}

	var first, second atomic.Int64
	require.NoError(t, sim.Start(context.Background(), track(&first)))
	require.Eventually(t, func() bool { return first.Load() >= 20 }, 5*time.Second, time.Millisecond)

	sim.Stop()
	require.NoError(t, sim.Start(context.Background(), track(&second)))
	stoppedAt := first.Load()

	require.Eventually(t, func() bool { return second.Load() >= 20 }, 5*time.Second, time.Millisecond)
	sim.Stop()

	require.Equal(t, stoppedAt, first.Load(), "stopped run kept emitting")
	require.EqualValues(t, 1, maxInFlight.Load())
	require.Zero(t, second.Load()%int64(len(DefaultSensors())), "ticks must deliver every sensor")
}

func TestParentContextEndsRun(t *testing.T) {
	sim := newTestSimulator(t, Config{Interval: time.Millisecond, AnomalyRate: 0.05, Sensors: DefaultSensors()})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sim.Start(ctx, func(Reading) error { return nil }))
	cancel()
	require.Eventually(t, func() bool { return !sim.Running() }, 5*time.Second, time.Millisecond)

	require.NoError(t, sim.Start(context.Background(), func(Reading) error { return nil }))
	require.True(t, sim.Running())
}

func TestConfigValidation(t *testing.T) {
	base := func() Config {
		return Config{Interval: time.Second, AnomalyRate: 0.05, Sensors: []SensorConfig{tempSensor()}}
	}

	cfg := base()
	cfg.Interval = 0
	_, err := NewSimulator(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = base()
	cfg.AnomalyRate = 1.5
	_, err = NewSimulator(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = base()
	cfg.Sensors[0].Threshold = Band{Min: 18, Max: 30}
	_, err = NewSimulator(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = base()
	cfg.Sensors = append(cfg.Sensors, tempSensor())
	_, err = NewSimulator(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = base()
	cfg.Sensors = nil
	_, err = NewSimulator(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, Config{Interval: DefaultInterval, AnomalyRate: DefaultAnomalyRate, Sensors: DefaultSensors()}.Validate())
}
