package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextfactory/nextfactory/internal/telemetry"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 2*time.Second, cfg.TelemetryInterval)
	require.InDelta(t, 0.05, cfg.TelemetryAnomalyRate, 1e-9)
	require.Equal(t, telemetry.PersistAnomalies, cfg.PersistMode())
	require.Equal(t, 168*time.Hour, cfg.TelemetryRetention)
	require.True(t, cfg.TelemetryEnabled)
	require.False(t, cfg.IsProduction())

	sim, err := cfg.SimulatorConfig()
	require.NoError(t, err)
	require.Len(t, sim.Sensors, len(telemetry.DefaultSensors()))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TELEMETRY_INTERVAL", "500ms")
	t.Setenv("TELEMETRY_PERSIST", "all")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PG_MAX_CONNS", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 500*time.Millisecond, cfg.TelemetryInterval)
	require.Equal(t, telemetry.PersistAll, cfg.PersistMode())
	require.Equal(t, 3, cfg.CacheOptions().DB)
	require.EqualValues(t, 4, cfg.PoolOptions("nextfactory").MaxConns)
	require.Equal(t, "nextfactory", cfg.PoolOptions("nextfactory").ApplicationName)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"TELEMETRY_PERSIST":      "sometimes",
		"TELEMETRY_ANOMALY_RATE": "1.5",
		"TELEMETRY_INTERVAL":     "0s",
		"TELEMETRY_RETENTION":    "-1h",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.ErrorContains(t, err, key)
		})
	}
}

func TestSimulatorConfigReadsSensorsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`sensors:
  - name: Oven_Temp
    kind: temperature
    unit: "°C"
    normal: {min: 180, max: 220}
    threshold: {min: 150, max: 250}
`), 0o600))

	cfg := &Config{SensorsFile: path, TelemetryInterval: time.Second, TelemetryAnomalyRate: 0.1}
	sim, err := cfg.SimulatorConfig()
	require.NoError(t, err)
	require.Len(t, sim.Sensors, 1)
	require.Equal(t, "Oven_Temp", sim.Sensors[0].Name)

	cfg.SensorsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.SimulatorConfig()
	require.Error(t, err)
}

func TestTestModeRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}
