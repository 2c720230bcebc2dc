package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newSnapshot(t *testing.T) (*Snapshot, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshot(client, ""), srv
}

func TestSnapshotKeepsLatestPerSensor(t *testing.T) {
	snap, srv := newSnapshot(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, snap.Save(ctx, Reading{Sensor: "Pressure_Sensor_1", Value: 101, RecordedAt: at}))
	require.NoError(t, snap.Save(ctx, Reading{Sensor: "Motor_Speed_1", Value: 1500, RecordedAt: at}))
	require.NoError(t, snap.Save(ctx, Reading{Sensor: "Pressure_Sensor_1", Value: 145, IsAnomaly: true, RecordedAt: at.Add(2 * time.Second)}))

	require.True(t, srv.Exists(DefaultSnapshotKey))

	latest, err := snap.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, "Motor_Speed_1", latest[0].Sensor)
	require.Equal(t, "Pressure_Sensor_1", latest[1].Sensor)
	require.Equal(t, 145.0, latest[1].Value)
	require.True(t, latest[1].IsAnomaly)
	require.True(t, latest[1].RecordedAt.Equal(at.Add(2*time.Second)))
}

func TestSnapshotEmptyAndCorrupt(t *testing.T) {
	snap, srv := newSnapshot(t)

	latest, err := snap.Latest(context.Background())
	require.NoError(t, err)
	require.Empty(t, latest)

	srv.HSet(DefaultSnapshotKey, "broken", "{not json")
	_, err = snap.Latest(context.Background())
	require.ErrorContains(t, err, "decode snapshot broken")
}

func TestSnapshotConsumerReportsRedisFailure(t *testing.T) {
	snap, srv := newSnapshot(t)
	consume := snap.Consumer(0)

	require.NoError(t, consume(Reading{Sensor: "Power_Monitor_1", Value: 20}))
	srv.SetError("READONLY")
	require.Error(t, consume(Reading{Sensor: "Power_Monitor_1", Value: 21}))
}

func TestSnapshotClear(t *testing.T) {
	snap, srv := newSnapshot(t)
	ctx := context.Background()

	require.NoError(t, snap.Save(ctx, Reading{Sensor: "Motor_Speed_1", Value: 1500}))
	require.NoError(t, snap.Clear(ctx))
	require.False(t, srv.Exists(DefaultSnapshotKey))
	require.NoError(t, snap.Clear(ctx))
}
