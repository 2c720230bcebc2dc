package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotKey is the Redis hash holding the latest reading per sensor.
const DefaultSnapshotKey = "nextfactory:telemetry:latest"

// Snapshot keeps the most recent reading of each sensor in a Redis hash so
// late subscribers can render current values straight away.
type Snapshot struct {
	client redis.Cmdable
	key    string
}

// NewSnapshot constructs a Snapshot over the given client.
func NewSnapshot(client redis.Cmdable, key string) *Snapshot {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &Snapshot{client: client, key: key}
}

// Save overwrites the sensor's entry with r.
func (s *Snapshot) Save(ctx context.Context, r Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("telemetry: encode snapshot: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, r.Sensor, data).Err(); err != nil {
		return fmt.Errorf("telemetry: save snapshot: %w", err)
	}
	return nil
}

// Latest returns the stored readings ordered by sensor name.
func (s *Snapshot) Latest(ctx context.Context) ([]Reading, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("telemetry: load snapshot: %w", err)
	}
	readings := make([]Reading, 0, len(entries))
	for sensor, raw := range entries {
		var r Reading
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("telemetry: decode snapshot %s: %w", sensor, err)
		}
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Sensor < readings[j].Sensor })
	return readings, nil
}

// Consumer adapts Save to the simulator callback with a per-call timeout.
func (s *Snapshot) Consumer(timeout time.Duration) Consumer {
	if timeout <= 0 {
		timeout = time.Second
	}
	return func(r Reading) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Save(ctx, r)
	}
}

// Clear drops every stored reading.
func (s *Snapshot) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("telemetry: clear snapshot: %w", err)
	}
	return nil
}
