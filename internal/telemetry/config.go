package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults for the demo feed.
const (
	DefaultInterval    = 2 * time.Second
	DefaultAnomalyRate = 0.05
)

// Config configures a Simulator. Interval is shared by all sensors.
type Config struct {
	Interval    time.Duration  `validate:"gt=0"`
	AnomalyRate float64        `validate:"gte=0,lte=1"`
	Sensors     []SensorConfig `validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate checks field constraints, unique sensor names and that each
// threshold band strictly contains its normal band.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Sensors))
	for _, s := range c.Sensors {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate sensor %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Normal.Min >= s.Normal.Max {
			return fmt.Errorf("%w: sensor %q normal band is empty", ErrInvalidConfig, s.Name)
		}
		if !(s.Threshold.Min < s.Normal.Min && s.Normal.Max < s.Threshold.Max) {
			return fmt.Errorf("%w: sensor %q threshold band must strictly contain the normal band", ErrInvalidConfig, s.Name)
		}
	}
	return nil
}

type sensorsDocument struct {
	Sensors []SensorConfig `yaml:"sensors"`
}

// LoadSensors reads sensor definitions from a YAML document.
func LoadSensors(r io.Reader) ([]SensorConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc sensorsDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty sensor document", ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: decode sensors: %v", ErrInvalidConfig, err)
	}
	cfg := Config{Interval: DefaultInterval, AnomalyRate: DefaultAnomalyRate, Sensors: doc.Sensors}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return doc.Sensors, nil
}

// LoadSensorsFile reads sensor definitions from disk.
func LoadSensorsFile(path string) ([]SensorConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open sensors: %w", err)
	}
	defer f.Close()
	return LoadSensors(f)
}

// PersistMode selects which readings are queued for storage.
type PersistMode string

// Persist modes.
const (
	PersistNone      PersistMode = "none"
	PersistAnomalies PersistMode = "anomalies"
	PersistAll       PersistMode = "all"
)

// ParsePersistMode validates a mode name; empty selects anomalies.
func ParsePersistMode(s string) (PersistMode, error) {
	switch PersistMode(s) {
	case "":
		return PersistAnomalies, nil
	case PersistNone, PersistAnomalies, PersistAll:
		return PersistMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown persist mode %q", ErrInvalidConfig, s)
}

// Keeps reports whether r should be persisted under the mode.
func (m PersistMode) Keeps(r Reading) bool {
	switch m {
	case PersistAll:
		return true
	case PersistAnomalies:
		return r.IsAnomaly
	}
	return false
}
