package telemetry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("telemetry: simulator already running")
	// ErrNilConsumer is returned by Start when no consumer is supplied.
	ErrNilConsumer = errors.New("telemetry: nil consumer")
	// ErrInvalidConfig marks a rejected simulator or sensor configuration.
	ErrInvalidConfig = errors.New("telemetry: invalid configuration")
)

// Kind classifies a sensor.
type Kind string

// Sensor kinds used by the demo line.
const (
	KindTemperature Kind = "temperature"
	KindPressure    Kind = "pressure"
	KindVibration   Kind = "vibration"
	KindSpeed       Kind = "speed"
	KindPower       Kind = "power"
)

// Band is a closed numeric interval.
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the band, edges included.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Midpoint returns the centre of the band.
func (b Band) Midpoint() float64 {
	return b.Min + (b.Max-b.Min)/2
}

// Width returns Max-Min.
func (b Band) Width() float64 {
	return b.Max - b.Min
}

// IsAnomaly is the authoritative anomaly predicate: a value outside the
// threshold band.
func IsAnomaly(value float64, threshold Band) bool {
	return value < threshold.Min || value > threshold.Max
}

// SensorConfig describes one simulated sensor. Threshold must strictly
// contain Normal.
type SensorConfig struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	Kind      Kind   `json:"kind" yaml:"kind" validate:"required"`
	Unit      string `json:"unit" yaml:"unit" validate:"required"`
	Equipment string `json:"equipment,omitempty" yaml:"equipment"`
	Location  string `json:"location,omitempty" yaml:"location"`
	Normal    Band   `json:"normal" yaml:"normal"`
	Threshold Band   `json:"threshold" yaml:"threshold"`
}

// Reading is one synthetic sample. IsAnomaly is fixed at generation time.
type Reading struct {
	Sensor       string    `json:"sensor_name"`
	Kind         Kind      `json:"data_type"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	Equipment    string    `json:"equipment_id,omitempty"`
	Location     string    `json:"location,omitempty"`
	ThresholdMin float64   `json:"threshold_min"`
	ThresholdMax float64   `json:"threshold_max"`
	IsAnomaly    bool      `json:"is_anomaly"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Threshold returns the band the reading was judged against.
func (r Reading) Threshold() Band {
	return Band{Min: r.ThresholdMin, Max: r.ThresholdMax}
}

// Consumer receives readings from the simulator. It runs on the producer
// goroutine, so it must return quickly: a slow consumer delays the next tick.
type Consumer func(Reading) error

// Store persists readings.
type Store interface {
	Insert(ctx context.Context, r Reading) error
	Recent(ctx context.Context, filter Filter) ([]Reading, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter narrows Store.Recent.
type Filter struct {
	Sensor        string
	AnomaliesOnly bool
	Limit         int
}

// DefaultSensors returns the five sensors of the demo production line.
func DefaultSensors() []SensorConfig {
	return []SensorConfig{
		{
			Name: "Temperature_Sensor_1", Kind: KindTemperature, Unit: "°C",
			Equipment: "HVAC_System_A", Location: "Production Floor A",
			Normal: Band{Min: 18, Max: 25}, Threshold: Band{Min: 15, Max: 30},
		},
		{
			Name: "Pressure_Sensor_1", Kind: KindPressure, Unit: "PSI",
			Equipment: "Hydraulic_Press_1", Location: "Manufacturing Cell 1",
			Normal: Band{Min: 80, Max: 120}, Threshold: Band{Min: 70, Max: 140},
		},
		{
			Name: "Vibration_Monitor_1", Kind: KindVibration, Unit: "mm/s",
			Equipment: "CNC_Machine_1", Location: "Machining Center",
			Normal: Band{Min: 0.5, Max: 2}, Threshold: Band{Min: 0, Max: 5},
		},
		{
			Name: "Motor_Speed_1", Kind: KindSpeed, Unit: "RPM",
			Equipment: "Conveyor_Motor_1", Location: "Assembly Line",
			Normal: Band{Min: 1450, Max: 1550}, Threshold: Band{Min: 1400, Max: 1600},
		},
		{
			Name: "Power_Monitor_1", Kind: KindPower, Unit: "kW",
			Equipment: "Main_Production_Line", Location: "Power Panel A",
			Normal: Band{Min: 15, Max: 25}, Threshold: Band{Min: 10, Max: 35},
		},
	}
}
