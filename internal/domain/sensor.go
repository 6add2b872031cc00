package domain

import "time"

// SensorReading is one time-series sample from a sensor on an asset,
// keyed by (time, asset_id, sensor_id).
type SensorReading struct {
	Time       time.Time `json:"time"`
	AssetID    string    `json:"asset_id"`
	SensorID   string    `json:"sensor_id"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	VibrationX  *float64 `json:"vibration_x,omitempty"`
	VibrationY  *float64 `json:"vibration_y,omitempty"`
	VibrationZ  *float64 `json:"vibration_z,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Power       *float64 `json:"power,omitempty"`
	Custom      *float64 `json:"custom,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Quality     int      `json:"quality,omitempty"`
}

// Field returns the named metric value, nil when absent.
func (r *SensorReading) Field(sensorType string) *float64 {
	switch sensorType {
	case SensorTemperature:
		return r.Temperature
	case SensorHumidity:
		return r.Humidity
	case SensorVibrationX:
		return r.VibrationX
	case SensorVibrationY:
		return r.VibrationY
	case SensorVibrationZ:
		return r.VibrationZ
	case SensorPressure:
		return r.Pressure
	case SensorPower:
		return r.Power
	case SensorCustom:
		return r.Custom
	}
	return nil
}

// Known sensor types evaluated against thresholds.
const (
	SensorTemperature = "temperature"
	SensorHumidity    = "humidity"
	SensorVibrationX  = "vibration_x"
	SensorVibrationY  = "vibration_y"
	SensorVibrationZ  = "vibration_z"
	SensorPressure    = "pressure"
	SensorPower       = "power"
	SensorCustom      = "custom"
)

// SensorTypes lists every threshold-evaluable metric.
var SensorTypes = []string{
	SensorTemperature, SensorHumidity, SensorVibrationX, SensorVibrationY,
	SensorVibrationZ, SensorPressure, SensorPower, SensorCustom,
}

// SensorThreshold defines the critical and warning bands for one sensor
// type on one asset.
type SensorThreshold struct {
	ID           string    `json:"id"`
	AssetID      string    `json:"asset_id"`
	SensorType   string    `json:"sensor_type"`
	MinValue     *float64  `json:"min_value,omitempty"`
	MaxValue     *float64  `json:"max_value,omitempty"`
	WarningMin   *float64  `json:"warning_min,omitempty"`
	WarningMax   *float64  `json:"warning_max,omitempty"`
	AlertEnabled bool      `json:"alert_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// AlertSeverity classifies a threshold breach.
type AlertSeverity string

const (
	SeverityNormal   AlertSeverity = "normal"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the lifecycle state of a sensor alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// SensorAlert records a threshold breach with its ack/resolve lifecycle.
type SensorAlert struct {
	ID              string        `json:"id"`
	AssetID         string        `json:"asset_id"`
	SensorID        string        `json:"sensor_id"`
	ThresholdID     string        `json:"threshold_id"`
	Severity        AlertSeverity `json:"severity"`
	SensorValue     float64       `json:"sensor_value"`
	Status          AlertStatus   `json:"status"`
	AcknowledgedBy  string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedBy      string        `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
