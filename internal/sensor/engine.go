// Package sensor ingests time-series readings and evaluates them against
// per-asset thresholds, raising alerts with a suppression window so a
// flapping sensor does not flood the alert table.
package sensor

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

var (
	readingsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assetflow_sensor_readings_total",
		Help: "Sensor readings ingested.",
	})
	alertsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assetflow_sensor_alerts_total",
		Help: "Sensor alerts raised, by severity.",
	}, []string{"severity"})
	alertsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assetflow_sensor_alerts_suppressed_total",
		Help: "Alerts suppressed by the delay window.",
	})
)

func init() {
	prometheus.MustRegister(readingsIngested, alertsRaised, alertsSuppressed)
}

// Engine ingests readings and runs threshold evaluation synchronously on
// each ingest.
type Engine struct {
	db         *database.DB
	sensors    *repository.SensorRepository
	emitter    events.Emitter
	alertDelay time.Duration
	logger     *log.Logger
	now        func() time.Time
}

// NewEngine creates the sensor engine. alertDelay is the minimum gap
// between two alerts of the same severity on the same threshold.
func NewEngine(db *database.DB, sensors *repository.SensorRepository, emitter events.Emitter, alertDelay time.Duration) *Engine {
	if alertDelay <= 0 {
		alertDelay = time.Minute
	}
	return &Engine{
		db:         db,
		sensors:    sensors,
		emitter:    emitter,
		alertDelay: alertDelay,
		logger:     log.New(log.Writer(), "[Sensors] ", log.LstdFlags),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecordReading persists one sample and evaluates every enabled threshold
// of the asset against it. Evaluation failures are logged, never returned:
// ingest must not fail because alerting did.
func (e *Engine) RecordReading(ctx context.Context, rd *domain.SensorReading) ([]*domain.SensorAlert, error) {
	if rd.AssetID == "" || rd.SensorID == "" {
		return nil, domain.ErrValidation("sensor_reading", "asset_id and sensor_id are required")
	}
	if err := e.sensors.InsertReading(ctx, e.db, rd); err != nil {
		return nil, err
	}
	readingsIngested.Inc()

	thresholds, err := e.sensors.ListThresholds(ctx, e.db, rd.AssetID)
	if err != nil {
		e.logger.Printf("threshold load failed for asset %s: %v", rd.AssetID, err)
		return nil, nil
	}

	var raised []*domain.SensorAlert
	for _, t := range thresholds {
		if !t.AlertEnabled {
			continue
		}
		value := rd.Field(t.SensorType)
		if value == nil {
			continue
		}
		severity := Evaluate(t, *value)
		if severity == domain.SeverityNormal {
			continue
		}
		alert, err := e.raise(ctx, rd, t, severity, *value)
		if err != nil {
			e.logger.Printf("alert raise failed for asset %s %s: %v",
				rd.AssetID, t.SensorType, err)
			continue
		}
		if alert != nil {
			raised = append(raised, alert)
		}
	}
	return raised, nil
}

// Evaluate classifies a value against a threshold. The critical band wins
// over the warning band.
func Evaluate(t *domain.SensorThreshold, value float64) domain.AlertSeverity {
	if (t.MinValue != nil && value < *t.MinValue) ||
		(t.MaxValue != nil && value > *t.MaxValue) {
		return domain.SeverityCritical
	}
	if (t.WarningMin != nil && value < *t.WarningMin) ||
		(t.WarningMax != nil && value > *t.WarningMax) {
		return domain.SeverityWarning
	}
	return domain.SeverityNormal
}

// raise records an alert unless one of the same severity fired on the same
// threshold inside the suppression window.
func (e *Engine) raise(ctx context.Context, rd *domain.SensorReading, t *domain.SensorThreshold, severity domain.AlertSeverity, value float64) (*domain.SensorAlert, error) {
	last, ok, err := e.sensors.LastAlertAt(ctx, e.db, rd.AssetID, rd.SensorID, t.ID, severity)
	if err != nil {
		return nil, err
	}
	if ok && e.now().Sub(last) < e.alertDelay {
		alertsSuppressed.Inc()
		return nil, nil
	}

	alert := &domain.SensorAlert{
		AssetID:     rd.AssetID,
		SensorID:    rd.SensorID,
		ThresholdID: t.ID,
		Severity:    severity,
		SensorValue: value,
		Status:      domain.AlertActive,
	}
	if err := e.sensors.InsertAlert(ctx, e.db, alert); err != nil {
		return nil, err
	}
	alertsRaised.WithLabelValues(string(severity)).Inc()
	e.emitter.Emit(events.TypeSensorAlert, alert.ID, map[string]any{
		"asset_id":    alert.AssetID,
		"sensor_id":   alert.SensorID,
		"sensor_type": t.SensorType,
		"severity":    string(severity),
		"value":       value,
	})
	return alert, nil
}

// Acknowledge marks an Active alert as seen.
func (e *Engine) Acknowledge(ctx context.Context, alertID string, claims *domain.UserClaims) (*domain.SensorAlert, error) {
	alert, err := e.sensors.GetAlert(ctx, e.db, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != domain.AlertActive {
		return nil, domain.ErrStateTransition(string(alert.Status), string(domain.AlertAcknowledged))
	}
	now := e.now()
	alert.Status = domain.AlertAcknowledged
	alert.AcknowledgedBy = claims.UserID
	alert.AcknowledgedAt = &now
	if err := e.sensors.UpdateAlertGuarded(ctx, e.db, alert, domain.AlertActive); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve closes an Active or Acknowledged alert with notes.
func (e *Engine) Resolve(ctx context.Context, alertID, notes string, claims *domain.UserClaims) (*domain.SensorAlert, error) {
	alert, err := e.sensors.GetAlert(ctx, e.db, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status != domain.AlertActive && alert.Status != domain.AlertAcknowledged {
		return nil, domain.ErrStateTransition(string(alert.Status), string(domain.AlertResolved))
	}
	expected := alert.Status
	now := e.now()
	alert.Status = domain.AlertResolved
	alert.ResolvedBy = claims.UserID
	alert.ResolvedAt = &now
	alert.ResolutionNotes = notes
	if err := e.sensors.UpdateAlertGuarded(ctx, e.db, alert, expected); err != nil {
		return nil, err
	}
	return alert, nil
}

// SetThreshold validates and stores the threshold for (asset, sensor type).
func (e *Engine) SetThreshold(ctx context.Context, t *domain.SensorThreshold) error {
	if !knownSensorType(t.SensorType) {
		return domain.ErrValidation("sensor_type", "unknown sensor type "+t.SensorType)
	}
	if t.MinValue != nil && t.MaxValue != nil && *t.MinValue > *t.MaxValue {
		return domain.ErrValidation("min_value", "must not exceed max_value")
	}
	if t.WarningMin != nil && t.WarningMax != nil && *t.WarningMin > *t.WarningMax {
		return domain.ErrValidation("warning_min", "must not exceed warning_max")
	}
	return e.sensors.UpsertThreshold(ctx, e.db, t)
}

// Thresholds returns an asset's configured thresholds.
func (e *Engine) Thresholds(ctx context.Context, assetID string) ([]*domain.SensorThreshold, error) {
	return e.sensors.ListThresholds(ctx, e.db, assetID)
}

// Readings returns recent readings for an asset.
func (e *Engine) Readings(ctx context.Context, assetID string, limit int) ([]*domain.SensorReading, error) {
	return e.sensors.ListReadings(ctx, e.db, assetID, limit)
}

// ReadingsRange returns one sensor's readings over a window.
func (e *Engine) ReadingsRange(ctx context.Context, assetID, sensorID string, start, end time.Time) ([]*domain.SensorReading, error) {
	return e.sensors.ListReadingsRange(ctx, e.db, assetID, sensorID, start, end)
}

// Alerts lists alerts, optionally by status.
func (e *Engine) Alerts(ctx context.Context, status domain.AlertStatus, page repository.Page) ([]*domain.SensorAlert, error) {
	return e.sensors.ListAlerts(ctx, e.db, status, page)
}

func knownSensorType(st string) bool {
	for _, known := range domain.SensorTypes {
		if st == known {
			return true
		}
	}
	return false
}
