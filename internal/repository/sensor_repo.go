package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// SensorRepository is the SQL gateway for readings, thresholds and alerts.
type SensorRepository struct{}

// NewSensorRepository creates a SensorRepository.
func NewSensorRepository() *SensorRepository { return &SensorRepository{} }

// InsertReading persists one time-series sample.
func (r *SensorRepository) InsertReading(ctx context.Context, q database.Querier, rd *domain.SensorReading) error {
	if rd.Time.IsZero() {
		rd.Time = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO sensor_readings
			(time, asset_id, sensor_id, temperature, humidity, vibration_x,
			 vibration_y, vibration_z, pressure, power, custom, unit, quality)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rd.Time, rd.AssetID, rd.SensorID, nullF64(rd.Temperature),
		nullF64(rd.Humidity), nullF64(rd.VibrationX), nullF64(rd.VibrationY),
		nullF64(rd.VibrationZ), nullF64(rd.Pressure), nullF64(rd.Power),
		nullF64(rd.Custom), nullStr(rd.Unit), rd.Quality)
	if err != nil {
		return translate("sensor.reading.insert", err)
	}
	return nil
}

// ListReadings returns recent readings for an asset, newest first.
func (r *SensorRepository) ListReadings(ctx context.Context, q database.Querier, assetID string, limit int) ([]*domain.SensorReading, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	rows, err := q.QueryContext(ctx, `
		SELECT time, asset_id, sensor_id, temperature, humidity, vibration_x,
		       vibration_y, vibration_z, pressure, power, custom, unit, quality
		FROM sensor_readings WHERE asset_id=$1
		ORDER BY time DESC LIMIT $2`, assetID, limit)
	if err != nil {
		return nil, translate("sensor.reading.list", err)
	}
	defer rows.Close()
	return collectReadings(rows)
}

// ListReadingsRange returns a sensor's readings over [start, end].
func (r *SensorRepository) ListReadingsRange(ctx context.Context, q database.Querier, assetID, sensorID string, start, end time.Time) ([]*domain.SensorReading, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT time, asset_id, sensor_id, temperature, humidity, vibration_x,
		       vibration_y, vibration_z, pressure, power, custom, unit, quality
		FROM sensor_readings
		WHERE asset_id=$1 AND sensor_id=$2 AND time >= $3 AND time <= $4
		ORDER BY time`, assetID, sensorID, start, end)
	if err != nil {
		return nil, translate("sensor.reading.range", err)
	}
	defer rows.Close()
	return collectReadings(rows)
}

// UpsertThreshold creates or replaces the threshold for (asset, sensor type).
func (r *SensorRepository) UpsertThreshold(ctx context.Context, q database.Querier, t *domain.SensorThreshold) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO sensor_thresholds
			(id, asset_id, sensor_type, min_value, max_value, warning_min,
			 warning_max, alert_enabled, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (asset_id, sensor_type) DO UPDATE SET
			min_value=EXCLUDED.min_value, max_value=EXCLUDED.max_value,
			warning_min=EXCLUDED.warning_min, warning_max=EXCLUDED.warning_max,
			alert_enabled=EXCLUDED.alert_enabled`,
		t.ID, t.AssetID, t.SensorType, nullF64(t.MinValue), nullF64(t.MaxValue),
		nullF64(t.WarningMin), nullF64(t.WarningMax), t.AlertEnabled, t.CreatedAt)
	if err != nil {
		return translate("sensor.threshold.upsert", err)
	}
	return nil
}

// ListThresholds returns the thresholds configured for an asset.
func (r *SensorRepository) ListThresholds(ctx context.Context, q database.Querier, assetID string) ([]*domain.SensorThreshold, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, sensor_type, min_value, max_value, warning_min,
		       warning_max, alert_enabled, created_at
		FROM sensor_thresholds WHERE asset_id=$1`, assetID)
	if err != nil {
		return nil, translate("sensor.threshold.list", err)
	}
	defer rows.Close()

	var out []*domain.SensorThreshold
	for rows.Next() {
		t := &domain.SensorThreshold{}
		var minV, maxV, warnMin, warnMax sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.AssetID, &t.SensorType, &minV, &maxV,
			&warnMin, &warnMax, &t.AlertEnabled, &t.CreatedAt); err != nil {
			return nil, translate("sensor.threshold.scan", err)
		}
		t.MinValue = f64Ptr(minV)
		t.MaxValue = f64Ptr(maxV)
		t.WarningMin = f64Ptr(warnMin)
		t.WarningMax = f64Ptr(warnMax)
		out = append(out, t)
	}
	return out, rows.Err()
}

// LastAlertAt returns the creation time of the most recent alert of the
// given severity for (asset, sensor, threshold). Used by the suppression
// window; sql.ErrNoRows maps to ok=false.
func (r *SensorRepository) LastAlertAt(ctx context.Context, q database.Querier, assetID, sensorID, thresholdID string, severity domain.AlertSeverity) (time.Time, bool, error) {
	var at time.Time
	err := q.QueryRowContext(ctx, `
		SELECT created_at FROM sensor_alerts
		WHERE asset_id=$1 AND sensor_id=$2 AND threshold_id=$3 AND severity=$4
		ORDER BY created_at DESC LIMIT 1`,
		assetID, sensorID, thresholdID, string(severity)).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, translate("sensor.alert.last", err)
	}
	return at, true, nil
}

// InsertAlert records a new active alert.
func (r *SensorRepository) InsertAlert(ctx context.Context, q database.Querier, a *domain.SensorAlert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO sensor_alerts
			(id, asset_id, sensor_id, threshold_id, severity, sensor_value,
			 status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.AssetID, a.SensorID, a.ThresholdID, string(a.Severity),
		a.SensorValue, string(a.Status), a.CreatedAt)
	if err != nil {
		return translate("sensor.alert.insert", err)
	}
	return nil
}

// GetAlert fetches one alert.
func (r *SensorRepository) GetAlert(ctx context.Context, q database.Querier, id string) (*domain.SensorAlert, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, asset_id, sensor_id, threshold_id, severity, sensor_value,
		       status, acknowledged_by, acknowledged_at, resolved_by,
		       resolved_at, resolution_notes, created_at
		FROM sensor_alerts WHERE id=$1`, id)
	a, err := scanAlert(row)
	if err != nil {
		return nil, notFoundOr("sensor.alert.get", "sensor_alert", id, err)
	}
	return a, nil
}

// ListAlerts returns alerts, newest first, optionally filtered by status.
func (r *SensorRepository) ListAlerts(ctx context.Context, q database.Querier, status domain.AlertStatus, page Page) ([]*domain.SensorAlert, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, sensor_id, threshold_id, severity, sensor_value,
		       status, acknowledged_by, acknowledged_at, resolved_by,
		       resolved_at, resolution_notes, created_at
		FROM sensor_alerts WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), page.Size, page.Offset())
	if err != nil {
		return nil, translate("sensor.alert.list", err)
	}
	defer rows.Close()

	var out []*domain.SensorAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, translate("sensor.alert.scan", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAlertGuarded rewrites the alert lifecycle fields guarded by the
// expected current status.
func (r *SensorRepository) UpdateAlertGuarded(ctx context.Context, q database.Querier, a *domain.SensorAlert, expected domain.AlertStatus) error {
	res, err := q.ExecContext(ctx, `
		UPDATE sensor_alerts SET status=$3, acknowledged_by=$4,
			acknowledged_at=$5, resolved_by=$6, resolved_at=$7,
			resolution_notes=$8
		WHERE id=$1 AND status=$2`,
		a.ID, string(expected), string(a.Status), nullStr(a.AcknowledgedBy),
		nullTime(a.AcknowledgedAt), nullStr(a.ResolvedBy),
		nullTime(a.ResolvedAt), nullStr(a.ResolutionNotes))
	if err != nil {
		return translate("sensor.alert.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("alert_state",
			"alert "+a.ID+" is no longer "+string(expected))
	}
	return nil
}

func collectReadings(rows *sql.Rows) ([]*domain.SensorReading, error) {
	var out []*domain.SensorReading
	for rows.Next() {
		rd := &domain.SensorReading{}
		var temp, hum, vx, vy, vz, press, power, custom sql.NullFloat64
		var unit stringOrNull
		if err := rows.Scan(&rd.Time, &rd.AssetID, &rd.SensorID, &temp, &hum,
			&vx, &vy, &vz, &press, &power, &custom, &unit, &rd.Quality); err != nil {
			return nil, translate("sensor.reading.scan", err)
		}
		rd.Temperature = f64Ptr(temp)
		rd.Humidity = f64Ptr(hum)
		rd.VibrationX = f64Ptr(vx)
		rd.VibrationY = f64Ptr(vy)
		rd.VibrationZ = f64Ptr(vz)
		rd.Pressure = f64Ptr(press)
		rd.Power = f64Ptr(power)
		rd.Custom = f64Ptr(custom)
		rd.Unit = unit.String
		out = append(out, rd)
	}
	return out, rows.Err()
}

func scanAlert(s scanner) (*domain.SensorAlert, error) {
	a := &domain.SensorAlert{}
	var severity, status string
	var ackBy, resBy, notes stringOrNull
	var ackAt, resAt nullTimeCol
	err := s.Scan(&a.ID, &a.AssetID, &a.SensorID, &a.ThresholdID, &severity,
		&a.SensorValue, &status, &ackBy, &ackAt, &resBy, &resAt, &notes,
		&a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Severity = domain.AlertSeverity(severity)
	a.Status = domain.AlertStatus(status)
	a.AcknowledgedBy = ackBy.String
	a.AcknowledgedAt = ackAt.Ptr()
	a.ResolvedBy = resBy.String
	a.ResolvedAt = resAt.Ptr()
	a.ResolutionNotes = notes.String
	return a, nil
}
