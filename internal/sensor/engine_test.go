package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

func f(v float64) *float64 { return &v }

func tempThreshold() *domain.SensorThreshold {
	return &domain.SensorThreshold{
		SensorType: domain.SensorTemperature,
		MinValue:   f(10),
		MaxValue:   f(30),
		WarningMin: f(15),
		WarningMax: f(25),
	}
}

func TestEvaluate_CriticalAboveMax(t *testing.T) {
	assert.Equal(t, domain.SeverityCritical, Evaluate(tempThreshold(), 35))
}

func TestEvaluate_CriticalBelowMin(t *testing.T) {
	assert.Equal(t, domain.SeverityCritical, Evaluate(tempThreshold(), 5))
}

func TestEvaluate_WarningBand(t *testing.T) {
	assert.Equal(t, domain.SeverityWarning, Evaluate(tempThreshold(), 27))
	assert.Equal(t, domain.SeverityWarning, Evaluate(tempThreshold(), 12))
}

func TestEvaluate_Normal(t *testing.T) {
	assert.Equal(t, domain.SeverityNormal, Evaluate(tempThreshold(), 20))
}

func TestEvaluate_BoundariesAreInclusive(t *testing.T) {
	// Values on the limits stay within the band.
	assert.Equal(t, domain.SeverityNormal, Evaluate(tempThreshold(), 15))
	assert.Equal(t, domain.SeverityNormal, Evaluate(tempThreshold(), 25))
	assert.Equal(t, domain.SeverityWarning, Evaluate(tempThreshold(), 30))
	assert.Equal(t, domain.SeverityWarning, Evaluate(tempThreshold(), 10))
}

func TestEvaluate_CriticalBandOnly(t *testing.T) {
	threshold := &domain.SensorThreshold{
		SensorType: domain.SensorPressure,
		MinValue:   f(1),
		MaxValue:   f(9),
	}
	assert.Equal(t, domain.SeverityCritical, Evaluate(threshold, 10))
	assert.Equal(t, domain.SeverityNormal, Evaluate(threshold, 5))
}

func TestEvaluate_NoBandsMeansNormal(t *testing.T) {
	threshold := &domain.SensorThreshold{SensorType: domain.SensorCustom}
	assert.Equal(t, domain.SeverityNormal, Evaluate(threshold, 9999))
}

func newEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewEngine(database.Wrap(pool), repository.NewSensorRepository(),
		events.NewBus(), time.Minute), mock
}

func thresholdRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "asset_id", "sensor_type", "min_value", "max_value",
		"warning_min", "warning_max", "alert_enabled", "created_at",
	}).AddRow("t-1", "a-1", domain.SensorTemperature, 10.0, 30.0,
		15.0, 25.0, true, time.Now().UTC())
}

func tempReading(value float64) *domain.SensorReading {
	return &domain.SensorReading{AssetID: "a-1", SensorID: "s-1", Temperature: f(value)}
}

func TestRecordReading_SecondBreachWithinWindowIsSuppressed(t *testing.T) {
	eng, mock := newEngine(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO sensor_readings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM sensor_thresholds`).
		WithArgs("a-1").
		WillReturnRows(thresholdRow())
	// An alert of the same severity fired 30 seconds ago.
	mock.ExpectQuery(`FROM sensor_alerts`).
		WithArgs("a-1", "s-1", "t-1", "critical").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).
			AddRow(now.Add(-30 * time.Second)))

	alerts, err := eng.RecordReading(context.Background(), tempReading(35))
	require.NoError(t, err)
	assert.Empty(t, alerts, "breach inside the window must not raise")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReading_RaisesAgainAfterWindowElapsed(t *testing.T) {
	eng, mock := newEngine(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO sensor_readings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM sensor_thresholds`).
		WithArgs("a-1").
		WillReturnRows(thresholdRow())
	mock.ExpectQuery(`FROM sensor_alerts`).
		WithArgs("a-1", "s-1", "t-1", "critical").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).
			AddRow(now.Add(-2 * time.Minute)))
	mock.ExpectExec(`INSERT INTO sensor_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alerts, err := eng.RecordReading(context.Background(), tempReading(35))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, domain.AlertActive, alerts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReading_FirstBreachRaises(t *testing.T) {
	eng, mock := newEngine(t)

	mock.ExpectExec(`INSERT INTO sensor_readings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM sensor_thresholds`).
		WithArgs("a-1").
		WillReturnRows(thresholdRow())
	mock.ExpectQuery(`FROM sensor_alerts`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectExec(`INSERT INTO sensor_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	alerts, err := eng.RecordReading(context.Background(), tempReading(27))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
