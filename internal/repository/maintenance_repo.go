package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// MaintenanceRepository is the SQL gateway for maintenance records.
type MaintenanceRepository struct{}

// NewMaintenanceRepository creates a MaintenanceRepository.
func NewMaintenanceRepository() *MaintenanceRepository { return &MaintenanceRepository{} }

const maintenanceColumns = `id, asset_id, title, scheduled_date,
	technician_id, status, completed_at, cost, notes, created_at`

// Create inserts a maintenance record.
func (r *MaintenanceRepository) Create(ctx context.Context, q database.Querier, m *domain.MaintenanceRecord) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MaintenanceScheduled
	}
	m.CreatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO maintenance_records (`+maintenanceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.AssetID, m.Title, m.ScheduledDate, nullStr(m.TechnicianID),
		m.Status, nullTime(m.CompletedAt), m.Cost, nullStr(m.Notes), m.CreatedAt)
	if err != nil {
		return translate("maintenance.create", err)
	}
	return nil
}

// GetByID fetches one maintenance record.
func (r *MaintenanceRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.MaintenanceRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenance_records WHERE id=$1`, id)
	m, err := scanMaintenance(row)
	if err != nil {
		return nil, notFoundOr("maintenance.get", "maintenance_record", id, err)
	}
	return m, nil
}

// List returns maintenance records, soonest scheduled first.
func (r *MaintenanceRepository) List(ctx context.Context, q database.Querier, assetID string, page Page) ([]*domain.MaintenanceRecord, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenance_records
		WHERE ($1 = '' OR asset_id = $1)
		ORDER BY scheduled_date LIMIT $2 OFFSET $3`,
		assetID, page.Size, page.Offset())
	if err != nil {
		return nil, translate("maintenance.list", err)
	}
	defer rows.Close()
	return collectMaintenance(rows)
}

// ListDueOn returns open records scheduled exactly on the given UTC day.
func (r *MaintenanceRepository) ListDueOn(ctx context.Context, q database.Querier, day time.Time) ([]*domain.MaintenanceRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	rows, err := q.QueryContext(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenance_records
		WHERE scheduled_date >= $1 AND scheduled_date < $2
		  AND status NOT IN ($3, $4)`,
		start, end, domain.MaintenanceCompleted, domain.MaintenanceCancelled)
	if err != nil {
		return nil, translate("maintenance.due_on", err)
	}
	defer rows.Close()
	return collectMaintenance(rows)
}

// UpdateStatusGuarded flips the record status guarded by the current one.
func (r *MaintenanceRepository) UpdateStatusGuarded(ctx context.Context, q database.Querier, m *domain.MaintenanceRecord, expected string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE maintenance_records
		SET status=$3, completed_at=$4, cost=$5, notes=$6
		WHERE id=$1 AND status=$2`,
		m.ID, expected, m.Status, nullTime(m.CompletedAt), m.Cost, nullStr(m.Notes))
	if err != nil {
		return translate("maintenance.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("maintenance_state",
			"maintenance record "+m.ID+" is no longer "+expected)
	}
	return nil
}

func collectMaintenance(rows interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}) ([]*domain.MaintenanceRecord, error) {
	var out []*domain.MaintenanceRecord
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, translate("maintenance.scan", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMaintenance(s scanner) (*domain.MaintenanceRecord, error) {
	m := &domain.MaintenanceRecord{}
	var tech, notes stringOrNull
	var completed nullTimeCol
	err := s.Scan(&m.ID, &m.AssetID, &m.Title, &m.ScheduledDate, &tech,
		&m.Status, &completed, &m.Cost, &notes, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.TechnicianID = tech.String
	m.CompletedAt = completed.Ptr()
	m.Notes = notes.String
	return m, nil
}
