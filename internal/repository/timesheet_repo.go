package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// TimesheetRepository is the SQL gateway for rental timesheets.
type TimesheetRepository struct{}

// NewTimesheetRepository creates a TimesheetRepository.
func NewTimesheetRepository() *TimesheetRepository { return &TimesheetRepository{} }

const timesheetColumns = `id, rental_id, work_date, operating_hours,
	standby_hours, overtime_hours, breakdown_hours, hm_km_start, hm_km_end,
	hm_km_usage, operation_status, status, checker_id, verifier_id,
	client_pic_id, notes, photos, created_at, updated_at`

// Create inserts a timesheet in Draft state.
func (r *TimesheetRepository) Create(ctx context.Context, q database.Querier, t *domain.RentalTimesheet) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO rental_timesheets (`+timesheetColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		t.ID, t.RentalID, t.WorkDate, t.OperatingHours, t.StandbyHours,
		t.OvertimeHours, t.BreakdownHours, decPtr(t.HmKmStart),
		decPtr(t.HmKmEnd), decPtr(t.HmKmUsage), nullStr(t.OperationStatus),
		string(t.Status), t.CheckerID, nullStr(t.VerifierID),
		nullStr(t.ClientPICID), nullStr(t.Notes), pq.Array(t.Photos),
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return translate("timesheet.create", err)
	}
	return nil
}

// GetByID fetches one timesheet.
func (r *TimesheetRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.RentalTimesheet, error) {
	row := q.QueryRowContext(ctx, `SELECT `+timesheetColumns+` FROM rental_timesheets WHERE id=$1`, id)
	t, err := scanTimesheet(row)
	if err != nil {
		return nil, notFoundOr("timesheet.get", "timesheet", id, err)
	}
	return t, nil
}

// ListByRental returns a rental's timesheets ordered by work date.
func (r *TimesheetRepository) ListByRental(ctx context.Context, q database.Querier, rentalID string, page Page) ([]*domain.RentalTimesheet, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+timesheetColumns+` FROM rental_timesheets
		WHERE rental_id=$1 ORDER BY work_date LIMIT $2 OFFSET $3`,
		rentalID, page.Size, page.Offset())
	if err != nil {
		return nil, translate("timesheet.list", err)
	}
	defer rows.Close()

	var out []*domain.RentalTimesheet
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, translate("timesheet.scan", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateGuarded rewrites timesheet fields guarded by the expected status.
func (r *TimesheetRepository) UpdateGuarded(ctx context.Context, q database.Querier, t *domain.RentalTimesheet, expected domain.TimesheetStatus) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE rental_timesheets SET work_date=$3, operating_hours=$4,
			standby_hours=$5, overtime_hours=$6, breakdown_hours=$7,
			hm_km_start=$8, hm_km_end=$9, hm_km_usage=$10,
			operation_status=$11, status=$12, verifier_id=$13,
			client_pic_id=$14, notes=$15, photos=$16, updated_at=$17
		WHERE id=$1 AND status=$2`,
		t.ID, string(expected), t.WorkDate, t.OperatingHours, t.StandbyHours,
		t.OvertimeHours, t.BreakdownHours, decPtr(t.HmKmStart),
		decPtr(t.HmKmEnd), decPtr(t.HmKmUsage), nullStr(t.OperationStatus),
		string(t.Status), nullStr(t.VerifierID), nullStr(t.ClientPICID),
		nullStr(t.Notes), pq.Array(t.Photos), t.UpdatedAt)
	if err != nil {
		return translate("timesheet.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("timesheet_state",
			"timesheet "+t.ID+" is no longer "+string(expected))
	}
	return nil
}

// HoursTotals is the aggregate of approved timesheet hours over a period.
type HoursTotals struct {
	Operating decimal.Decimal
	Standby   decimal.Decimal
	Overtime  decimal.Decimal
	Breakdown decimal.Decimal
}

// SumApproved totals hours of Approved timesheets whose work date falls
// inside [start, end]. Only approved sheets count toward billing.
func (r *TimesheetRepository) SumApproved(ctx context.Context, q database.Querier, rentalID string, start, end time.Time) (*HoursTotals, error) {
	totals := &HoursTotals{}
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(operating_hours), 0),
		       COALESCE(SUM(standby_hours), 0),
		       COALESCE(SUM(overtime_hours), 0),
		       COALESCE(SUM(breakdown_hours), 0)
		FROM rental_timesheets
		WHERE rental_id=$1 AND status=$2 AND work_date >= $3 AND work_date <= $4`,
		rentalID, string(domain.TimesheetApproved), start, end).
		Scan(&totals.Operating, &totals.Standby, &totals.Overtime, &totals.Breakdown)
	if err != nil {
		return nil, translate("timesheet.sum_approved", err)
	}
	return totals, nil
}

func decPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func scanTimesheet(s scanner) (*domain.RentalTimesheet, error) {
	t := &domain.RentalTimesheet{}
	var opStatus, verifier, pic, notes stringOrNull
	var status string
	var hmStart, hmEnd, hmUsage decimal.NullDecimal
	err := s.Scan(&t.ID, &t.RentalID, &t.WorkDate, &t.OperatingHours,
		&t.StandbyHours, &t.OvertimeHours, &t.BreakdownHours,
		&hmStart, &hmEnd, &hmUsage, &opStatus, &status, &t.CheckerID,
		&verifier, &pic, &notes, pq.Array(&t.Photos),
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.OperationStatus = opStatus.String
	t.Status = domain.TimesheetStatus(status)
	t.VerifierID = verifier.String
	t.ClientPICID = pic.String
	t.Notes = notes.String
	if hmStart.Valid {
		t.HmKmStart = &hmStart.Decimal
	}
	if hmEnd.Valid {
		t.HmKmEnd = &hmEnd.Decimal
	}
	if hmUsage.Valid {
		t.HmKmUsage = &hmUsage.Decimal
	}
	return t, nil
}
