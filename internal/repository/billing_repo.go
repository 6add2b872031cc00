package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// BillingRepository is the SQL gateway for billing periods.
type BillingRepository struct{}

// NewBillingRepository creates a BillingRepository.
func NewBillingRepository() *BillingRepository { return &BillingRepository{} }

const billingColumns = `id, rental_id, period_start, period_end, status,
	operating_hours, standby_hours, overtime_hours, breakdown_hours,
	rate_hourly, rate_minimum_hours, rate_overtime_mult, rate_standby_mult,
	rate_breakdown_penalty, billable_hours, shortfall_hours, base_amount,
	standby_amount, overtime_amount, breakdown_penalty, mobilization,
	demobilization, other_charges, subtotal, discount_percentage, discount,
	tax_percentage, tax, total, invoice_number, due_date, approver_id,
	created_at, updated_at`

// Create inserts a billing period in Draft state.
func (r *BillingRepository) Create(ctx context.Context, q database.Querier, b *domain.BillingPeriod) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO billing_periods (`+billingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		        $18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34)`,
		b.ID, b.RentalID, b.PeriodStart, b.PeriodEnd, string(b.Status),
		b.OperatingHours, b.StandbyHours, b.OvertimeHours, b.BreakdownHours,
		b.Rate.HourlyRate, b.Rate.MinimumHours, b.Rate.OvertimeMultiplier,
		b.Rate.StandbyMultiplier, b.Rate.BreakdownPenaltyDaily,
		b.BillableHours, b.ShortfallHours, b.BaseAmount, b.StandbyAmount,
		b.OvertimeAmount, b.BreakdownPenalty, b.Mobilization,
		b.Demobilization, b.OtherCharges, b.Subtotal, b.DiscountPercent,
		b.Discount, b.TaxPercent, b.Tax, b.Total, nullStr(b.InvoiceNumber),
		nullTime(b.DueDate), nullStr(b.ApproverID), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return translate("billing.create", err)
	}
	return nil
}

// GetByID fetches one billing period.
func (r *BillingRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.BillingPeriod, error) {
	row := q.QueryRowContext(ctx, `SELECT `+billingColumns+` FROM billing_periods WHERE id=$1`, id)
	b, err := scanBilling(row)
	if err != nil {
		return nil, notFoundOr("billing.get", "billing_period", id, err)
	}
	return b, nil
}

// ListByRental returns a rental's billing periods, newest first.
func (r *BillingRepository) ListByRental(ctx context.Context, q database.Querier, rentalID string) ([]*domain.BillingPeriod, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+billingColumns+` FROM billing_periods
		WHERE rental_id=$1 ORDER BY period_start DESC`, rentalID)
	if err != nil {
		return nil, translate("billing.list", err)
	}
	defer rows.Close()

	var out []*domain.BillingPeriod
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, translate("billing.scan", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateGuarded rewrites the computed fields and status guarded by the
// expected current status.
func (r *BillingRepository) UpdateGuarded(ctx context.Context, q database.Querier, b *domain.BillingPeriod, expected domain.BillingStatus) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE billing_periods SET status=$3, operating_hours=$4,
			standby_hours=$5, overtime_hours=$6, breakdown_hours=$7,
			rate_hourly=$8, rate_minimum_hours=$9, rate_overtime_mult=$10,
			rate_standby_mult=$11, rate_breakdown_penalty=$12,
			billable_hours=$13, shortfall_hours=$14, base_amount=$15,
			standby_amount=$16, overtime_amount=$17, breakdown_penalty=$18,
			mobilization=$19, demobilization=$20, other_charges=$21,
			subtotal=$22, discount_percentage=$23, discount=$24,
			tax_percentage=$25, tax=$26, total=$27, invoice_number=$28,
			due_date=$29, approver_id=$30, updated_at=$31
		WHERE id=$1 AND status=$2`,
		b.ID, string(expected), string(b.Status), b.OperatingHours,
		b.StandbyHours, b.OvertimeHours, b.BreakdownHours,
		b.Rate.HourlyRate, b.Rate.MinimumHours, b.Rate.OvertimeMultiplier,
		b.Rate.StandbyMultiplier, b.Rate.BreakdownPenaltyDaily,
		b.BillableHours, b.ShortfallHours, b.BaseAmount, b.StandbyAmount,
		b.OvertimeAmount, b.BreakdownPenalty, b.Mobilization,
		b.Demobilization, b.OtherCharges, b.Subtotal, b.DiscountPercent,
		b.Discount, b.TaxPercent, b.Tax, b.Total, nullStr(b.InvoiceNumber),
		nullTime(b.DueDate), nullStr(b.ApproverID), b.UpdatedAt)
	if err != nil {
		return translate("billing.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("billing_state",
			"billing period "+b.ID+" is no longer "+string(expected))
	}
	return nil
}

func scanBilling(s scanner) (*domain.BillingPeriod, error) {
	b := &domain.BillingPeriod{}
	var status string
	var invoice, approver stringOrNull
	var due nullTimeCol
	err := s.Scan(&b.ID, &b.RentalID, &b.PeriodStart, &b.PeriodEnd, &status,
		&b.OperatingHours, &b.StandbyHours, &b.OvertimeHours,
		&b.BreakdownHours, &b.Rate.HourlyRate, &b.Rate.MinimumHours,
		&b.Rate.OvertimeMultiplier, &b.Rate.StandbyMultiplier,
		&b.Rate.BreakdownPenaltyDaily, &b.BillableHours, &b.ShortfallHours,
		&b.BaseAmount, &b.StandbyAmount, &b.OvertimeAmount,
		&b.BreakdownPenalty, &b.Mobilization, &b.Demobilization,
		&b.OtherCharges, &b.Subtotal, &b.DiscountPercent, &b.Discount,
		&b.TaxPercent, &b.Tax, &b.Total, &invoice, &due, &approver,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BillingStatus(status)
	b.InvoiceNumber = invoice.String
	b.DueDate = due.Ptr()
	b.ApproverID = approver.String
	return b, nil
}
