// Package billing turns approved timesheet hours into invoiceable billing
// periods. The calculator is pure; the service owns persistence and the
// billing workflow.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/repository"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultTaxPercent applies when the caller does not override the rate.
	DefaultTaxPercent = decimal.NewFromInt(11)
)

// Charges are the manually entered amounts layered on top of the
// hour-driven calculation.
type Charges struct {
	Mobilization    decimal.Decimal  `json:"mobilization"`
	Demobilization  decimal.Decimal  `json:"demobilization"`
	OtherCharges    decimal.Decimal  `json:"other_charges"`
	DiscountPercent decimal.Decimal  `json:"discount_percentage"`
	TaxPercent      *decimal.Decimal `json:"tax_percentage"`
}

// Calculate fills the computed fields of a billing period from its
// accumulated hours, rate snapshot and manual charges. Each line depends
// only on lines above it:
//
//	billable  = max(operating, minimum)
//	shortfall = billable - operating
//	base      = billable x hourly
//	standby   = standby_hours x hourly x standby_mult
//	overtime  = overtime_hours x hourly x overtime_mult
//	breakdown = (breakdown_hours / 8) x daily_penalty
//	subtotal  = base + standby + overtime - breakdown + mob + demob + other
//	discount  = subtotal x discount% / 100
//	tax       = (subtotal - discount) x tax% / 100
//	total     = subtotal - discount + tax
func Calculate(b *domain.BillingPeriod, hours *repository.HoursTotals, rate domain.RateSnapshot, charges Charges) {
	b.OperatingHours = hours.Operating
	b.StandbyHours = hours.Standby
	b.OvertimeHours = hours.Overtime
	b.BreakdownHours = hours.Breakdown
	b.Rate = rate

	b.BillableHours = hours.Operating
	if b.BillableHours.LessThan(rate.MinimumHours) {
		b.BillableHours = rate.MinimumHours
	}
	b.ShortfallHours = b.BillableHours.Sub(hours.Operating)

	b.BaseAmount = b.BillableHours.Mul(rate.HourlyRate)
	b.StandbyAmount = hours.Standby.Mul(rate.HourlyRate).Mul(rate.StandbyMultiplier)
	b.OvertimeAmount = hours.Overtime.Mul(rate.HourlyRate).Mul(rate.OvertimeMultiplier)

	breakdownDays := hours.Breakdown.Div(domain.StandardDayHours)
	b.BreakdownPenalty = breakdownDays.Mul(rate.BreakdownPenaltyDaily)

	b.Mobilization = charges.Mobilization
	b.Demobilization = charges.Demobilization
	b.OtherCharges = charges.OtherCharges

	b.Subtotal = b.BaseAmount.
		Add(b.StandbyAmount).
		Add(b.OvertimeAmount).
		Sub(b.BreakdownPenalty).
		Add(b.Mobilization).
		Add(b.Demobilization).
		Add(b.OtherCharges)

	b.DiscountPercent = charges.DiscountPercent
	b.Discount = b.Subtotal.Mul(b.DiscountPercent).Div(hundred)

	b.TaxPercent = DefaultTaxPercent
	if charges.TaxPercent != nil {
		b.TaxPercent = *charges.TaxPercent
	}
	b.Tax = b.Subtotal.Sub(b.Discount).Mul(b.TaxPercent).Div(hundred)

	b.Total = b.Subtotal.Sub(b.Discount).Add(b.Tax)
}
