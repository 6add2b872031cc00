package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingStatus is the workflow state of a billing period.
type BillingStatus string

const (
	BillingDraft           BillingStatus = "draft"
	BillingCalculated      BillingStatus = "calculated"
	BillingPendingApproval BillingStatus = "pending_approval"
	BillingApproved        BillingStatus = "approved"
	BillingInvoiced        BillingStatus = "invoiced"
	BillingPaid            BillingStatus = "paid"
	BillingDisputed        BillingStatus = "disputed"
)

// RateSnapshot is the rate model frozen onto a billing period at
// calculation time. Later rate changes never alter calculated periods.
type RateSnapshot struct {
	HourlyRate            decimal.Decimal `json:"hourly_rate"`
	MinimumHours          decimal.Decimal `json:"minimum_hours"`
	OvertimeMultiplier    decimal.Decimal `json:"overtime_multiplier"`
	StandbyMultiplier     decimal.Decimal `json:"standby_multiplier"`
	BreakdownPenaltyDaily decimal.Decimal `json:"breakdown_penalty_per_day"`
}

// BillingPeriod aggregates approved timesheets for a rental over
// [PeriodStart, PeriodEnd] into an invoiceable total.
type BillingPeriod struct {
	ID          string        `json:"id"`
	RentalID    string        `json:"rental_id"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	Status      BillingStatus `json:"status"`

	// Accumulated hours from approved timesheets.
	OperatingHours decimal.Decimal `json:"operating_hours"`
	StandbyHours   decimal.Decimal `json:"standby_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	BreakdownHours decimal.Decimal `json:"breakdown_hours"`

	Rate RateSnapshot `json:"rate"`

	// Computed amounts, in calculation order.
	BillableHours    decimal.Decimal `json:"billable_hours"`
	ShortfallHours   decimal.Decimal `json:"shortfall_hours"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	StandbyAmount    decimal.Decimal `json:"standby_amount"`
	OvertimeAmount   decimal.Decimal `json:"overtime_amount"`
	BreakdownPenalty decimal.Decimal `json:"breakdown_penalty"`
	Mobilization     decimal.Decimal `json:"mobilization"`
	Demobilization   decimal.Decimal `json:"demobilization"`
	OtherCharges     decimal.Decimal `json:"other_charges"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountPercent  decimal.Decimal `json:"discount_percentage"`
	Discount         decimal.Decimal `json:"discount"`
	TaxPercent       decimal.Decimal `json:"tax_percentage"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`

	InvoiceNumber string     `json:"invoice_number,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ApproverID    string     `json:"approver_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
