package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandardDayHours is the operating-hours floor above which overtime accrues.
var StandardDayHours = decimal.NewFromInt(8)

// TimesheetStatus is the 3-stage approval state of a rental timesheet.
type TimesheetStatus string

const (
	TimesheetDraft     TimesheetStatus = "draft"
	TimesheetSubmitted TimesheetStatus = "submitted"
	TimesheetVerified  TimesheetStatus = "verified"
	TimesheetApproved  TimesheetStatus = "approved"
	TimesheetRejected  TimesheetStatus = "rejected"
	TimesheetRevision  TimesheetStatus = "revision"
)

// RentalTimesheet records one work day on a rented asset. Overtime and
// hm/km usage are derived server-side, never trusted from the client.
type RentalTimesheet struct {
	ID              string           `json:"id"`
	RentalID        string           `json:"rental_id"`
	WorkDate        time.Time        `json:"work_date"`
	OperatingHours  decimal.Decimal  `json:"operating_hours"`
	StandbyHours    decimal.Decimal  `json:"standby_hours"`
	OvertimeHours   decimal.Decimal  `json:"overtime_hours"`
	BreakdownHours  decimal.Decimal  `json:"breakdown_hours"`
	HmKmStart       *decimal.Decimal `json:"hm_km_start,omitempty"`
	HmKmEnd         *decimal.Decimal `json:"hm_km_end,omitempty"`
	HmKmUsage       *decimal.Decimal `json:"hm_km_usage,omitempty"`
	OperationStatus string           `json:"operation_status,omitempty"`
	Status          TimesheetStatus  `json:"status"`
	CheckerID       string           `json:"checker_id"`
	VerifierID      string           `json:"verifier_id,omitempty"`
	ClientPICID     string           `json:"client_pic_id,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Photos          []string         `json:"photos,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ComputeDerived fills overtime_hours and hm_km_usage from their inputs:
// overtime = max(operating - 8, 0); usage = end - start when both present.
func (t *RentalTimesheet) ComputeDerived() {
	ot := t.OperatingHours.Sub(StandardDayHours)
	if ot.IsNegative() {
		ot = decimal.Zero
	}
	t.OvertimeHours = ot

	if t.HmKmStart != nil && t.HmKmEnd != nil {
		usage := t.HmKmEnd.Sub(*t.HmKmStart)
		t.HmKmUsage = &usage
	}
}
