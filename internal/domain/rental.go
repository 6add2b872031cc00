package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentalStatus is the workflow state of an external rental.
type RentalStatus string

const (
	RentalRequested RentalStatus = "requested"
	RentalApproved  RentalStatus = "approved"
	RentalRejected  RentalStatus = "rejected"
	RentalRentedOut RentalStatus = "rented_out"
	RentalReturned  RentalStatus = "returned"
	RentalOverdue   RentalStatus = "overdue"
	RentalCancelled RentalStatus = "cancelled"
)

// IsTerminal reports whether the rental can no longer move.
func (s RentalStatus) IsTerminal() bool {
	switch s {
	case RentalRejected, RentalReturned, RentalCancelled:
		return true
	}
	return false
}

// Rental is an external rental of an asset to a client, billed against a
// rate model through timesheets.
type Rental struct {
	ID           string          `json:"id"`
	RentalNumber string          `json:"rental_number"`
	AssetID      string          `json:"asset_id"`
	ClientID     string          `json:"client_id"`
	RateID       string          `json:"rate_id,omitempty"`
	OrgID        string          `json:"org_id,omitempty"`
	Status       RentalStatus    `json:"status"`
	RequestDate  time.Time       `json:"request_date"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	ExpectedEnd  *time.Time      `json:"expected_end,omitempty"`
	ActualEnd    *time.Time      `json:"actual_end,omitempty"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	TotalDays    int             `json:"total_days"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Deposit      decimal.Decimal `json:"deposit"`
	Penalty      decimal.Decimal `json:"penalty"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HandoverKind distinguishes the two documented transfer events.
type HandoverKind string

const (
	HandoverDispatch HandoverKind = "dispatch"
	HandoverReturn   HandoverKind = "return"
)

// RentalHandover documents a dispatch or return transfer, carrying the
// recorded condition and any damage evidence.
type RentalHandover struct {
	ID              string       `json:"id"`
	RentalID        string       `json:"rental_id"`
	Kind            HandoverKind `json:"kind"`
	ConditionRating int          `json:"condition_rating"`
	Photos          []string     `json:"photos,omitempty"`
	HasDamage       bool         `json:"has_damage"`
	RecordedBy      string       `json:"recorded_by"`
	Signature       string       `json:"signature,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// RentalRate is the rate model a rental bills against. A snapshot of these
// values is frozen onto each billing period at calculation time.
type RentalRate struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	HourlyRate            decimal.Decimal `json:"hourly_rate"`
	MinimumHours          decimal.Decimal `json:"minimum_hours"`
	OvertimeMultiplier    decimal.Decimal `json:"overtime_multiplier"`
	StandbyMultiplier     decimal.Decimal `json:"standby_multiplier"`
	BreakdownPenaltyDaily decimal.Decimal `json:"breakdown_penalty_per_day"`
	CreatedAt             time.Time       `json:"created_at"`
}
