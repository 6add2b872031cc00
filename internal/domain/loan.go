package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the workflow state of an internal asset loan.
type LoanStatus string

const (
	LoanRequested  LoanStatus = "requested"
	LoanApproved   LoanStatus = "approved"
	LoanRejected   LoanStatus = "rejected"
	LoanCheckedOut LoanStatus = "checked_out"
	LoanInUse      LoanStatus = "in_use"
	LoanOverdue    LoanStatus = "overdue"
	LoanReturned   LoanStatus = "returned"
	LoanDamaged    LoanStatus = "damaged"
	LoanLost       LoanStatus = "lost"
)

// IsTerminal reports whether the loan can no longer move.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanRejected, LoanReturned, LoanDamaged, LoanLost:
		return true
	}
	return false
}

// IsOut reports whether the asset is physically with the borrower.
func (s LoanStatus) IsOut() bool {
	return s == LoanCheckedOut || s == LoanInUse || s == LoanOverdue
}

// Loan is an internal loan of an asset to an employee.
type Loan struct {
	ID              string          `json:"id"`
	LoanNumber      string          `json:"loan_number"`
	AssetID         string          `json:"asset_id"`
	BorrowerID      string          `json:"borrower_id"`
	ApproverID      string          `json:"approver_id,omitempty"`
	OrgID           string          `json:"org_id,omitempty"`
	Status          LoanStatus      `json:"status"`
	LoanDate        time.Time       `json:"loan_date"`
	ExpectedReturn  time.Time       `json:"expected_return"`
	ActualReturn    *time.Time      `json:"actual_return,omitempty"`
	ConditionBefore string          `json:"condition_before,omitempty"`
	ConditionAfter  string          `json:"condition_after,omitempty"`
	DamageNotes     string          `json:"damage_notes,omitempty"`
	TermsAccepted   bool            `json:"terms_accepted"`
	Deposit         decimal.Decimal `json:"deposit"`
	Penalty         decimal.Decimal `json:"penalty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DaysOverdue returns how many whole days past the expected return the
// loan is at the given instant, zero when not overdue.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.Status.IsOut() {
		return 0
	}
	days := int(now.Sub(l.ExpectedReturn).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
