package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is the unit of tracking: a physical or logical item with a
// lifecycle. Status is only mutated through the lifecycle FSM.
type Asset struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	CategoryID     string          `json:"category_id,omitempty"`
	LocationID     string          `json:"location_id,omitempty"`
	DepartmentID   string          `json:"department_id,omitempty"`
	AssigneeID     string          `json:"assignee_id,omitempty"`
	VendorID       string          `json:"vendor_id,omitempty"`
	OrgID          string          `json:"org_id,omitempty"`
	Status         AssetState      `json:"status"`
	Condition      string          `json:"condition,omitempty"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	Model          string          `json:"model,omitempty"`
	Year           int             `json:"year,omitempty"`
	Specifications map[string]any  `json:"specifications,omitempty"`
	PurchaseDate   *time.Time      `json:"purchase_date,omitempty"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	Currency       string          `json:"currency,omitempty"`
	Quantity       int             `json:"quantity"`
	ResidualValue  decimal.Decimal `json:"residual_value"`
	UsefulLifeM    int             `json:"useful_life_months,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsAvailable reports whether the asset can be reserved for a loan.
func (a *Asset) IsAvailable() bool {
	return a.Status == StateInInventory
}

// IsRentable reports whether the asset can back a rental request.
func (a *Asset) IsRentable() bool {
	return a.Status == StateInInventory || a.Status == StateDeployed
}

// LifecycleHistory is an append-only record of a status change, written in
// the same transaction as the status update itself.
type LifecycleHistory struct {
	ID        string         `json:"id"`
	AssetID   string         `json:"asset_id"`
	FromState AssetState     `json:"from_state"`
	ToState   AssetState     `json:"to_state"`
	Reason    string         `json:"reason,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MaintenanceRecord is a scheduled or corrective maintenance entry for an
// asset, consumed by the upcoming-maintenance sweep.
type MaintenanceRecord struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"asset_id"`
	Title         string          `json:"title"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	TechnicianID  string          `json:"technician_id,omitempty"`
	Status        string          `json:"status"` // scheduled, in_progress, completed, cancelled
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Cost          decimal.Decimal `json:"cost"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	MaintenanceScheduled  = "scheduled"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
	MaintenanceCancelled  = "cancelled"
)

// DepreciationLine is one month in a straight-line depreciation schedule.
type DepreciationLine struct {
	Month      int             `json:"month"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	BookValue  decimal.Decimal `json:"book_value"`
	Cumulative decimal.Decimal `json:"cumulative"`
}
