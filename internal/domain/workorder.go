package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkOrderStatus is the workflow state of a work order.
type WorkOrderStatus string

const (
	WorkOrderPending    WorkOrderStatus = "pending"
	WorkOrderApproved   WorkOrderStatus = "approved"
	WorkOrderAssigned   WorkOrderStatus = "assigned"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderOnHold     WorkOrderStatus = "on_hold"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

// IsClosed reports whether the work order is completed or cancelled.
func (s WorkOrderStatus) IsClosed() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// Priority is the work-order priority with its implied SLA.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// SLAHours returns the response SLA implied by the priority.
func (p Priority) SLAHours() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 8
	case PriorityMedium:
		return 24
	default:
		return 72
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// WorkOrder is a maintenance or repair job against an asset.
type WorkOrder struct {
	ID            string          `json:"id"`
	WONumber      string          `json:"wo_number"`
	AssetID       string          `json:"asset_id"`
	OrgID         string          `json:"org_id,omitempty"`
	Type          string          `json:"type"`
	Priority      Priority        `json:"priority"`
	Status        WorkOrderStatus `json:"status"`
	TechnicianID  string          `json:"assigned_technician_id,omitempty"`
	ScheduledDate *time.Time      `json:"scheduled_date,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	ActualStart   *time.Time      `json:"actual_start,omitempty"`
	ActualEnd     *time.Time      `json:"actual_end,omitempty"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	EstimatedHrs  decimal.Decimal `json:"estimated_hours"`
	ActualHours   decimal.Decimal `json:"actual_hours"`
	PartsCost     decimal.Decimal `json:"parts_cost"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Problem       string          `json:"problem,omitempty"`
	WorkPerformed string          `json:"work_performed,omitempty"`
	SafetyReqs    string          `json:"safety_requirements,omitempty"`
	LockoutReq    bool            `json:"lockout_required"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsOverdue reports whether the work order has blown past its due date.
func (w *WorkOrder) IsOverdue(now time.Time) bool {
	return w.DueDate != nil && w.DueDate.Before(now) && !w.Status.IsClosed()
}

// ChecklistItem is one step of a work order's task list.
type ChecklistItem struct {
	ID          string     `json:"id"`
	WorkOrderID string     `json:"work_order_id"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

// WorkOrderPart is a consumed part; parts roll up into parts_cost.
type WorkOrderPart struct {
	ID          string          `json:"id"`
	WorkOrderID string          `json:"work_order_id"`
	Name        string          `json:"name"`
	PartNumber  string          `json:"part_number,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// LineCost returns quantity x unit cost for the part.
func (p *WorkOrderPart) LineCost() decimal.Decimal {
	return p.Quantity.Mul(p.UnitCost)
}
