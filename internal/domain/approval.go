package domain

import (
	"encoding/json"
	"time"
)

// ApprovalStatus is the state of a two-level approval request.
type ApprovalStatus string

const (
	ApprovalPending    ApprovalStatus = "pending"
	ApprovalApprovedL1 ApprovalStatus = "approved_l1"
	ApprovalApprovedL2 ApprovalStatus = "approved_l2"
	ApprovalRejected   ApprovalStatus = "rejected"
)

// IsTerminal reports whether the request can no longer be acted on.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApprovedL2 || s == ApprovalRejected
}

// Resource types referenced by approval requests.
const (
	ResourceLifecycleTransition = "lifecycle_transition"
	ResourceAssetConversion     = "asset_conversion"
	ResourceBillingPeriod       = "billing_period"
)

// ApprovalRequest is a generic two-level human gate over an action on an
// arbitrary resource. Level 1 is the supervisor tier, level 2 the manager
// tier; both must sign off before the gated action executes.
type ApprovalRequest struct {
	ID           string          `json:"id"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Action       string          `json:"action"`
	RequesterID  string          `json:"requester_id"`
	OrgID        string          `json:"org_id,omitempty"`
	Status       ApprovalStatus  `json:"status"`
	CurrentLevel int             `json:"current_level"`
	L1ApproverID string          `json:"l1_approver_id,omitempty"`
	L1ApprovedAt *time.Time      `json:"l1_approved_at,omitempty"`
	L1Notes      string          `json:"l1_notes,omitempty"`
	L2ApproverID string          `json:"l2_approver_id,omitempty"`
	L2ApprovedAt *time.Time      `json:"l2_approved_at,omitempty"`
	L2Notes      string          `json:"l2_notes,omitempty"`
	Snapshot     json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Pendable is anything that can appear in the merged pending-approvals
// list: approval requests, pending work orders, pending loans. The merge
// happens in memory because the three families carry different snapshots.
type Pendable interface {
	PendingItem() PendingItem
}

// PendingItem is the denormalized row shown in the pending queue.
type PendingItem struct {
	Kind        string          `json:"kind"` // approval_request, work_order, loan
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	RequesterID string          `json:"requester_id,omitempty"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PendingItem implements Pendable for ApprovalRequest.
func (r *ApprovalRequest) PendingItem() PendingItem {
	return PendingItem{
		Kind:        "approval_request",
		ID:          r.ID,
		Title:       r.ResourceType + ":" + r.Action,
		RequesterID: r.RequesterID,
		Snapshot:    r.Snapshot,
		CreatedAt:   r.CreatedAt,
	}
}

// PendingItem implements Pendable for WorkOrder.
func (w *WorkOrder) PendingItem() PendingItem {
	return PendingItem{
		Kind:      "work_order",
		ID:        w.ID,
		Title:     w.WONumber + " " + w.Type,
		CreatedAt: w.CreatedAt,
	}
}

// PendingItem implements Pendable for Loan.
func (l *Loan) PendingItem() PendingItem {
	return PendingItem{
		Kind:        "loan",
		ID:          l.ID,
		Title:       l.LoanNumber,
		RequesterID: l.BorrowerID,
		CreatedAt:   l.CreatedAt,
	}
}
