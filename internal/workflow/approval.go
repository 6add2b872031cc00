package workflow

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/rbac"
	"github.com/assetflow/backend/internal/repository"
)

// Executor runs the gated action once a request reaches final approval.
// Executors are registered per resource type; execution failures leave the
// request approved so the action can be retried.
type Executor interface {
	Execute(ctx context.Context, req *domain.ApprovalRequest) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req *domain.ApprovalRequest) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req *domain.ApprovalRequest) error {
	return f(ctx, req)
}

// ApprovalService runs the generic two-level approval gate. Level 1 is the
// supervisor tier, level 2 the manager tier.
type ApprovalService struct {
	db        *database.DB
	approvals *repository.ApprovalRepository
	orders    *repository.WorkOrderRepository
	loans     *repository.LoanRepository
	executors map[string]Executor
	emitter   events.Emitter
	logger    *log.Logger
	now       func() time.Time
}

// NewApprovalService creates an ApprovalService with no executors bound.
func NewApprovalService(db *database.DB, approvals *repository.ApprovalRepository, orders *repository.WorkOrderRepository, loans *repository.LoanRepository, emitter events.Emitter) *ApprovalService {
	return &ApprovalService{
		db:        db,
		approvals: approvals,
		orders:    orders,
		loans:     loans,
		executors: make(map[string]Executor),
		emitter:   emitter,
		logger:    log.New(log.Writer(), "[Approvals] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterExecutor binds the action runner for a resource type. Wiring
// happens at startup so this is not locked.
func (s *ApprovalService) RegisterExecutor(resourceType string, ex Executor) {
	s.executors[resourceType] = ex
}

// Create opens a request at level 1 with a snapshot of the gated action.
func (s *ApprovalService) Create(ctx context.Context, resourceType, resourceID, action string, snapshot any, claims *domain.UserClaims) (*domain.ApprovalRequest, error) {
	if claims == nil || claims.UserID == "" {
		return nil, domain.ErrValidation("requester_id", "approval requester is required")
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, domain.ErrValidation("snapshot", "snapshot is not serializable")
	}
	req := &domain.ApprovalRequest{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		RequesterID:  claims.UserID,
		OrgID:        claims.OrgID,
		Status:       domain.ApprovalPending,
		CurrentLevel: 1,
		Snapshot:     raw,
	}
	if err := s.approvals.Create(ctx, s.db, req); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeApprovalRequested, req.ID, map[string]any{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"action":        action,
		"requester_id":  req.RequesterID,
	})
	return req, nil
}

// Approve signs off the current level. A level-2 sign-off runs the bound
// executor. The status guard on the update makes a concurrent duplicate
// decision fail with a business-rule error instead of double-advancing.
func (s *ApprovalService) Approve(ctx context.Context, requestID, notes string, claims *domain.UserClaims) (*domain.ApprovalRequest, error) {
	req, err := s.approvals.GetByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, domain.ErrBusinessRule("approval_state",
			"approval request "+req.ID+" is already "+string(req.Status))
	}
	if req.RequesterID == claims.UserID {
		return nil, domain.ErrBusinessRule("self_approval",
			"requesters cannot approve their own requests")
	}

	expected := req.Status
	now := s.now()
	switch req.Status {
	case domain.ApprovalPending:
		if err := rbac.RequireLevel(claims, domain.RoleLevelSupervisor); err != nil {
			return nil, err
		}
		req.Status = domain.ApprovalApprovedL1
		req.CurrentLevel = 2
		req.L1ApproverID = claims.UserID
		req.L1ApprovedAt = &now
		req.L1Notes = notes
	case domain.ApprovalApprovedL1:
		if err := rbac.RequireLevel(claims, domain.RoleLevelManager); err != nil {
			return nil, err
		}
		if req.L1ApproverID == claims.UserID {
			return nil, domain.ErrBusinessRule("duplicate_approver",
				"level 1 and level 2 approvers must differ")
		}
		req.Status = domain.ApprovalApprovedL2
		req.L2ApproverID = claims.UserID
		req.L2ApprovedAt = &now
		req.L2Notes = notes
	}

	if err := s.approvals.UpdateGuarded(ctx, s.db, req, expected); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeApprovalDecided, req.ID, map[string]any{
		"resource_type": req.ResourceType,
		"status":        string(req.Status),
		"requester_id":  req.RequesterID,
	})

	if req.Status == domain.ApprovalApprovedL2 {
		if ex, ok := s.executors[req.ResourceType]; ok {
			if err := ex.Execute(ctx, req); err != nil {
				s.logger.Printf("executor for %s failed on %s: %v",
					req.ResourceType, req.ID, err)
				return req, err
			}
		}
	}
	return req, nil
}

// Reject terminally rejects the request at either level.
func (s *ApprovalService) Reject(ctx context.Context, requestID, notes string, claims *domain.UserClaims) (*domain.ApprovalRequest, error) {
	req, err := s.approvals.GetByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, domain.ErrBusinessRule("approval_state",
			"approval request "+req.ID+" is already "+string(req.Status))
	}
	if req.RequesterID == claims.UserID {
		return nil, domain.ErrBusinessRule("self_approval",
			"requesters cannot decide their own requests")
	}
	required := domain.RoleLevelSupervisor
	if req.Status == domain.ApprovalApprovedL1 {
		required = domain.RoleLevelManager
	}
	if err := rbac.RequireLevel(claims, required); err != nil {
		return nil, err
	}

	expected := req.Status
	now := s.now()
	req.Status = domain.ApprovalRejected
	if expected == domain.ApprovalPending {
		req.L1ApproverID = claims.UserID
		req.L1ApprovedAt = &now
		req.L1Notes = notes
	} else {
		req.L2ApproverID = claims.UserID
		req.L2ApprovedAt = &now
		req.L2Notes = notes
	}
	if err := s.approvals.UpdateGuarded(ctx, s.db, req, expected); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeApprovalDecided, req.ID, map[string]any{
		"resource_type": req.ResourceType,
		"status":        string(req.Status),
		"requester_id":  req.RequesterID,
	})
	return req, nil
}

// Get returns one request.
func (s *ApprovalService) Get(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	return s.approvals.GetByID(ctx, s.db, id)
}

// Mine returns the caller's own requests.
func (s *ApprovalService) Mine(ctx context.Context, claims *domain.UserClaims) ([]*domain.ApprovalRequest, error) {
	return s.approvals.ListByRequester(ctx, s.db, claims.UserID)
}

// Pending merges open approval requests, pending work orders and requested
// loans into one queue, newest first. The merge is in memory because the
// three families live in different tables with different payloads.
func (s *ApprovalService) Pending(ctx context.Context, claims *domain.UserClaims) ([]domain.PendingItem, error) {
	org := orgScope(claims)

	requests, err := s.approvals.ListPending(ctx, s.db, org)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListPending(ctx, s.db, org)
	if err != nil {
		return nil, err
	}
	loans, err := s.loans.ListPending(ctx, s.db, org)
	if err != nil {
		return nil, err
	}

	items := make([]domain.PendingItem, 0, len(requests)+len(orders)+len(loans))
	for _, r := range requests {
		items = append(items, r.PendingItem())
	}
	for _, w := range orders {
		items = append(items, w.PendingItem())
	}
	for _, l := range loans {
		items = append(items, l.PendingItem())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}
