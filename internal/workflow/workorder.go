package workflow

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/rbac"
	"github.com/assetflow/backend/internal/repository"
)

// WorkOrderService runs the maintenance work-order workflow.
type WorkOrderService struct {
	db      *database.DB
	orders  *repository.WorkOrderRepository
	assets  *repository.AssetRepository
	emitter events.Emitter
	logger  *log.Logger
	now     func() time.Time
}

// NewWorkOrderService creates a WorkOrderService.
func NewWorkOrderService(db *database.DB, orders *repository.WorkOrderRepository, assets *repository.AssetRepository, emitter events.Emitter) *WorkOrderService {
	return &WorkOrderService{
		db:      db,
		orders:  orders,
		assets:  assets,
		emitter: emitter,
		logger:  log.New(log.Writer(), "[WorkOrders] ", log.LstdFlags),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WorkOrderRequest is the create input. The due date is derived from the
// priority SLA when not given.
type WorkOrderRequest struct {
	AssetID       string          `json:"asset_id" validate:"required,uuid4"`
	Type          string          `json:"type" validate:"required,oneof=preventive corrective inspection calibration"`
	Priority      domain.Priority `json:"priority" validate:"required"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	DueDate       *time.Time      `json:"due_date"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	EstimatedHrs  decimal.Decimal `json:"estimated_hours"`
	Problem       string          `json:"problem"`
	SafetyReqs    string          `json:"safety_requirements"`
	LockoutReq    bool            `json:"lockout_required"`
	Checklist     []string        `json:"checklist"`
}

// Create opens a work order in Pending state with its checklist.
func (s *WorkOrderService) Create(ctx context.Context, req WorkOrderRequest, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	if !req.Priority.Valid() {
		return nil, domain.ErrValidation("priority", "unknown priority "+string(req.Priority))
	}
	if _, err := s.assets.GetByID(ctx, s.db, req.AssetID, orgScope(claims)); err != nil {
		return nil, err
	}

	now := s.now()
	due := req.DueDate
	if due == nil {
		d := now.Add(time.Duration(req.Priority.SLAHours()) * time.Hour)
		due = &d
	}
	order := &domain.WorkOrder{
		WONumber:      numberFor("WO", now),
		AssetID:       req.AssetID,
		OrgID:         claims.OrgID,
		Type:          req.Type,
		Priority:      req.Priority,
		Status:        domain.WorkOrderPending,
		ScheduledDate: req.ScheduledDate,
		DueDate:       due,
		EstimatedCost: req.EstimatedCost,
		EstimatedHrs:  req.EstimatedHrs,
		Problem:       req.Problem,
		SafetyReqs:    req.SafetyReqs,
		LockoutReq:    req.LockoutReq,
	}

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		for i, desc := range req.Checklist {
			if err := s.orders.InsertChecklistItem(ctx, tx, &domain.ChecklistItem{
				WorkOrderID: order.ID,
				Description: desc,
				SortOrder:   i,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Approve moves a Pending order to Approved. Supervisors and above may
// approve.
func (s *WorkOrderService) Approve(ctx context.Context, orderID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	if err := rbac.RequireLevel(claims, domain.RoleLevelSupervisor); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.WorkOrderPending {
		return nil, domain.ErrStateTransition(string(order.Status), string(domain.WorkOrderApproved))
	}
	order.Status = domain.WorkOrderApproved
	if err := s.orders.UpdateGuarded(ctx, s.db, order, domain.WorkOrderPending); err != nil {
		return nil, err
	}
	return order, nil
}

// Assign puts an approved order on a technician's plate. Supervisors and
// above may assign.
func (s *WorkOrderService) Assign(ctx context.Context, orderID, technicianID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	if err := rbac.RequireLevel(claims, domain.RoleLevelSupervisor); err != nil {
		return nil, err
	}
	if technicianID == "" {
		return nil, domain.ErrValidation("technician_id", "technician is required")
	}
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.WorkOrderApproved {
		return nil, domain.ErrStateTransition(string(order.Status), string(domain.WorkOrderAssigned))
	}
	order.Status = domain.WorkOrderAssigned
	order.TechnicianID = technicianID
	if err := s.orders.UpdateGuarded(ctx, s.db, order, domain.WorkOrderApproved); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeWorkOrderAssigned, order.ID, map[string]any{
		"wo_number":     order.WONumber,
		"technician_id": technicianID,
	})
	return order, nil
}

// Start begins work. Only the assigned technician may start.
func (s *WorkOrderService) Start(ctx context.Context, orderID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.WorkOrderAssigned {
		return nil, domain.ErrStateTransition(string(order.Status), string(domain.WorkOrderInProgress))
	}
	if order.TechnicianID != claims.UserID {
		return nil, domain.ErrForbidden("only the assigned technician can start this work order")
	}
	now := s.now()
	order.Status = domain.WorkOrderInProgress
	order.ActualStart = &now
	if err := s.orders.UpdateGuarded(ctx, s.db, order, domain.WorkOrderAssigned); err != nil {
		return nil, err
	}
	return order, nil
}

// Hold pauses an in-progress order.
func (s *WorkOrderService) Hold(ctx context.Context, orderID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	return s.moveSimple(ctx, orderID, claims, domain.WorkOrderInProgress, domain.WorkOrderOnHold)
}

// Resume restarts a held order.
func (s *WorkOrderService) Resume(ctx context.Context, orderID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	return s.moveSimple(ctx, orderID, claims, domain.WorkOrderOnHold, domain.WorkOrderInProgress)
}

func (s *WorkOrderService) moveSimple(ctx context.Context, orderID string, claims *domain.UserClaims, from, to domain.WorkOrderStatus) (*domain.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		return nil, domain.ErrStateTransition(string(order.Status), string(to))
	}
	if order.TechnicianID != claims.UserID && !claims.HasLevel(domain.RoleLevelSupervisor) {
		return nil, domain.ErrForbidden("only the assigned technician or a supervisor can move this work order")
	}
	order.Status = to
	if err := s.orders.UpdateGuarded(ctx, s.db, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteRequest closes out the job with the actuals.
type CompleteRequest struct {
	ActualHours   decimal.Decimal `json:"actual_hours" validate:"required"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	WorkPerformed string          `json:"work_performed" validate:"required"`
}

// Complete finishes an in-progress order. Only the assigned technician may
// complete; parts cost is re-summed and the total recomputed in the same
// transaction.
func (s *WorkOrderService) Complete(ctx context.Context, orderID string, req CompleteRequest, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.WorkOrderInProgress {
		return nil, domain.ErrStateTransition(string(order.Status), string(domain.WorkOrderCompleted))
	}
	if order.TechnicianID != claims.UserID {
		return nil, domain.ErrForbidden("only the assigned technician can complete this work order")
	}

	now := s.now()
	order.Status = domain.WorkOrderCompleted
	order.ActualEnd = &now
	order.ActualHours = req.ActualHours
	order.LaborCost = req.LaborCost
	order.WorkPerformed = req.WorkPerformed
	order.TotalCost = order.LaborCost.Add(order.PartsCost)

	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdateGuarded(ctx, tx, order, domain.WorkOrderInProgress); err != nil {
			return err
		}
		return s.orders.RecalculateCosts(ctx, tx, order.ID)
	})
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeWorkOrderCompleted, order.ID, map[string]any{
		"wo_number":  order.WONumber,
		"total_cost": order.TotalCost.String(),
	})
	return order, nil
}

// Cancel terminally cancels a Pending or Approved order. Once work is
// assigned the order runs to completion or is put on hold instead.
// Managers and above may cancel.
func (s *WorkOrderService) Cancel(ctx context.Context, orderID string, claims *domain.UserClaims) (*domain.WorkOrder, error) {
	if err := rbac.RequireLevel(claims, domain.RoleLevelManager); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.WorkOrderPending && order.Status != domain.WorkOrderApproved {
		return nil, domain.ErrStateTransition(string(order.Status), string(domain.WorkOrderCancelled))
	}
	expected := order.Status
	order.Status = domain.WorkOrderCancelled
	if err := s.orders.UpdateGuarded(ctx, s.db, order, expected); err != nil {
		return nil, err
	}
	return order, nil
}

// AddPart records a consumed part and re-sums costs.
func (s *WorkOrderService) AddPart(ctx context.Context, orderID string, part *domain.WorkOrderPart) error {
	order, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order.Status.IsClosed() {
		return domain.ErrBusinessRule("work_order_closed",
			"work order "+order.WONumber+" is closed")
	}
	part.WorkOrderID = order.ID
	return s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.InsertPart(ctx, tx, part); err != nil {
			return err
		}
		return s.orders.RecalculateCosts(ctx, tx, order.ID)
	})
}

// RemovePart deletes a part and re-sums costs.
func (s *WorkOrderService) RemovePart(ctx context.Context, orderID, partID string) error {
	return s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.DeletePart(ctx, tx, partID); err != nil {
			return err
		}
		return s.orders.RecalculateCosts(ctx, tx, orderID)
	})
}

// ToggleChecklist marks a checklist step done or undone.
func (s *WorkOrderService) ToggleChecklist(ctx context.Context, itemID string, completed bool, claims *domain.UserClaims) error {
	return s.orders.ToggleChecklistItem(ctx, s.db, itemID, claims.UserID, completed)
}

// Get returns one work order with its checklist and parts.
func (s *WorkOrderService) Get(ctx context.Context, id string) (*domain.WorkOrder, []*domain.ChecklistItem, []*domain.WorkOrderPart, error) {
	order, err := s.orders.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, nil, nil, err
	}
	checklist, err := s.orders.ListChecklist(ctx, s.db, id)
	if err != nil {
		return nil, nil, nil, err
	}
	parts, err := s.orders.ListParts(ctx, s.db, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return order, checklist, parts, nil
}

// List returns work orders visible to the claims.
func (s *WorkOrderService) List(ctx context.Context, claims *domain.UserClaims, status domain.WorkOrderStatus, page repository.Page) ([]*domain.WorkOrder, error) {
	return s.orders.List(ctx, s.db, orgScope(claims), status, page)
}
