package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// WorkOrderRepository is the SQL gateway for work orders, checklists and parts.
type WorkOrderRepository struct{}

// NewWorkOrderRepository creates a WorkOrderRepository.
func NewWorkOrderRepository() *WorkOrderRepository { return &WorkOrderRepository{} }

const workOrderColumns = `id, wo_number, asset_id, org_id, type, priority,
	status, assigned_technician_id, scheduled_date, due_date, actual_start,
	actual_end, estimated_cost, estimated_hours, actual_hours, parts_cost,
	labor_cost, total_cost, problem, work_performed, safety_requirements,
	lockout_required, created_at, updated_at`

// Create inserts a work order in Pending state.
func (r *WorkOrderRepository) Create(ctx context.Context, q database.Querier, w *domain.WorkOrder) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO work_orders (`+workOrderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		        $18,$19,$20,$21,$22,$23,$24)`,
		w.ID, w.WONumber, w.AssetID, nullStr(w.OrgID), w.Type,
		string(w.Priority), string(w.Status), nullStr(w.TechnicianID),
		nullTime(w.ScheduledDate), nullTime(w.DueDate),
		nullTime(w.ActualStart), nullTime(w.ActualEnd), w.EstimatedCost,
		w.EstimatedHrs, w.ActualHours, w.PartsCost, w.LaborCost, w.TotalCost,
		nullStr(w.Problem), nullStr(w.WorkPerformed), nullStr(w.SafetyReqs),
		w.LockoutReq, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return translate("workorder.create", err)
	}
	return nil
}

// GetByID fetches one work order.
func (r *WorkOrderRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.WorkOrder, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=$1`, id)
	w, err := scanWorkOrder(row)
	if err != nil {
		return nil, notFoundOr("workorder.get", "work_order", id, err)
	}
	return w, nil
}

// List returns work orders, newest first.
func (r *WorkOrderRepository) List(ctx context.Context, q database.Querier, orgID string, status domain.WorkOrderStatus, page Page) ([]*domain.WorkOrder, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE ($1 = '' OR org_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, string(status), page.Size, page.Offset())
	if err != nil {
		return nil, translate("workorder.list", err)
	}
	defer rows.Close()
	return collectWorkOrders(rows)
}

// ListPending returns Pending work orders for the pending-approvals merge.
func (r *WorkOrderRepository) ListPending(ctx context.Context, q database.Querier, orgID string) ([]*domain.WorkOrder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE status=$1 AND ($2 = '' OR org_id = $2)
		ORDER BY created_at DESC`, string(domain.WorkOrderPending), orgID)
	if err != nil {
		return nil, translate("workorder.list_pending", err)
	}
	defer rows.Close()
	return collectWorkOrders(rows)
}

// UpdateGuarded rewrites workflow fields guarded by the expected status.
func (r *WorkOrderRepository) UpdateGuarded(ctx context.Context, q database.Querier, w *domain.WorkOrder, expected domain.WorkOrderStatus) error {
	w.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE work_orders SET status=$3, assigned_technician_id=$4,
			scheduled_date=$5, due_date=$6, actual_start=$7, actual_end=$8,
			actual_hours=$9, parts_cost=$10, labor_cost=$11, total_cost=$12,
			work_performed=$13, updated_at=$14
		WHERE id=$1 AND status=$2`,
		w.ID, string(expected), string(w.Status), nullStr(w.TechnicianID),
		nullTime(w.ScheduledDate), nullTime(w.DueDate),
		nullTime(w.ActualStart), nullTime(w.ActualEnd), w.ActualHours,
		w.PartsCost, w.LaborCost, w.TotalCost, nullStr(w.WorkPerformed),
		w.UpdatedAt)
	if err != nil {
		return translate("workorder.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("work_order_state",
			"work order "+w.ID+" is no longer "+string(expected))
	}
	return nil
}

// RecalculateCosts reloads parts_cost from the parts table and keeps
// total_cost = labor + parts. Runs inside the caller's transaction.
func (r *WorkOrderRepository) RecalculateCosts(ctx context.Context, q database.Querier, workOrderID string) error {
	var partsCost decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity * unit_cost), 0)
		FROM work_order_parts WHERE work_order_id=$1`, workOrderID).
		Scan(&partsCost)
	if err != nil {
		return translate("workorder.parts_sum", err)
	}
	_, err = q.ExecContext(ctx, `
		UPDATE work_orders
		SET parts_cost=$2, total_cost=labor_cost+$2, updated_at=$3
		WHERE id=$1`, workOrderID, partsCost, time.Now().UTC())
	if err != nil {
		return translate("workorder.recalculate", err)
	}
	return nil
}

// InsertChecklistItem appends a checklist step.
func (r *WorkOrderRepository) InsertChecklistItem(ctx context.Context, q database.Querier, item *domain.ChecklistItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO work_order_checklist
			(id, work_order_id, description, completed, completed_by,
			 completed_at, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.WorkOrderID, item.Description, item.Completed,
		nullStr(item.CompletedBy), nullTime(item.CompletedAt), item.SortOrder)
	if err != nil {
		return translate("workorder.checklist.insert", err)
	}
	return nil
}

// ToggleChecklistItem marks a checklist step complete or incomplete.
func (r *WorkOrderRepository) ToggleChecklistItem(ctx context.Context, q database.Querier, id, actorID string, completed bool) error {
	completedAt := sqlNowOrNull(completed)
	res, err := q.ExecContext(ctx, `
		UPDATE work_order_checklist
		SET completed=$2, completed_by=$3, completed_at=$4
		WHERE id=$1`, id, completed, nullStr(actorID), completedAt)
	if err != nil {
		return translate("workorder.checklist.toggle", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("checklist_item", id)
	}
	return nil
}

// ListChecklist returns a work order's checklist in sort order.
func (r *WorkOrderRepository) ListChecklist(ctx context.Context, q database.Querier, workOrderID string) ([]*domain.ChecklistItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, work_order_id, description, completed, completed_by,
		       completed_at, sort_order
		FROM work_order_checklist WHERE work_order_id=$1 ORDER BY sort_order`,
		workOrderID)
	if err != nil {
		return nil, translate("workorder.checklist.list", err)
	}
	defer rows.Close()

	var out []*domain.ChecklistItem
	for rows.Next() {
		item := &domain.ChecklistItem{}
		var by stringOrNull
		var at nullTimeCol
		if err := rows.Scan(&item.ID, &item.WorkOrderID, &item.Description,
			&item.Completed, &by, &at, &item.SortOrder); err != nil {
			return nil, translate("workorder.checklist.scan", err)
		}
		item.CompletedBy = by.String
		item.CompletedAt = at.Ptr()
		out = append(out, item)
	}
	return out, rows.Err()
}

// InsertPart adds a consumed part.
func (r *WorkOrderRepository) InsertPart(ctx context.Context, q database.Querier, p *domain.WorkOrderPart) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO work_order_parts
			(id, work_order_id, name, part_number, quantity, unit_cost)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.WorkOrderID, p.Name, nullStr(p.PartNumber), p.Quantity, p.UnitCost)
	if err != nil {
		return translate("workorder.part.insert", err)
	}
	return nil
}

// DeletePart removes a part.
func (r *WorkOrderRepository) DeletePart(ctx context.Context, q database.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM work_order_parts WHERE id=$1`, id)
	if err != nil {
		return translate("workorder.part.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("work_order_part", id)
	}
	return nil
}

// ListParts returns a work order's parts.
func (r *WorkOrderRepository) ListParts(ctx context.Context, q database.Querier, workOrderID string) ([]*domain.WorkOrderPart, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, work_order_id, name, part_number, quantity, unit_cost
		FROM work_order_parts WHERE work_order_id=$1`, workOrderID)
	if err != nil {
		return nil, translate("workorder.part.list", err)
	}
	defer rows.Close()

	var out []*domain.WorkOrderPart
	for rows.Next() {
		p := &domain.WorkOrderPart{}
		var partNo stringOrNull
		if err := rows.Scan(&p.ID, &p.WorkOrderID, &p.Name, &partNo,
			&p.Quantity, &p.UnitCost); err != nil {
			return nil, translate("workorder.part.scan", err)
		}
		p.PartNumber = partNo.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func sqlNowOrNull(set bool) any {
	if !set {
		return nil
	}
	return time.Now().UTC()
}

func collectWorkOrders(rows interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}) ([]*domain.WorkOrder, error) {
	var out []*domain.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, translate("workorder.scan", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWorkOrder(s scanner) (*domain.WorkOrder, error) {
	w := &domain.WorkOrder{}
	var org, tech, problem, performed, safety stringOrNull
	var priority, status string
	var scheduled, due, start, end nullTimeCol
	err := s.Scan(&w.ID, &w.WONumber, &w.AssetID, &org, &w.Type, &priority,
		&status, &tech, &scheduled, &due, &start, &end, &w.EstimatedCost,
		&w.EstimatedHrs, &w.ActualHours, &w.PartsCost, &w.LaborCost,
		&w.TotalCost, &problem, &performed, &safety, &w.LockoutReq,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.OrgID = org.String
	w.Priority = domain.Priority(priority)
	w.Status = domain.WorkOrderStatus(status)
	w.TechnicianID = tech.String
	w.ScheduledDate = scheduled.Ptr()
	w.DueDate = due.Ptr()
	w.ActualStart = start.Ptr()
	w.ActualEnd = end.Ptr()
	w.Problem = problem.String
	w.WorkPerformed = performed.String
	w.SafetyReqs = safety.String
	return w, nil
}
