package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// ApprovalRepository is the SQL gateway for approval requests.
type ApprovalRepository struct{}

// NewApprovalRepository creates an ApprovalRepository.
func NewApprovalRepository() *ApprovalRepository { return &ApprovalRepository{} }

const approvalColumns = `id, resource_type, resource_id, action,
	requester_id, org_id, status, current_level, l1_approver_id,
	l1_approved_at, l1_notes, l2_approver_id, l2_approved_at, l2_notes,
	snapshot, created_at, updated_at`

// Create inserts a request at level 1, Pending.
func (r *ApprovalRepository) Create(ctx context.Context, q database.Querier, a *domain.ApprovalRequest) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO approval_requests (`+approvalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.ResourceType, a.ResourceID, a.Action, a.RequesterID,
		nullStr(a.OrgID), string(a.Status), a.CurrentLevel,
		nullStr(a.L1ApproverID), nullTime(a.L1ApprovedAt), nullStr(a.L1Notes),
		nullStr(a.L2ApproverID), nullTime(a.L2ApprovedAt), nullStr(a.L2Notes),
		[]byte(a.Snapshot), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return translate("approval.create", err)
	}
	return nil
}

// GetByID fetches one request.
func (r *ApprovalRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.ApprovalRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id=$1`, id)
	a, err := scanApproval(row)
	if err != nil {
		return nil, notFoundOr("approval.get", "approval_request", id, err)
	}
	return a, nil
}

// ListPending returns non-terminal requests, newest first.
func (r *ApprovalRepository) ListPending(ctx context.Context, q database.Querier, orgID string) ([]*domain.ApprovalRequest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+approvalColumns+` FROM approval_requests
		WHERE status IN ($1, $2) AND ($3 = '' OR org_id = $3)
		ORDER BY created_at DESC`,
		string(domain.ApprovalPending), string(domain.ApprovalApprovedL1), orgID)
	if err != nil {
		return nil, translate("approval.list_pending", err)
	}
	defer rows.Close()
	return collectApprovals(rows)
}

// ListByRequester returns a user's own requests, newest first.
func (r *ApprovalRepository) ListByRequester(ctx context.Context, q database.Querier, requesterID string) ([]*domain.ApprovalRequest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+approvalColumns+` FROM approval_requests
		WHERE requester_id=$1 ORDER BY created_at DESC`, requesterID)
	if err != nil {
		return nil, translate("approval.list_by_requester", err)
	}
	defer rows.Close()
	return collectApprovals(rows)
}

// UpdateGuarded rewrites approval state guarded by the expected status.
func (r *ApprovalRepository) UpdateGuarded(ctx context.Context, q database.Querier, a *domain.ApprovalRequest, expected domain.ApprovalStatus) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE approval_requests SET status=$3, current_level=$4,
			l1_approver_id=$5, l1_approved_at=$6, l1_notes=$7,
			l2_approver_id=$8, l2_approved_at=$9, l2_notes=$10, updated_at=$11
		WHERE id=$1 AND status=$2`,
		a.ID, string(expected), string(a.Status), a.CurrentLevel,
		nullStr(a.L1ApproverID), nullTime(a.L1ApprovedAt), nullStr(a.L1Notes),
		nullStr(a.L2ApproverID), nullTime(a.L2ApprovedAt), nullStr(a.L2Notes),
		a.UpdatedAt)
	if err != nil {
		return translate("approval.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("approval_state",
			"approval request "+a.ID+" is no longer "+string(expected))
	}
	return nil
}

func collectApprovals(rows interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}) ([]*domain.ApprovalRequest, error) {
	var out []*domain.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, translate("approval.scan", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApproval(s scanner) (*domain.ApprovalRequest, error) {
	a := &domain.ApprovalRequest{}
	var org, l1, l1n, l2, l2n stringOrNull
	var status string
	var l1at, l2at nullTimeCol
	var snapshot []byte
	err := s.Scan(&a.ID, &a.ResourceType, &a.ResourceID, &a.Action,
		&a.RequesterID, &org, &status, &a.CurrentLevel, &l1, &l1at, &l1n,
		&l2, &l2at, &l2n, &snapshot, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.OrgID = org.String
	a.Status = domain.ApprovalStatus(status)
	a.L1ApproverID = l1.String
	a.L1ApprovedAt = l1at.Ptr()
	a.L1Notes = l1n.String
	a.L2ApproverID = l2.String
	a.L2ApprovedAt = l2at.Ptr()
	a.L2Notes = l2n.String
	a.Snapshot = snapshot
	return a, nil
}
