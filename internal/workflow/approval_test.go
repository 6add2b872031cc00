package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

func newApprovalService(t *testing.T) (*ApprovalService, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	svc := NewApprovalService(database.Wrap(pool), repository.NewApprovalRepository(),
		repository.NewWorkOrderRepository(), repository.NewLoanRepository(), events.NewBus())
	return svc, mock
}

func approvalRow(id string, status domain.ApprovalStatus, l1Approver string) *sqlmock.Rows {
	now := time.Now().UTC()
	level := 1
	if status == domain.ApprovalApprovedL1 {
		level = 2
	}
	var l1At any
	var l1 any
	if l1Approver != "" {
		l1, l1At = l1Approver, now
	}
	return sqlmock.NewRows([]string{
		"id", "resource_type", "resource_id", "action",
		"requester_id", "org_id", "status", "current_level", "l1_approver_id",
		"l1_approved_at", "l1_notes", "l2_approver_id", "l2_approved_at",
		"l2_notes", "snapshot", "created_at", "updated_at",
	}).AddRow(
		id, domain.ResourceLifecycleTransition, "a-1", "deployed->retired",
		"req-1", "org-1", string(status), level, l1,
		l1At, nil, nil, nil,
		nil, []byte(`{}`), now, now,
	)
}

func supervisorClaims(id string) *domain.UserClaims {
	return &domain.UserClaims{UserID: id, RoleLevel: domain.RoleLevelSupervisor}
}

func managerClaims(id string) *domain.UserClaims {
	return &domain.UserClaims{UserID: id, RoleLevel: domain.RoleLevelManager}
}

func TestApprove_TerminalRequestCannotBeReapproved(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalApprovedL2, "sup-1"))

	_, err := svc.Approve(context.Background(), "ar-1", "", managerClaims("mgr-1"))

	var rule *domain.BusinessRuleError
	require.ErrorAs(t, err, &rule)
	assert.NoError(t, mock.ExpectationsWereMet(), "a decided request must not be rewritten")
}

func TestReject_TerminalRequestCannotBeRejected(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalRejected, "sup-1"))

	_, err := svc.Reject(context.Background(), "ar-1", "", managerClaims("mgr-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}

func TestApprove_RequesterCannotSelfApprove(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalPending, ""))

	_, err := svc.Approve(context.Background(), "ar-1", "", supervisorClaims("req-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}

func TestApprove_LevelOneAdvancesToLevelTwo(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalPending, ""))
	mock.ExpectExec(`UPDATE approval_requests SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, err := svc.Approve(context.Background(), "ar-1", "looks fine", supervisorClaims("sup-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalApprovedL1, req.Status)
	assert.Equal(t, 2, req.CurrentLevel)
	assert.Equal(t, "sup-1", req.L1ApproverID)
	assert.False(t, req.Status.IsTerminal())
}

func TestApprove_SameApproverCannotSignBothLevels(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalApprovedL1, "mgr-1"))

	_, err := svc.Approve(context.Background(), "ar-1", "", managerClaims("mgr-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}

func TestApprove_LevelTwoRunsExecutor(t *testing.T) {
	svc, mock := newApprovalService(t)

	executed := false
	svc.RegisterExecutor(domain.ResourceLifecycleTransition,
		ExecutorFunc(func(ctx context.Context, req *domain.ApprovalRequest) error {
			executed = true
			return nil
		}))

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalApprovedL1, "sup-1"))
	mock.ExpectExec(`UPDATE approval_requests SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, err := svc.Approve(context.Background(), "ar-1", "", managerClaims("mgr-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalApprovedL2, req.Status)
	assert.True(t, executed, "final approval must run the bound executor")
}

func TestApprove_ConcurrentDecisionLosesOnTheGuard(t *testing.T) {
	svc, mock := newApprovalService(t)

	mock.ExpectQuery(`FROM approval_requests WHERE id=\$1`).
		WithArgs("ar-1").
		WillReturnRows(approvalRow("ar-1", domain.ApprovalPending, ""))
	mock.ExpectExec(`UPDATE approval_requests SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Approve(context.Background(), "ar-1", "", supervisorClaims("sup-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}
