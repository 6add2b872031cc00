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

func newWorkOrderService(t *testing.T) (*WorkOrderService, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	svc := NewWorkOrderService(database.Wrap(pool), repository.NewWorkOrderRepository(),
		repository.NewAssetRepository(), events.NewBus())
	return svc, mock
}

func workOrderRow(id string, status domain.WorkOrderStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "wo_number", "asset_id", "org_id", "type", "priority",
		"status", "assigned_technician_id", "scheduled_date", "due_date",
		"actual_start", "actual_end", "estimated_cost", "estimated_hours",
		"actual_hours", "parts_cost", "labor_cost", "total_cost", "problem",
		"work_performed", "safety_requirements", "lockout_required",
		"created_at", "updated_at",
	}).AddRow(
		id, "WO-1", "a-1", "org-1", "corrective", "high",
		string(status), nil, nil, nil,
		nil, nil, "0", "0",
		"0", "0", "0", "0", "pump leaks",
		nil, nil, false,
		now, now,
	)
}

func TestCancel_PendingOrderCancels(t *testing.T) {
	svc, mock := newWorkOrderService(t)

	mock.ExpectQuery(`FROM work_orders WHERE id=\$1`).
		WithArgs("wo-1").
		WillReturnRows(workOrderRow("wo-1", domain.WorkOrderPending))
	mock.ExpectExec(`UPDATE work_orders SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	order, err := svc.Cancel(context.Background(), "wo-1", managerClaims("mgr-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.WorkOrderCancelled, order.Status)
}

func TestCancel_OnlyPendingAndApprovedMayCancel(t *testing.T) {
	svc, mock := newWorkOrderService(t)

	for _, status := range []domain.WorkOrderStatus{
		domain.WorkOrderAssigned, domain.WorkOrderInProgress,
		domain.WorkOrderOnHold, domain.WorkOrderCompleted,
		domain.WorkOrderCancelled,
	} {
		mock.ExpectQuery(`FROM work_orders WHERE id=\$1`).
			WithArgs("wo-1").
			WillReturnRows(workOrderRow("wo-1", status))

		_, err := svc.Cancel(context.Background(), "wo-1", managerClaims("mgr-1"))

		var ste *domain.StateTransitionError
		assert.ErrorAs(t, err, &ste, "cancel from %s must be refused", status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_RequiresManagerLevel(t *testing.T) {
	svc, _ := newWorkOrderService(t)

	_, err := svc.Cancel(context.Background(), "wo-1", supervisorClaims("sup-1"))

	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}
