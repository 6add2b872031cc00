package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/repository"
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return NewService(database.Wrap(pool), repository.NewAssetRepository(), nil), mock
}

func assetRow(id string, status domain.AssetState) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "code", "name", "category_id", "location_id", "department_id",
		"assignee_id", "vendor_id", "org_id", "status", "condition",
		"serial_number", "brand", "model", "year", "specifications",
		"purchase_date", "purchase_price", "currency", "quantity",
		"residual_value", "useful_life_months", "notes", "created_at", "updated_at",
	}).AddRow(
		id, "AST-001", "Excavator", nil, nil, nil,
		nil, nil, "org-1", string(status), nil,
		nil, nil, nil, 2022, nil,
		nil, "100000", "IDR", 1,
		"0", 0, nil, now, now,
	)
}

func TestExecute_CommitsStatusAndHistoryTogether(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assets SET status=\$3`).
		WithArgs("a-1", "in_inventory", "deployed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO lifecycle_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	h, err := svc.Execute(context.Background(), "a-1",
		domain.StateInInventory, domain.StateDeployed, "rollout", "u-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInInventory, h.FromState)
	assert.Equal(t, domain.StateDeployed, h.ToState)
	assert.NotEmpty(t, h.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RollsBackWhenGuardFails(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assets SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Execute(context.Background(), "a-1",
		domain.StateInInventory, domain.StateDeployed, "rollout", "u-1", nil)

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
	assert.NoError(t, mock.ExpectationsWereMet(), "no history row after a lost race")
}

func TestExecute_RejectsIllegalEdgeBeforeTouchingTheDB(t *testing.T) {
	svc, mock := newService(t)

	_, err := svc.Execute(context.Background(), "a-1",
		domain.StateDisposed, domain.StateDeployed, "", "u-1", nil)

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestTransition_GatedPairStopsAtApproval(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM assets WHERE id = \$1`).
		WithArgs("a-1", "org-1").
		WillReturnRows(assetRow("a-1", domain.StateDeployed))

	res, err := svc.RequestTransition(context.Background(),
		"a-1", "org-1", domain.StateRetired, "end of life", "u-1")
	require.NoError(t, err)

	assert.True(t, res.RequiresApproval)
	assert.False(t, res.Executed)
	assert.Equal(t, domain.StateDeployed, res.From)
	assert.Equal(t, domain.StateRetired, res.To)
	assert.NoError(t, mock.ExpectationsWereMet(), "gated request must not write")
}

func TestRequestTransition_UngatedPairExecutes(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM assets WHERE id = \$1`).
		WithArgs("a-1", "org-1").
		WillReturnRows(assetRow("a-1", domain.StateInInventory))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assets SET status=\$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO lifecycle_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.RequestTransition(context.Background(),
		"a-1", "org-1", domain.StateDeployed, "rollout", "u-1")
	require.NoError(t, err)

	assert.True(t, res.Executed)
	require.NotNil(t, res.History)
	assert.Equal(t, domain.StateDeployed, res.History.ToState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestTransition_RejectsAnonymousActor(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.RequestTransition(context.Background(),
		"a-1", "org-1", domain.StateDeployed, "", "")

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRequestTransition_IllegalEdgeFromCurrentState(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM assets WHERE id = \$1`).
		WithArgs("a-1", "org-1").
		WillReturnRows(assetRow("a-1", domain.StatePlanning))

	_, err := svc.RequestTransition(context.Background(),
		"a-1", "org-1", domain.StateRentedOut, "", "u-1")

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
}
