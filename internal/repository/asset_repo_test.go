package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

func newMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return database.Wrap(pool), mock
}

func TestUpdateStatus_GuardPasses(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAssetRepository()

	mock.ExpectExec(`UPDATE assets SET status=\$3`).
		WithArgs("a-1", "in_inventory", "deployed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), db, "a-1",
		domain.StateInInventory, domain.StateDeployed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_ConcurrentTransitionLosesRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAssetRepository()

	// Zero rows affected: the row no longer carries the expected status.
	mock.ExpectExec(`UPDATE assets SET status=\$3`).
		WithArgs("a-1", "in_inventory", "deployed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), db, "a-1",
		domain.StateInInventory, domain.StateDeployed)

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertHistory_WritesRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAssetRepository()

	mock.ExpectExec(`INSERT INTO lifecycle_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &domain.LifecycleHistory{
		AssetID:   "a-1",
		FromState: domain.StateInInventory,
		ToState:   domain.StateDeployed,
		Reason:    "rollout",
		ActorID:   "u-1",
	}
	err := repo.InsertHistory(context.Background(), db, h)
	assert.NoError(t, err)
	assert.NotEmpty(t, h.ID, "id assigned on insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MissingAssetIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAssetRepository()

	mock.ExpectExec(`DELETE FROM assets`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), db, "gone")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
