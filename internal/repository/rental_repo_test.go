package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/domain"
)

func rentalRow(id string, status domain.RentalStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	end := now.Add(-48 * time.Hour)
	return sqlmock.NewRows([]string{
		"id", "rental_number", "asset_id", "client_id", "rate_id",
		"org_id", "status", "request_date", "start_date", "expected_end",
		"actual_end", "daily_rate", "total_days", "subtotal", "deposit",
		"penalty", "total", "created_at", "updated_at",
	}).AddRow(
		id, "RN-20240601-ABC123", "a-1", "c-1", nil,
		"org-1", string(status), now, now.Add(-120*time.Hour), end,
		nil, "100", 0, "0", "50",
		"0", "0", now, now,
	)
}

func TestRentalGetByID_ScansAllColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository()

	mock.ExpectQuery(`FROM rentals WHERE id=\$1`).
		WithArgs("r-1").
		WillReturnRows(rentalRow("r-1", domain.RentalRentedOut))

	rn, err := repo.GetByID(context.Background(), db, "r-1")
	require.NoError(t, err)

	assert.Equal(t, "r-1", rn.ID)
	assert.Equal(t, "RN-20240601-ABC123", rn.RentalNumber)
	assert.Equal(t, domain.RentalRentedOut, rn.Status)
	assert.Equal(t, "org-1", rn.OrgID)
	assert.Empty(t, rn.RateID)
	require.NotNil(t, rn.StartDate)
	require.NotNil(t, rn.ExpectedEnd)
	assert.Nil(t, rn.ActualEnd)
	assert.True(t, rn.DailyRate.Equal(decimal.NewFromInt(100)))
	assert.True(t, rn.Deposit.Equal(decimal.NewFromInt(50)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalGetByID_Missing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository()

	mock.ExpectQuery(`FROM rentals WHERE id=\$1`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), db, "gone")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListOverdueCandidates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRentalRepository()

	mock.ExpectQuery(`FROM rentals`).
		WithArgs("rented_out", sqlmock.AnyArg()).
		WillReturnRows(rentalRow("r-1", domain.RentalRentedOut))

	out, err := repo.ListOverdueCandidates(context.Background(), db, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r-1", out[0].ID)
}
