package notification

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

func newNotifier(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	svc := NewService(database.Wrap(pool), repository.NewNotificationRepository(), NewHub(), events.NewBus())
	return svc, mock
}

func TestTargetOf_MapsUserFacingEvents(t *testing.T) {
	ev := events.NewEvent(events.TypeLoanDecided, "l-1", map[string]any{
		"borrower_id": "u-1",
		"loan_number": "LN-1",
		"status":      "approved",
	})
	userID, title, message := targetOf(ev)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "Loan approved", title)
	assert.Contains(t, message, "LN-1")
}

// The daily sweep owns overdue-loan notifications via NotifyOncePerDay;
// the bus consumer must not persist a second row for the same loan.
func TestHandle_LoanOverdueDoesNotPersist(t *testing.T) {
	svc, mock := newNotifier(t)

	ev := events.NewEvent(events.TypeLoanOverdue, "l-1", map[string]any{
		"borrower_id":  "u-1",
		"loan_number":  "LN-1",
		"days_overdue": 2,
	})
	svc.handle(context.Background(), ev)

	assert.NoError(t, mock.ExpectationsWereMet(), "no INSERT may run for loan.overdue")
}

func TestNotifyOncePerDay_SkipsWhenTodayAlreadyNotified(t *testing.T) {
	svc, mock := newNotifier(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("u-1", "loan", "l-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := svc.NotifyOncePerDay(context.Background(), "u-1",
		"Loan overdue", "Loan LN-1 is 2 day(s) overdue", "loan", "l-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifyOncePerDay_PersistsFirstOfTheDay(t *testing.T) {
	svc, mock := newNotifier(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("u-1", "loan", "l-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.NotifyOncePerDay(context.Background(), "u-1",
		"Loan overdue", "Loan LN-1 is 2 day(s) overdue", "loan", "l-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
