package timesheet

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	svc := NewService(database.Wrap(pool), repository.NewTimesheetRepository(),
		repository.NewRentalRepository(), repository.NewUserRepository(), events.NewBus())
	return svc, mock
}

func rentalRow(id string, status domain.RentalStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "rental_number", "asset_id", "client_id", "rate_id",
		"org_id", "status", "request_date", "start_date", "expected_end",
		"actual_end", "daily_rate", "total_days", "subtotal", "deposit",
		"penalty", "total", "created_at", "updated_at",
	}).AddRow(
		id, "RN-1", "a-1", "c-1", nil,
		"org-1", string(status), now, now, now.Add(72*time.Hour),
		nil, "100", 0, "0", "0",
		"0", "0", now, now,
	)
}

func timesheetRow(id string, status domain.TimesheetStatus, checkerID string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "rental_id", "work_date", "operating_hours",
		"standby_hours", "overtime_hours", "breakdown_hours", "hm_km_start",
		"hm_km_end", "hm_km_usage", "operation_status", "status", "checker_id",
		"verifier_id", "client_pic_id", "notes", "photos", "created_at", "updated_at",
	}).AddRow(
		id, "r-1", now, "8",
		"0", "0", "0", nil,
		nil, nil, "operating", string(status), checkerID,
		nil, nil, nil, []byte("{}"), now, now,
	)
}

func userRow(id string, canApprove bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "code", "role_level",
		"department_id", "org_id", "is_active", "can_approve_timesheet",
		"last_login_at", "created_at",
	}).AddRow(
		id, id+"@example.com", "PIC", "x", "user", 5,
		nil, "org-1", true, canApprove,
		nil, time.Now().UTC(),
	)
}

func entry(operating float64) EntryRequest {
	return EntryRequest{
		WorkDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		OperatingHours:  decimal.NewFromFloat(operating),
		OperationStatus: "operating",
	}
}

func claimsFor(id string) *domain.UserClaims {
	return &domain.UserClaims{UserID: id, RoleLevel: domain.RoleLevelUser}
}

func TestCreate_RequiresActiveRental(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rentals WHERE id=\$1`).
		WithArgs("r-1").
		WillReturnRows(rentalRow("r-1", domain.RentalApproved))

	_, err := svc.Create(context.Background(), "r-1", entry(8), claimsFor("chk-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}

func TestCreate_DraftsWithDerivedOvertime(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rentals WHERE id=\$1`).
		WithArgs("r-1").
		WillReturnRows(rentalRow("r-1", domain.RentalRentedOut))
	mock.ExpectExec(`INSERT INTO rental_timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ts, err := svc.Create(context.Background(), "r-1", entry(10), claimsFor("chk-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.TimesheetDraft, ts.Status)
	assert.Equal(t, "chk-1", ts.CheckerID)
	assert.True(t, ts.OvertimeHours.Equal(decimal.NewFromInt(2)),
		"operating hours past 8 become overtime")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RejectsNegativeHours(t *testing.T) {
	svc, _ := newService(t)

	req := entry(8)
	req.StandbyHours = decimal.NewFromInt(-1)
	_, err := svc.Create(context.Background(), "r-1", req, claimsFor("chk-1"))

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdate_OnlyTheCheckerMayEdit(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetDraft, "chk-1"))

	_, err := svc.Update(context.Background(), "ts-1", entry(8), claimsFor("other"))

	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
	assert.NoError(t, mock.ExpectationsWereMet(), "no write for a non-checker edit")
}

func TestUpdate_SubmittedSheetIsLocked(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetSubmitted, "chk-1"))

	_, err := svc.Update(context.Background(), "ts-1", entry(8), claimsFor("chk-1"))

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
}

func TestVerify_CheckerCannotVerifyOwnSheet(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetSubmitted, "chk-1"))

	_, err := svc.Verify(context.Background(), "ts-1", claimsFor("chk-1"))

	var rule *domain.BusinessRuleError
	assert.ErrorAs(t, err, &rule)
}

func TestVerify_MovesSubmittedToVerified(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetSubmitted, "chk-1"))
	mock.ExpectExec(`UPDATE rental_timesheets SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ts, err := svc.Verify(context.Background(), "ts-1", claimsFor("ver-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.TimesheetVerified, ts.Status)
	assert.Equal(t, "ver-1", ts.VerifierID)
}

func TestApprove_RequiresTheLivePICFlag(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetVerified, "chk-1"))
	mock.ExpectQuery(`FROM users u`).
		WithArgs("pic-1").
		WillReturnRows(userRow("pic-1", false))

	_, err := svc.Approve(context.Background(), "ts-1", claimsFor("pic-1"))

	var unauth *domain.UnauthorizedError
	assert.ErrorAs(t, err, &unauth)
	assert.NoError(t, mock.ExpectationsWereMet(), "no write without the approval flag")
}

func TestApprove_FlaggedPICApproves(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetVerified, "chk-1"))
	mock.ExpectQuery(`FROM users u`).
		WithArgs("pic-1").
		WillReturnRows(userRow("pic-1", true))
	mock.ExpectExec(`UPDATE rental_timesheets SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ts, err := svc.Approve(context.Background(), "ts-1", claimsFor("pic-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.TimesheetApproved, ts.Status)
	assert.Equal(t, "pic-1", ts.ClientPICID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_OnlyVerifiedSheetsAreApprovable(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetDraft, "chk-1"))

	_, err := svc.Approve(context.Background(), "ts-1", claimsFor("pic-1"))

	var ste *domain.StateTransitionError
	assert.ErrorAs(t, err, &ste)
}

func TestRequestRevision_ReturnsSheetToChecker(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM rental_timesheets WHERE id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRow("ts-1", domain.TimesheetSubmitted, "chk-1"))
	mock.ExpectExec(`UPDATE rental_timesheets SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ts, err := svc.RequestRevision(context.Background(), "ts-1", "hours look wrong", claimsFor("ver-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.TimesheetRevision, ts.Status)
	assert.Equal(t, "hours look wrong", ts.Notes)
}
