package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// LoanRepository is the SQL gateway for internal loans.
type LoanRepository struct{}

// NewLoanRepository creates a LoanRepository.
func NewLoanRepository() *LoanRepository { return &LoanRepository{} }

const loanColumns = `id, loan_number, asset_id, borrower_id, approver_id,
	org_id, status, loan_date, expected_return, actual_return,
	condition_before, condition_after, damage_notes, terms_accepted,
	deposit, penalty, created_at, updated_at`

// Create inserts a loan in Requested state.
func (r *LoanRepository) Create(ctx context.Context, q database.Querier, l *domain.Loan) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		l.ID, l.LoanNumber, l.AssetID, l.BorrowerID, nullStr(l.ApproverID),
		nullStr(l.OrgID), string(l.Status), l.LoanDate, l.ExpectedReturn,
		nullTime(l.ActualReturn), nullStr(l.ConditionBefore),
		nullStr(l.ConditionAfter), nullStr(l.DamageNotes), l.TermsAccepted,
		l.Deposit, l.Penalty, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return translate("loan.create", err)
	}
	return nil
}

// GetByID fetches one loan.
func (r *LoanRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.Loan, error) {
	row := q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id=$1`, id)
	l, err := scanLoan(row)
	if err != nil {
		return nil, notFoundOr("loan.get", "loan", id, err)
	}
	return l, nil
}

// List returns loans, newest first, optionally filtered by org and status.
func (r *LoanRepository) List(ctx context.Context, q database.Querier, orgID string, status domain.LoanStatus, page Page) ([]*domain.Loan, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE ($1 = '' OR org_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, string(status), page.Size, page.Offset())
	if err != nil {
		return nil, translate("loan.list", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListPending returns Requested loans for the pending-approvals merge.
func (r *LoanRepository) ListPending(ctx context.Context, q database.Querier, orgID string) ([]*domain.Loan, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = $1 AND ($2 = '' OR org_id = $2)
		ORDER BY created_at DESC`, string(domain.LoanRequested), orgID)
	if err != nil {
		return nil, translate("loan.list_pending", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

// ListOverdueCandidates returns loans still out past their expected return.
func (r *LoanRepository) ListOverdueCandidates(ctx context.Context, q database.Querier, asOf time.Time) ([]*domain.Loan, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status IN ($1, $2) AND expected_return < $3`,
		string(domain.LoanCheckedOut), string(domain.LoanInUse), asOf)
	if err != nil {
		return nil, translate("loan.overdue_candidates", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

// UpdateGuarded rewrites the loan's workflow fields guarded by the
// expected current status. Zero rows means a concurrent command won.
func (r *LoanRepository) UpdateGuarded(ctx context.Context, q database.Querier, l *domain.Loan, expected domain.LoanStatus) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE loans SET status=$3, approver_id=$4, actual_return=$5,
			condition_before=$6, condition_after=$7, damage_notes=$8,
			terms_accepted=$9, penalty=$10, updated_at=$11
		WHERE id=$1 AND status=$2`,
		l.ID, string(expected), string(l.Status), nullStr(l.ApproverID),
		nullTime(l.ActualReturn), nullStr(l.ConditionBefore),
		nullStr(l.ConditionAfter), nullStr(l.DamageNotes), l.TermsAccepted,
		l.Penalty, l.UpdatedAt)
	if err != nil {
		return translate("loan.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("loan_state",
			"loan "+l.ID+" is no longer "+string(expected))
	}
	return nil
}

func collectLoans(rows interface {
	Next() bool
	Err() error
	Scan(dest ...any) error
}) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, translate("loan.scan", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLoan(s scanner) (*domain.Loan, error) {
	l := &domain.Loan{}
	var approver, org, condBefore, condAfter, damage stringOrNull
	var status string
	var actualReturn nullTimeCol
	err := s.Scan(&l.ID, &l.LoanNumber, &l.AssetID, &l.BorrowerID, &approver,
		&org, &status, &l.LoanDate, &l.ExpectedReturn, &actualReturn,
		&condBefore, &condAfter, &damage, &l.TermsAccepted,
		&l.Deposit, &l.Penalty, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ApproverID = approver.String
	l.OrgID = org.String
	l.Status = domain.LoanStatus(status)
	l.ActualReturn = actualReturn.Ptr()
	l.ConditionBefore = condBefore.String
	l.ConditionAfter = condAfter.String
	l.DamageNotes = damage.String
	return l, nil
}
