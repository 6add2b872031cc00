// Package workflow implements the loan, rental, work-order, conversion and
// approval command services. Each command re-reads current state, validates
// the move, and commits the workflow row together with any asset lifecycle
// side effect in one transaction.
package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/repository"
)

// numberFor builds a human-facing document number like LN-20260824-3FA2C1.
func numberFor(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

// LoanService runs the internal loan workflow.
type LoanService struct {
	db        *database.DB
	loans     *repository.LoanRepository
	assets    *repository.AssetRepository
	lifecycle *lifecycle.Service
	emitter   events.Emitter
	logger    *log.Logger
	now       func() time.Time
}

// NewLoanService creates a LoanService.
func NewLoanService(db *database.DB, loans *repository.LoanRepository, assets *repository.AssetRepository, lc *lifecycle.Service, emitter events.Emitter) *LoanService {
	return &LoanService{
		db:        db,
		loans:     loans,
		assets:    assets,
		lifecycle: lc,
		emitter:   emitter,
		logger:    log.New(log.Writer(), "[Loans] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LoanRequest is the create-loan input.
type LoanRequest struct {
	AssetID         string          `json:"asset_id" validate:"required,uuid4"`
	ExpectedReturn  time.Time       `json:"expected_return" validate:"required"`
	ConditionBefore string          `json:"condition_before"`
	Deposit         decimal.Decimal `json:"deposit"`
}

// Request creates a loan in Requested state. Only assets sitting in
// inventory can be requested.
func (s *LoanService) Request(ctx context.Context, req LoanRequest, claims *domain.UserClaims) (*domain.Loan, error) {
	asset, err := s.assets.GetByID(ctx, s.db, req.AssetID, orgScope(claims))
	if err != nil {
		return nil, err
	}
	if !asset.IsAvailable() {
		return nil, domain.ErrBusinessRule("asset_unavailable",
			"asset "+asset.ID+" is "+string(asset.Status)+", not available for loan")
	}
	if !req.ExpectedReturn.After(s.now()) {
		return nil, domain.ErrValidation("expected_return", "must be in the future")
	}

	loan := &domain.Loan{
		LoanNumber:      numberFor("LN", s.now()),
		AssetID:         asset.ID,
		BorrowerID:      claims.UserID,
		OrgID:           claims.OrgID,
		Status:          domain.LoanRequested,
		LoanDate:        s.now(),
		ExpectedReturn:  req.ExpectedReturn,
		ConditionBefore: req.ConditionBefore,
		Deposit:         req.Deposit,
	}
	if err := s.loans.Create(ctx, s.db, loan); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeLoanRequested, loan.ID, map[string]any{
		"loan_number": loan.LoanNumber,
		"asset_id":    loan.AssetID,
		"borrower_id": loan.BorrowerID,
	})
	return loan, nil
}

// Decide approves or rejects a Requested loan. Rejection is terminal and
// leaves the asset untouched.
func (s *LoanService) Decide(ctx context.Context, loanID string, approve bool, claims *domain.UserClaims) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, s.db, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanRequested {
		return nil, domain.ErrStateTransition(string(loan.Status), decisionName(approve))
	}
	if loan.BorrowerID == claims.UserID {
		return nil, domain.ErrBusinessRule("self_approval", "borrowers cannot decide their own loans")
	}

	loan.ApproverID = claims.UserID
	if approve {
		loan.Status = domain.LoanApproved
	} else {
		loan.Status = domain.LoanRejected
	}
	if err := s.loans.UpdateGuarded(ctx, s.db, loan, domain.LoanRequested); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeLoanDecided, loan.ID, map[string]any{
		"loan_number": loan.LoanNumber,
		"status":      string(loan.Status),
		"approver_id": loan.ApproverID,
		"borrower_id": loan.BorrowerID,
	})
	s.logger.Printf("loan %s %s by %s", loan.LoanNumber, loan.Status, claims.UserID)
	return loan, nil
}

// Checkout hands the asset to the borrower. The loan must be Approved and
// the borrower must have accepted the terms; the asset moves to InUse in
// the same transaction.
func (s *LoanService) Checkout(ctx context.Context, loanID string, termsAccepted bool, claims *domain.UserClaims) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, s.db, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanApproved {
		return nil, domain.ErrStateTransition(string(loan.Status), string(domain.LoanCheckedOut))
	}
	if !termsAccepted {
		return nil, domain.ErrBusinessRule("terms_not_accepted",
			"loan terms must be accepted before checkout")
	}

	loan.Status = domain.LoanCheckedOut
	loan.TermsAccepted = true
	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.loans.UpdateGuarded(ctx, tx, loan, domain.LoanApproved); err != nil {
			return err
		}
		_, err := s.lifecycle.ExecuteInTx(ctx, tx, loan.AssetID,
			domain.StateInInventory, domain.StateInUse,
			"checked out on loan "+loan.LoanNumber, claims.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// CheckinRequest is the return input. Outcome defaults to a clean return;
// damaged and lost outcomes are recorded on the loan and reflected on the
// asset.
type CheckinRequest struct {
	ConditionAfter string          `json:"condition_after"`
	DamageNotes    string          `json:"damage_notes"`
	Outcome        string          `json:"outcome" validate:"omitempty,oneof=returned damaged lost"`
	Penalty        decimal.Decimal `json:"penalty"`
}

// Checkin closes out a loan that is currently out. The asset returns to
// inventory, except a lost asset which is flagged lost/stolen.
func (s *LoanService) Checkin(ctx context.Context, loanID string, req CheckinRequest, claims *domain.UserClaims) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, s.db, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.Status.IsOut() {
		return nil, domain.ErrStateTransition(string(loan.Status), string(domain.LoanReturned))
	}
	expected := loan.Status

	switch req.Outcome {
	case "", "returned":
		loan.Status = domain.LoanReturned
	case "damaged":
		loan.Status = domain.LoanDamaged
	case "lost":
		loan.Status = domain.LoanLost
	default:
		return nil, domain.ErrValidation("outcome", "unknown outcome "+req.Outcome)
	}

	now := s.now()
	loan.ActualReturn = &now
	loan.ConditionAfter = req.ConditionAfter
	loan.DamageNotes = req.DamageNotes
	loan.Penalty = req.Penalty

	assetTarget := domain.StateInInventory
	reason := "returned from loan " + loan.LoanNumber
	if loan.Status == domain.LoanLost {
		assetTarget = domain.StateLostStolen
		reason = "reported lost on loan " + loan.LoanNumber
	}

	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.loans.UpdateGuarded(ctx, tx, loan, expected); err != nil {
			return err
		}
		_, err := s.lifecycle.ExecuteInTx(ctx, tx, loan.AssetID,
			domain.StateInUse, assetTarget, reason, claims.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeLoanReturned, loan.ID, map[string]any{
		"loan_number": loan.LoanNumber,
		"status":      string(loan.Status),
		"borrower_id": loan.BorrowerID,
	})
	return loan, nil
}

// MarkOverdue flips a still-out loan to Overdue. Called by the scheduler;
// a loan already returned by a concurrent checkin is left alone.
func (s *LoanService) MarkOverdue(ctx context.Context, loan *domain.Loan) error {
	expected := loan.Status
	loan.Status = domain.LoanOverdue
	if err := s.loans.UpdateGuarded(ctx, s.db, loan, expected); err != nil {
		return err
	}
	s.emitter.Emit(events.TypeLoanOverdue, loan.ID, map[string]any{
		"loan_number":  loan.LoanNumber,
		"borrower_id":  loan.BorrowerID,
		"days_overdue": loan.DaysOverdue(s.now()),
	})
	return nil
}

// Get returns one loan.
func (s *LoanService) Get(ctx context.Context, id string) (*domain.Loan, error) {
	return s.loans.GetByID(ctx, s.db, id)
}

// List returns loans visible to the claims.
func (s *LoanService) List(ctx context.Context, claims *domain.UserClaims, status domain.LoanStatus, page repository.Page) ([]*domain.Loan, error) {
	return s.loans.List(ctx, s.db, orgScope(claims), status, page)
}

func decisionName(approve bool) string {
	if approve {
		return string(domain.LoanApproved)
	}
	return string(domain.LoanRejected)
}

// orgScope returns the org filter for a user: super admins see everything.
func orgScope(claims *domain.UserClaims) string {
	if claims.IsSuperAdmin() {
		return ""
	}
	return claims.OrgID
}
