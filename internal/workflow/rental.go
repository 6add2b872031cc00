package workflow

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/repository"
)

// overdueRateFraction is the daily late penalty as a fraction of the
// daily rate.
var overdueRateFraction = decimal.NewFromFloat(0.10)

// RentalService runs the external rental workflow.
type RentalService struct {
	db        *database.DB
	rentals   *repository.RentalRepository
	assets    *repository.AssetRepository
	clients   *repository.ClientRepository
	lifecycle *lifecycle.Service
	emitter   events.Emitter
	logger    *log.Logger
	now       func() time.Time
}

// NewRentalService creates a RentalService.
func NewRentalService(db *database.DB, rentals *repository.RentalRepository, assets *repository.AssetRepository, clients *repository.ClientRepository, lc *lifecycle.Service, emitter events.Emitter) *RentalService {
	return &RentalService{
		db:        db,
		rentals:   rentals,
		assets:    assets,
		clients:   clients,
		lifecycle: lc,
		emitter:   emitter,
		logger:    log.New(log.Writer(), "[Rentals] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RentalRequest is the create-rental input.
type RentalRequest struct {
	AssetID  string          `json:"asset_id" validate:"required,uuid4"`
	ClientID string          `json:"client_id" validate:"required,uuid4"`
	RateID   string          `json:"rate_id"`
	Deposit  decimal.Decimal `json:"deposit"`
}

// Request creates a rental in Requested state for a rentable asset and an
// active client.
func (s *RentalService) Request(ctx context.Context, req RentalRequest, claims *domain.UserClaims) (*domain.Rental, error) {
	asset, err := s.assets.GetByID(ctx, s.db, req.AssetID, orgScope(claims))
	if err != nil {
		return nil, err
	}
	if !asset.IsRentable() {
		return nil, domain.ErrBusinessRule("asset_unavailable",
			"asset "+asset.ID+" is "+string(asset.Status)+", not rentable")
	}
	client, err := s.clients.GetByID(ctx, s.db, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.IsActive {
		return nil, domain.ErrBusinessRule("client_inactive",
			"client "+client.ID+" is inactive")
	}

	rental := &domain.Rental{
		RentalNumber: numberFor("RN", s.now()),
		AssetID:      asset.ID,
		ClientID:     client.ID,
		RateID:       req.RateID,
		OrgID:        claims.OrgID,
		Status:       domain.RentalRequested,
		RequestDate:  s.now(),
		Deposit:      req.Deposit,
	}
	if err := s.rentals.Create(ctx, s.db, rental); err != nil {
		return nil, err
	}
	return rental, nil
}

// ApproveRequest fixes the commercial terms when a rental is approved.
type ApproveRequest struct {
	StartDate   time.Time       `json:"start_date" validate:"required"`
	ExpectedEnd time.Time       `json:"expected_end" validate:"required"`
	DailyRate   decimal.Decimal `json:"daily_rate" validate:"required"`
}

// Approve moves a Requested rental to Approved, fixing start, expected end
// and daily rate.
func (s *RentalService) Approve(ctx context.Context, rentalID string, req ApproveRequest, claims *domain.UserClaims) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalRequested {
		return nil, domain.ErrStateTransition(string(rental.Status), string(domain.RentalApproved))
	}
	if !req.ExpectedEnd.After(req.StartDate) {
		return nil, domain.ErrValidation("expected_end", "must be after start_date")
	}
	if req.DailyRate.IsNegative() || req.DailyRate.IsZero() {
		return nil, domain.ErrValidation("daily_rate", "must be positive")
	}

	rental.Status = domain.RentalApproved
	rental.StartDate = &req.StartDate
	rental.ExpectedEnd = &req.ExpectedEnd
	rental.DailyRate = req.DailyRate
	if err := s.rentals.UpdateGuarded(ctx, s.db, rental, domain.RentalRequested); err != nil {
		return nil, err
	}
	return rental, nil
}

// Reject terminally rejects a Requested rental.
func (s *RentalService) Reject(ctx context.Context, rentalID string, claims *domain.UserClaims) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalRequested {
		return nil, domain.ErrStateTransition(string(rental.Status), string(domain.RentalRejected))
	}
	rental.Status = domain.RentalRejected
	if err := s.rentals.UpdateGuarded(ctx, s.db, rental, domain.RentalRequested); err != nil {
		return nil, err
	}
	return rental, nil
}

// HandoverRequest documents the condition at a dispatch or return.
type HandoverRequest struct {
	ConditionRating int      `json:"condition_rating" validate:"min=1,max=5"`
	Photos          []string `json:"photos"`
	HasDamage       bool     `json:"has_damage"`
	Signature       string   `json:"signature"`
}

// Dispatch hands the asset to the client: the handover document, the
// rental status and the asset state commit together.
func (s *RentalService) Dispatch(ctx context.Context, rentalID string, req HandoverRequest, claims *domain.UserClaims) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalApproved {
		return nil, domain.ErrStateTransition(string(rental.Status), string(domain.RentalRentedOut))
	}
	asset, err := s.assets.GetByID(ctx, s.db, rental.AssetID, "")
	if err != nil {
		return nil, err
	}

	rental.Status = domain.RentalRentedOut
	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.rentals.UpdateGuarded(ctx, tx, rental, domain.RentalApproved); err != nil {
			return err
		}
		if err := s.rentals.InsertHandover(ctx, tx, &domain.RentalHandover{
			RentalID:        rental.ID,
			Kind:            domain.HandoverDispatch,
			ConditionRating: req.ConditionRating,
			Photos:          req.Photos,
			HasDamage:       req.HasDamage,
			RecordedBy:      claims.UserID,
			Signature:       req.Signature,
		}); err != nil {
			return err
		}
		_, err := s.lifecycle.ExecuteInTx(ctx, tx, rental.AssetID,
			asset.Status, domain.StateRentedOut,
			"dispatched on rental "+rental.RentalNumber, claims.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeRentalDispatched, rental.ID, map[string]any{
		"rental_number": rental.RentalNumber,
		"asset_id":      rental.AssetID,
		"client_id":     rental.ClientID,
	})
	return rental, nil
}

// Return takes the asset back: total days, the late penalty and the final
// total are computed here, and the asset goes back to inventory.
func (s *RentalService) Return(ctx context.Context, rentalID string, req HandoverRequest, claims *domain.UserClaims) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalRentedOut && rental.Status != domain.RentalOverdue {
		return nil, domain.ErrStateTransition(string(rental.Status), string(domain.RentalReturned))
	}
	if rental.StartDate == nil || rental.ExpectedEnd == nil {
		return nil, domain.ErrBusinessRule("rental_terms",
			"rental "+rental.ID+" has no approved terms")
	}
	expected := rental.Status

	now := s.now()
	rental.ActualEnd = &now
	// The return day counts as a rental day, so the span is inclusive of
	// both endpoints. Overdue days only count full days past the agreed end.
	rental.TotalDays = calendarDays(*rental.StartDate, now) + 1
	rental.Subtotal = rental.DailyRate.Mul(decimal.NewFromInt(int64(rental.TotalDays)))
	if overdueDays := calendarDays(*rental.ExpectedEnd, now); overdueDays > 0 {
		rental.Penalty = rental.DailyRate.Mul(overdueRateFraction).
			Mul(decimal.NewFromInt(int64(overdueDays)))
	}
	rental.Total = rental.Subtotal.Add(rental.Penalty)
	rental.Status = domain.RentalReturned

	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.rentals.UpdateGuarded(ctx, tx, rental, expected); err != nil {
			return err
		}
		if err := s.rentals.InsertHandover(ctx, tx, &domain.RentalHandover{
			RentalID:        rental.ID,
			Kind:            domain.HandoverReturn,
			ConditionRating: req.ConditionRating,
			Photos:          req.Photos,
			HasDamage:       req.HasDamage,
			RecordedBy:      claims.UserID,
			Signature:       req.Signature,
		}); err != nil {
			return err
		}
		_, err := s.lifecycle.ExecuteInTx(ctx, tx, rental.AssetID,
			domain.StateRentedOut, domain.StateInInventory,
			"returned from rental "+rental.RentalNumber, claims.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeRentalReturned, rental.ID, map[string]any{
		"rental_number": rental.RentalNumber,
		"total":         rental.Total.String(),
		"total_days":    rental.TotalDays,
	})
	return rental, nil
}

// Cancel terminally cancels a rental that has not been dispatched.
func (s *RentalService) Cancel(ctx context.Context, rentalID string, claims *domain.UserClaims) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalRequested && rental.Status != domain.RentalApproved {
		return nil, domain.ErrStateTransition(string(rental.Status), string(domain.RentalCancelled))
	}
	expected := rental.Status
	rental.Status = domain.RentalCancelled
	if err := s.rentals.UpdateGuarded(ctx, s.db, rental, expected); err != nil {
		return nil, err
	}
	return rental, nil
}

// MarkOverdue flips a still-out rental to Overdue. Called by the scheduler.
func (s *RentalService) MarkOverdue(ctx context.Context, rental *domain.Rental) error {
	expected := rental.Status
	rental.Status = domain.RentalOverdue
	if err := s.rentals.UpdateGuarded(ctx, s.db, rental, expected); err != nil {
		return err
	}
	s.emitter.Emit(events.TypeRentalOverdue, rental.ID, map[string]any{
		"rental_number": rental.RentalNumber,
		"client_id":     rental.ClientID,
	})
	return nil
}

// Get returns one rental.
func (s *RentalService) Get(ctx context.Context, id string) (*domain.Rental, error) {
	return s.rentals.GetByID(ctx, s.db, id)
}

// List returns rentals visible to the claims.
func (s *RentalService) List(ctx context.Context, claims *domain.UserClaims, status domain.RentalStatus, page repository.Page) ([]*domain.Rental, error) {
	return s.rentals.List(ctx, s.db, orgScope(claims), status, page)
}

// Handovers returns the handover trail of a rental.
func (s *RentalService) Handovers(ctx context.Context, rentalID string) ([]*domain.RentalHandover, error) {
	return s.rentals.ListHandovers(ctx, s.db, rentalID)
}

// calendarDays counts the calendar days from a's date to b's date,
// ignoring time of day, zero when b is on or before a's date.
func calendarDays(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a) / (24 * time.Hour))
}
