// Package timesheet implements the three-stage timesheet workflow:
// the checker drafts and submits, an internal verifier verifies, and the
// client PIC gives final approval. Only approved sheets feed billing.
package timesheet

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

// Service runs the timesheet workflow.
type Service struct {
	db         *database.DB
	timesheets *repository.TimesheetRepository
	rentals    *repository.RentalRepository
	users      *repository.UserRepository
	emitter    events.Emitter
	logger     *log.Logger
}

// NewService creates the timesheet service.
func NewService(db *database.DB, timesheets *repository.TimesheetRepository, rentals *repository.RentalRepository, users *repository.UserRepository, emitter events.Emitter) *Service {
	return &Service{
		db:         db,
		timesheets: timesheets,
		rentals:    rentals,
		users:      users,
		emitter:    emitter,
		logger:     log.New(log.Writer(), "[Timesheets] ", log.LstdFlags),
	}
}

// EntryRequest is the create/edit input. Overtime and hm/km usage are
// derived server-side; values sent by the client are ignored.
type EntryRequest struct {
	WorkDate        time.Time        `json:"work_date" validate:"required"`
	OperatingHours  decimal.Decimal  `json:"operating_hours"`
	StandbyHours    decimal.Decimal  `json:"standby_hours"`
	BreakdownHours  decimal.Decimal  `json:"breakdown_hours"`
	HmKmStart       *decimal.Decimal `json:"hm_km_start"`
	HmKmEnd         *decimal.Decimal `json:"hm_km_end"`
	OperationStatus string           `json:"operation_status" validate:"omitempty,oneof=operating standby breakdown idle"`
	Notes           string           `json:"notes"`
	Photos          []string         `json:"photos"`
}

func (r EntryRequest) validateHours() error {
	for _, h := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"operating_hours", r.OperatingHours},
		{"standby_hours", r.StandbyHours},
		{"breakdown_hours", r.BreakdownHours},
	} {
		if h.v.IsNegative() {
			return domain.ErrValidation(h.name, "must not be negative")
		}
		if h.v.GreaterThan(decimal.NewFromInt(24)) {
			return domain.ErrValidation(h.name, "cannot exceed 24")
		}
	}
	if r.HmKmStart != nil && r.HmKmEnd != nil && r.HmKmEnd.LessThan(*r.HmKmStart) {
		return domain.ErrValidation("hm_km_end", "must not be below hm_km_start")
	}
	return nil
}

// Create records a Draft timesheet against a dispatched rental. The caller
// becomes the checker.
func (s *Service) Create(ctx context.Context, rentalID string, req EntryRequest, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	if err := req.validateHours(); err != nil {
		return nil, err
	}
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalRentedOut && rental.Status != domain.RentalOverdue {
		return nil, domain.ErrBusinessRule("rental_not_active",
			"rental "+rental.ID+" is "+string(rental.Status)+", timesheets need an active rental")
	}

	ts := &domain.RentalTimesheet{
		RentalID:        rental.ID,
		WorkDate:        req.WorkDate,
		OperatingHours:  req.OperatingHours,
		StandbyHours:    req.StandbyHours,
		BreakdownHours:  req.BreakdownHours,
		HmKmStart:       req.HmKmStart,
		HmKmEnd:         req.HmKmEnd,
		OperationStatus: req.OperationStatus,
		Status:          domain.TimesheetDraft,
		CheckerID:       claims.UserID,
		Notes:           req.Notes,
		Photos:          req.Photos,
	}
	ts.ComputeDerived()
	if err := s.timesheets.Create(ctx, s.db, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Update edits a Draft or Revision timesheet. Only the original checker
// may edit; derived fields are recomputed.
func (s *Service) Update(ctx context.Context, id string, req EntryRequest, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	if err := req.validateHours(); err != nil {
		return nil, err
	}
	ts, err := s.timesheets.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != domain.TimesheetDraft && ts.Status != domain.TimesheetRevision {
		return nil, domain.ErrStateTransition(string(ts.Status), string(domain.TimesheetDraft))
	}
	if ts.CheckerID != claims.UserID {
		return nil, domain.ErrForbidden("only the original checker can edit this timesheet")
	}

	expected := ts.Status
	ts.WorkDate = req.WorkDate
	ts.OperatingHours = req.OperatingHours
	ts.StandbyHours = req.StandbyHours
	ts.BreakdownHours = req.BreakdownHours
	ts.HmKmStart = req.HmKmStart
	ts.HmKmEnd = req.HmKmEnd
	ts.OperationStatus = req.OperationStatus
	ts.Notes = req.Notes
	ts.Photos = req.Photos
	ts.ComputeDerived()
	if err := s.timesheets.UpdateGuarded(ctx, s.db, ts, expected); err != nil {
		return nil, err
	}
	return ts, nil
}

// Submit moves a Draft or Revision sheet to Submitted. Checker only.
func (s *Service) Submit(ctx context.Context, id string, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != domain.TimesheetDraft && ts.Status != domain.TimesheetRevision {
		return nil, domain.ErrStateTransition(string(ts.Status), string(domain.TimesheetSubmitted))
	}
	if ts.CheckerID != claims.UserID {
		return nil, domain.ErrForbidden("only the original checker can submit this timesheet")
	}
	expected := ts.Status
	ts.Status = domain.TimesheetSubmitted
	if err := s.timesheets.UpdateGuarded(ctx, s.db, ts, expected); err != nil {
		return nil, err
	}
	s.emitMoved(ts)
	return ts, nil
}

// Verify moves a Submitted sheet to Verified. The verifier must be a
// different user than the checker.
func (s *Service) Verify(ctx context.Context, id string, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != domain.TimesheetSubmitted {
		return nil, domain.ErrStateTransition(string(ts.Status), string(domain.TimesheetVerified))
	}
	if ts.CheckerID == claims.UserID {
		return nil, domain.ErrBusinessRule("self_verification",
			"checkers cannot verify their own timesheets")
	}
	ts.Status = domain.TimesheetVerified
	ts.VerifierID = claims.UserID
	if err := s.timesheets.UpdateGuarded(ctx, s.db, ts, domain.TimesheetSubmitted); err != nil {
		return nil, err
	}
	s.emitMoved(ts)
	return ts, nil
}

// Approve gives the final client sign-off on a Verified sheet. The caller
// must be flagged as a timesheet-approving PIC on their user record; the
// flag is checked live, not from the token.
func (s *Service) Approve(ctx context.Context, id string, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != domain.TimesheetVerified {
		return nil, domain.ErrStateTransition(string(ts.Status), string(domain.TimesheetApproved))
	}
	pic, err := s.users.GetByID(ctx, s.db, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !pic.CanApproveTS {
		return nil, domain.ErrUnauthorized("user is not authorized to approve timesheets")
	}

	ts.Status = domain.TimesheetApproved
	ts.ClientPICID = claims.UserID
	if err := s.timesheets.UpdateGuarded(ctx, s.db, ts, domain.TimesheetVerified); err != nil {
		return nil, err
	}
	s.emitMoved(ts)
	return ts, nil
}

// Reject terminally rejects a Submitted or Verified sheet.
func (s *Service) Reject(ctx context.Context, id, reason string, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	return s.sendBack(ctx, id, reason, domain.TimesheetRejected, claims)
}

// RequestRevision sends a Submitted or Verified sheet back to the checker
// for correction.
func (s *Service) RequestRevision(ctx context.Context, id, reason string, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	return s.sendBack(ctx, id, reason, domain.TimesheetRevision, claims)
}

func (s *Service) sendBack(ctx context.Context, id, reason string, to domain.TimesheetStatus, claims *domain.UserClaims) (*domain.RentalTimesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != domain.TimesheetSubmitted && ts.Status != domain.TimesheetVerified {
		return nil, domain.ErrStateTransition(string(ts.Status), string(to))
	}
	if ts.CheckerID == claims.UserID {
		return nil, domain.ErrBusinessRule("self_decision",
			"checkers cannot decide their own timesheets")
	}
	expected := ts.Status
	ts.Status = to
	if reason != "" {
		ts.Notes = reason
	}
	if err := s.timesheets.UpdateGuarded(ctx, s.db, ts, expected); err != nil {
		return nil, err
	}
	s.emitMoved(ts)
	return ts, nil
}

// Get returns one timesheet.
func (s *Service) Get(ctx context.Context, id string) (*domain.RentalTimesheet, error) {
	return s.timesheets.GetByID(ctx, s.db, id)
}

// ListByRental returns a rental's timesheets in work-date order.
func (s *Service) ListByRental(ctx context.Context, rentalID string, page repository.Page) ([]*domain.RentalTimesheet, error) {
	return s.timesheets.ListByRental(ctx, s.db, rentalID, page)
}

func (s *Service) emitMoved(ts *domain.RentalTimesheet) {
	s.emitter.Emit(events.TypeTimesheetMoved, ts.ID, map[string]any{
		"rental_id":  ts.RentalID,
		"status":     string(ts.Status),
		"checker_id": ts.CheckerID,
	})
}
