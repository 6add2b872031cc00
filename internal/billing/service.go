package billing

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

// Service runs the billing-period workflow: open, calculate, approve,
// invoice, and the payment/dispute endgame.
type Service struct {
	db         *database.DB
	billing    *repository.BillingRepository
	rentals    *repository.RentalRepository
	timesheets *repository.TimesheetRepository
	emitter    events.Emitter
	dueDays    int
	logger     *log.Logger
	now        func() time.Time
}

// NewService creates the billing service. dueDays is the invoice payment
// window in days.
func NewService(db *database.DB, billing *repository.BillingRepository, rentals *repository.RentalRepository, timesheets *repository.TimesheetRepository, emitter events.Emitter, dueDays int) *Service {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &Service{
		db:         db,
		billing:    billing,
		rentals:    rentals,
		timesheets: timesheets,
		emitter:    emitter,
		dueDays:    dueDays,
		logger:     log.New(log.Writer(), "[Billing] ", log.LstdFlags),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Open creates a Draft billing period for a rental.
func (s *Service) Open(ctx context.Context, rentalID string, start, end time.Time) (*domain.BillingPeriod, error) {
	if !end.After(start) {
		return nil, domain.ErrValidation("period_end", "must be after period_start")
	}
	rental, err := s.rentals.GetByID(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.RateID == "" {
		return nil, domain.ErrBusinessRule("rental_rate",
			"rental "+rental.ID+" has no rate model, cannot bill")
	}
	b := &domain.BillingPeriod{
		RentalID:    rental.ID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      domain.BillingDraft,
	}
	if err := s.billing.Create(ctx, s.db, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CalculateRequest carries the manual charges for a calculation run.
type CalculateRequest struct {
	Charges
}

// Calculate aggregates approved timesheet hours over the period, freezes
// the rental's rate model onto the period and computes all amounts.
// Allowed from Draft and from Calculated, so a period can be recalculated
// after late timesheet approvals.
func (s *Service) Calculate(ctx context.Context, periodID string, req CalculateRequest) (*domain.BillingPeriod, error) {
	b, err := s.billing.GetByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BillingDraft && b.Status != domain.BillingCalculated {
		return nil, domain.ErrStateTransition(string(b.Status), string(domain.BillingCalculated))
	}
	rental, err := s.rentals.GetByID(ctx, s.db, b.RentalID)
	if err != nil {
		return nil, err
	}
	rate, err := s.rentals.GetRate(ctx, s.db, rental.RateID)
	if err != nil {
		return nil, err
	}
	hours, err := s.timesheets.SumApproved(ctx, s.db, b.RentalID, b.PeriodStart, b.PeriodEnd)
	if err != nil {
		return nil, err
	}

	expected := b.Status
	Calculate(b, hours, domain.RateSnapshot{
		HourlyRate:            rate.HourlyRate,
		MinimumHours:          rate.MinimumHours,
		OvertimeMultiplier:    rate.OvertimeMultiplier,
		StandbyMultiplier:     rate.StandbyMultiplier,
		BreakdownPenaltyDaily: rate.BreakdownPenaltyDaily,
	}, req.Charges)
	b.Status = domain.BillingCalculated

	if err := s.billing.UpdateGuarded(ctx, s.db, b, expected); err != nil {
		return nil, err
	}
	s.logger.Printf("period %s calculated: total %s", b.ID, b.Total)
	return b, nil
}

// Approve signs off a Calculated period.
func (s *Service) Approve(ctx context.Context, periodID string, claims *domain.UserClaims) (*domain.BillingPeriod, error) {
	b, err := s.billing.GetByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BillingCalculated {
		return nil, domain.ErrStateTransition(string(b.Status), string(domain.BillingApproved))
	}
	b.Status = domain.BillingApproved
	b.ApproverID = claims.UserID
	if err := s.billing.UpdateGuarded(ctx, s.db, b, domain.BillingCalculated); err != nil {
		return nil, err
	}
	return b, nil
}

// Invoice issues the invoice for an Approved period: number stamped from
// the issue instant, due date pushed out by the payment window.
func (s *Service) Invoice(ctx context.Context, periodID string) (*domain.BillingPeriod, error) {
	b, err := s.billing.GetByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BillingApproved {
		return nil, domain.ErrStateTransition(string(b.Status), string(domain.BillingInvoiced))
	}

	now := s.now()
	due := now.AddDate(0, 0, s.dueDays)
	b.Status = domain.BillingInvoiced
	b.InvoiceNumber = "INV-" + now.Format("20060102150405")
	b.DueDate = &due
	if err := s.billing.UpdateGuarded(ctx, s.db, b, domain.BillingApproved); err != nil {
		return nil, err
	}
	s.emitter.Emit(events.TypeBillingInvoiced, b.ID, map[string]any{
		"rental_id":      b.RentalID,
		"invoice_number": b.InvoiceNumber,
		"total":          b.Total.String(),
	})
	return b, nil
}

// MarkPaid closes an Invoiced period as paid.
func (s *Service) MarkPaid(ctx context.Context, periodID string) (*domain.BillingPeriod, error) {
	return s.move(ctx, periodID, domain.BillingInvoiced, domain.BillingPaid)
}

// Dispute flags an Invoiced period as disputed.
func (s *Service) Dispute(ctx context.Context, periodID string) (*domain.BillingPeriod, error) {
	return s.move(ctx, periodID, domain.BillingInvoiced, domain.BillingDisputed)
}

// ResolveDispute returns a Disputed period to Invoiced after resolution.
func (s *Service) ResolveDispute(ctx context.Context, periodID string) (*domain.BillingPeriod, error) {
	return s.move(ctx, periodID, domain.BillingDisputed, domain.BillingInvoiced)
}

func (s *Service) move(ctx context.Context, periodID string, from, to domain.BillingStatus) (*domain.BillingPeriod, error) {
	b, err := s.billing.GetByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if b.Status != from {
		return nil, domain.ErrStateTransition(string(b.Status), string(to))
	}
	b.Status = to
	if err := s.billing.UpdateGuarded(ctx, s.db, b, from); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns one billing period.
func (s *Service) Get(ctx context.Context, id string) (*domain.BillingPeriod, error) {
	return s.billing.GetByID(ctx, s.db, id)
}

// ListByRental returns a rental's billing periods.
func (s *Service) ListByRental(ctx context.Context, rentalID string) ([]*domain.BillingPeriod, error) {
	return s.billing.ListByRental(ctx, s.db, rentalID)
}

// Summary is the per-rental billing rollup.
type Summary struct {
	RentalID     string                  `json:"rental_id"`
	PeriodCount  int                     `json:"period_count"`
	InvoicedSum  decimal.Decimal         `json:"invoiced_total"`
	PaidSum      decimal.Decimal         `json:"paid_total"`
	OutstandingN int                     `json:"outstanding_count"`
	Periods      []*domain.BillingPeriod `json:"periods"`
}

// Summarize rolls up a rental's billing periods.
func (s *Service) Summarize(ctx context.Context, rentalID string) (*Summary, error) {
	periods, err := s.billing.ListByRental(ctx, s.db, rentalID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{RentalID: rentalID, PeriodCount: len(periods), Periods: periods}
	for _, p := range periods {
		switch p.Status {
		case domain.BillingInvoiced, domain.BillingDisputed:
			sum.InvoicedSum = sum.InvoicedSum.Add(p.Total)
			sum.OutstandingN++
		case domain.BillingPaid:
			sum.InvoicedSum = sum.InvoicedSum.Add(p.Total)
			sum.PaidSum = sum.PaidSum.Add(p.Total)
		}
	}
	return sum, nil
}
