package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/notification"
	"github.com/assetflow/backend/internal/repository"
	"github.com/assetflow/backend/internal/workflow"
)

// Reminder horizons for upcoming maintenance, in days ahead.
var maintenanceHorizons = []int{0, 1, 3, 7}

// Sweeps bundles the daily background jobs with their dependencies.
type Sweeps struct {
	db          *database.DB
	loans       *repository.LoanRepository
	rentals     *repository.RentalRepository
	maintenance *repository.MaintenanceRepository
	loanSvc     *workflow.LoanService
	rentalSvc   *workflow.RentalService
	notifier    *notification.Service
	logger      *log.Logger
	now         func() time.Time
}

// NewSweeps creates the sweep set.
func NewSweeps(db *database.DB, loans *repository.LoanRepository, rentals *repository.RentalRepository, maintenance *repository.MaintenanceRepository, loanSvc *workflow.LoanService, rentalSvc *workflow.RentalService, notifier *notification.Service) *Sweeps {
	return &Sweeps{
		db:          db,
		loans:       loans,
		rentals:     rentals,
		maintenance: maintenance,
		loanSvc:     loanSvc,
		rentalSvc:   rentalSvc,
		notifier:    notifier,
		logger:      log.New(log.Writer(), "[Sweeps] ", log.LstdFlags),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterAll wires the sweeps into the scheduler at their fixed times.
func (s *Sweeps) RegisterAll(sched *Scheduler) {
	sched.Register(Job{Name: "overdue-loans", Hour: 0, Minute: 0, Run: s.OverdueLoans})
	sched.Register(Job{Name: "overdue-rentals", Hour: 0, Minute: 30, Run: s.OverdueRentals})
	sched.Register(Job{Name: "upcoming-maintenance", Hour: 1, Minute: 0, Run: s.UpcomingMaintenance})
}

// OverdueLoans marks still-out loans past their expected return as Overdue
// and notifies the borrower. Each loan is independent; one failure does
// not stop the sweep.
func (s *Sweeps) OverdueLoans(ctx context.Context) error {
	candidates, err := s.loans.ListOverdueCandidates(ctx, s.db, s.now())
	if err != nil {
		return err
	}
	for _, loan := range candidates {
		if err := s.loanSvc.MarkOverdue(ctx, loan); err != nil {
			s.logger.Printf("loan %s: mark overdue failed: %v", loan.ID, err)
			continue
		}
		days := loan.DaysOverdue(s.now())
		err := s.notifier.NotifyOncePerDay(ctx, loan.BorrowerID,
			"Loan overdue",
			fmt.Sprintf("Loan %s is %d day(s) overdue, please return the asset", loan.LoanNumber, days),
			"loan", loan.ID)
		if err != nil {
			s.logger.Printf("loan %s: notify failed: %v", loan.ID, err)
		}
	}
	s.logger.Printf("overdue-loans: %d candidate(s)", len(candidates))
	return nil
}

// OverdueRentals marks rented-out rentals past their expected end as
// Overdue.
func (s *Sweeps) OverdueRentals(ctx context.Context) error {
	candidates, err := s.rentals.ListOverdueCandidates(ctx, s.db, s.now())
	if err != nil {
		return err
	}
	for _, rental := range candidates {
		if err := s.rentalSvc.MarkOverdue(ctx, rental); err != nil {
			s.logger.Printf("rental %s: mark overdue failed: %v", rental.ID, err)
		}
	}
	s.logger.Printf("overdue-rentals: %d candidate(s)", len(candidates))
	return nil
}

// UpcomingMaintenance reminds technicians of maintenance due today and at
// the 1, 3 and 7 day horizons. The once-per-day guard makes re-runs after
// a restart idempotent.
func (s *Sweeps) UpcomingMaintenance(ctx context.Context) error {
	today := s.now()
	for _, days := range maintenanceHorizons {
		due, err := s.maintenance.ListDueOn(ctx, s.db, today.AddDate(0, 0, days))
		if err != nil {
			s.logger.Printf("upcoming-maintenance: horizon %dd query failed: %v", days, err)
			continue
		}
		for _, m := range due {
			if m.TechnicianID == "" {
				continue
			}
			err := s.notifier.NotifyOncePerDay(ctx, m.TechnicianID,
				"Maintenance due "+horizonLabel(days),
				fmt.Sprintf("%s is scheduled for %s", m.Title, m.ScheduledDate.Format("2006-01-02")),
				"maintenance_record", m.ID)
			if err != nil {
				s.logger.Printf("maintenance %s: notify failed: %v", m.ID, err)
			}
		}
	}
	return nil
}

func horizonLabel(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
