package api

import (
	"net/http"
	"time"

	"github.com/assetflow/backend/internal/billing"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/timesheet"
)

// --- rental timesheets ---

type timesheetPayload struct {
	RentalID string `json:"rental_id" validate:"required"`
	timesheet.EntryRequest
}

func (s *Server) createTimesheet(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "timesheet.create") {
		return
	}
	var payload timesheetPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	ts, err := s.Timesheets.Create(r.Context(), payload.RentalID, payload.EntryRequest, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ts)
}

func (s *Server) updateTimesheet(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "timesheet.update") {
		return
	}
	var req timesheet.EntryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ts, err := s.Timesheets.Update(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) listTimesheets(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "timesheet.read") {
		return
	}
	rentalID := r.URL.Query().Get("rental_id")
	if rentalID == "" {
		writeError(w, domain.ErrValidation("rental_id", "rental_id is required"))
		return
	}
	sheets, err := s.Timesheets.ListByRental(r.Context(), rentalID, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheets)
}

// timesheetMove adapts the uniform (id, claims) stage moves.
func (s *Server) timesheetMove(perm string, move func(r *http.Request) (*domain.RentalTimesheet, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requirePermission(w, r, perm) {
			return
		}
		ts, err := move(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)
	}
}

type timesheetRejectPayload struct {
	Reason string `json:"reason"`
}

func (s *Server) rejectTimesheet(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "timesheet.verify") {
		return
	}
	var payload timesheetRejectPayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	ts, err := s.Timesheets.Reject(r.Context(), pathVar(r, "id"), payload.Reason, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) requestTimesheetRevision(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "timesheet.verify") {
		return
	}
	var payload timesheetRejectPayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	ts, err := s.Timesheets.RequestRevision(r.Context(), pathVar(r, "id"), payload.Reason, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// --- billing ---

type openBillingPayload struct {
	RentalID    string    `json:"rental_id" validate:"required"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

func (s *Server) openBillingPeriod(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "billing.create") {
		return
	}
	var payload openBillingPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	period, err := s.Billing.Open(r.Context(), payload.RentalID, payload.PeriodStart, payload.PeriodEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, period)
}

func (s *Server) calculateBilling(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "billing.calculate") {
		return
	}
	var req billing.CalculateRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	period, err := s.Billing.Calculate(r.Context(), pathVar(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (s *Server) approveBilling(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "billing.approve") {
		return
	}
	period, err := s.Billing.Approve(r.Context(), pathVar(r, "id"), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// billingMove adapts the uniform id-only stage moves.
func (s *Server) billingMove(perm string, move func(r *http.Request) (*domain.BillingPeriod, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requirePermission(w, r, perm) {
			return
		}
		period, err := move(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, period)
	}
}

func (s *Server) getBillingPeriod(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "billing.read") {
		return
	}
	period, err := s.Billing.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// billingSummary rolls up all periods of the rental the period belongs to.
func (s *Server) billingSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "billing.read") {
		return
	}
	period, err := s.Billing.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.Billing.Summarize(r.Context(), period.RentalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
