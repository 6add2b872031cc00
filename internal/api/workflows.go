package api

import (
	"net/http"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/workflow"
)

// --- loans ---

func (s *Server) createLoan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.create") {
		return
	}
	var req workflow.LoanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := s.Loans.Request(r.Context(), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) listLoans(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.read") {
		return
	}
	status := domain.LoanStatus(r.URL.Query().Get("status"))
	loans, err := s.Loans.List(r.Context(), claims(r), status, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) getLoan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.read") {
		return
	}
	loan, err := s.Loans.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

type loanDecisionPayload struct {
	Approve bool `json:"approve"`
}

func (s *Server) decideLoan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.approve") {
		return
	}
	payload := loanDecisionPayload{Approve: true}
	// An empty body means plain approval.
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	loan, err := s.Loans.Decide(r.Context(), pathVar(r, "id"), payload.Approve, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

type checkoutPayload struct {
	TermsAccepted bool `json:"terms_accepted"`
}

func (s *Server) checkoutLoan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.checkout") {
		return
	}
	var payload checkoutPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	loan, err := s.Loans.Checkout(r.Context(), pathVar(r, "id"), payload.TermsAccepted, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) checkinLoan(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "loan.checkin") {
		return
	}
	var req workflow.CheckinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := s.Loans.Checkin(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// --- rentals ---

func (s *Server) createRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.create") {
		return
	}
	var req workflow.RentalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rental, err := s.Rentals.Request(r.Context(), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (s *Server) listRentals(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.read") {
		return
	}
	status := domain.RentalStatus(r.URL.Query().Get("status"))
	rentals, err := s.Rentals.List(r.Context(), claims(r), status, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (s *Server) getRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.read") {
		return
	}
	rental, err := s.Rentals.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	handovers, err := s.Rentals.Handovers(r.Context(), rental.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rental": rental, "handovers": handovers})
}

func (s *Server) approveRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.approve") {
		return
	}
	var req workflow.ApproveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rental, err := s.Rentals.Approve(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (s *Server) rejectRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.approve") {
		return
	}
	rental, err := s.Rentals.Reject(r.Context(), pathVar(r, "id"), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (s *Server) dispatchRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.dispatch") {
		return
	}
	var req workflow.HandoverRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rental, err := s.Rentals.Dispatch(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (s *Server) returnRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.return") {
		return
	}
	var req workflow.HandoverRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rental, err := s.Rentals.Return(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (s *Server) cancelRental(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "rental.cancel") {
		return
	}
	rental, err := s.Rentals.Cancel(r.Context(), pathVar(r, "id"), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

// --- work orders ---

func (s *Server) createWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.create") {
		return
	}
	var req workflow.WorkOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := s.WorkOrders.Create(r.Context(), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) listWorkOrders(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.read") {
		return
	}
	status := domain.WorkOrderStatus(r.URL.Query().Get("status"))
	orders, err := s.WorkOrders.List(r.Context(), claims(r), status, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.read") {
		return
	}
	order, checklist, parts, err := s.WorkOrders.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"work_order": order,
		"checklist":  checklist,
		"parts":      parts,
	})
}

// workOrderAction adapts the uniform (id, claims) commands.
func (s *Server) workOrderAction(perm string, fn func(*http.Request) (*domain.WorkOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requirePermission(w, r, perm) {
			return
		}
		order, err := fn(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func (s *Server) completeWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.complete") {
		return
	}
	var req workflow.CompleteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := s.WorkOrders.Complete(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) addWorkOrderPart(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.update") {
		return
	}
	var part domain.WorkOrderPart
	if err := decode(r, &part); err != nil {
		writeError(w, err)
		return
	}
	if err := s.WorkOrders.AddPart(r.Context(), pathVar(r, "id"), &part); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, part)
}

func (s *Server) removeWorkOrderPart(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.update") {
		return
	}
	if err := s.WorkOrders.RemovePart(r.Context(), pathVar(r, "id"), pathVar(r, "partID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": pathVar(r, "partID")})
}

type checklistPayload struct {
	Completed bool `json:"completed"`
}

func (s *Server) toggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "workorder.update") {
		return
	}
	var payload checklistPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := s.WorkOrders.ToggleChecklist(r.Context(), pathVar(r, "itemID"), payload.Completed, claims(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":   pathVar(r, "itemID"),
		"completed": payload.Completed,
	})
}

// --- approvals ---

func (s *Server) pendingApprovals(w http.ResponseWriter, r *http.Request) {
	items, err := s.Approvals.Pending(r.Context(), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) myApprovalRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.Approvals.Mine(r.Context(), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

type approvalDecisionPayload struct {
	Notes string `json:"notes"`
}

func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
	var payload approvalDecisionPayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	req, err := s.Approvals.Approve(r.Context(), pathVar(r, "id"), payload.Notes, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request) {
	var payload approvalDecisionPayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	req, err := s.Approvals.Reject(r.Context(), pathVar(r, "id"), payload.Notes, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
