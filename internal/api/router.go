package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/middleware"
)

// Router wires every route behind the middleware chain. Public routes are
// limited to login, registration, health, metrics and the WebSocket
// upgrade (which does its own token handling); everything else requires a
// verified bearer token.
func (s *Server) Router(limiter *middleware.RateLimiter) *mux.Router {
	root := mux.NewRouter()
	root.Use(middleware.Logging, middleware.Metrics)

	root.HandleFunc("/health", s.health).Methods(http.MethodGet)
	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	root.HandleFunc("/ws", s.Hub.ServeWS(s.Auth)).Methods(http.MethodGet)

	public := root.PathPrefix("/api/auth").Subrouter()
	public.Use(limiter.Middleware)
	public.HandleFunc("/login", s.login).Methods(http.MethodPost)
	public.HandleFunc("/register", s.register).Methods(http.MethodPost)

	api := root.PathPrefix("/api").Subrouter()
	api.Use(s.Auth.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, err)
	}))
	api.Use(limiter.Middleware)

	api.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)

	// Assets and lifecycle.
	api.HandleFunc("/assets", s.listAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets", s.createAsset).Methods(http.MethodPost)
	api.HandleFunc("/assets/search", s.searchAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/export", s.exportAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", s.getAsset).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", s.updateAsset).Methods(http.MethodPut)
	api.HandleFunc("/assets/{id}", s.deleteAsset).Methods(http.MethodDelete)
	api.HandleFunc("/assets/{id}/depreciation", s.depreciationSchedule).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/lifecycle/request-transition", s.requestTransition).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}/lifecycle/history", s.lifecycleHistory).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/lifecycle/valid-transitions", s.validTransitions).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/lifecycle/status", s.lifecycleStatus).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/convert", s.requestConversion).Methods(http.MethodPost)

	// Sensor telemetry scoped under the asset.
	api.HandleFunc("/assets/{id}/sensors/readings", s.recordReading).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}/sensors/readings", s.listReadings).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/sensors/readings/range", s.listReadingsRange).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/sensors/thresholds", s.setThreshold).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}/sensors/thresholds", s.listThresholds).Methods(http.MethodGet)
	api.HandleFunc("/sensors/alerts", s.listAlerts).Methods(http.MethodGet)
	api.HandleFunc("/sensors/alerts/{id}/acknowledge", s.acknowledgeAlert).Methods(http.MethodPost)
	api.HandleFunc("/sensors/alerts/{id}/resolve", s.resolveAlert).Methods(http.MethodPost)

	// Maintenance.
	api.HandleFunc("/maintenance", s.listMaintenance).Methods(http.MethodGet)
	api.HandleFunc("/maintenance", s.scheduleMaintenance).Methods(http.MethodPost)
	api.HandleFunc("/maintenance/{id}/complete", s.completeMaintenance).Methods(http.MethodPost)

	// Loans.
	api.HandleFunc("/loans", s.listLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", s.createLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", s.getLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/approve", s.decideLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/checkout", s.checkoutLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/checkin", s.checkinLoan).Methods(http.MethodPost)

	// Work orders.
	api.HandleFunc("/work-orders", s.listWorkOrders).Methods(http.MethodGet)
	api.HandleFunc("/work-orders", s.createWorkOrder).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}", s.getWorkOrder).Methods(http.MethodGet)
	api.HandleFunc("/work-orders/{id}/approve", s.workOrderAction("workorder.approve",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Approve(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/assign/{tech}", s.workOrderAction("workorder.assign",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Assign(r.Context(), pathVar(r, "id"), pathVar(r, "tech"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/start", s.workOrderAction("workorder.update",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Start(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/hold", s.workOrderAction("workorder.update",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Hold(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/resume", s.workOrderAction("workorder.update",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Resume(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/complete", s.completeWorkOrder).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/cancel", s.workOrderAction("workorder.cancel",
		func(r *http.Request) (*domain.WorkOrder, error) {
			return s.WorkOrders.Cancel(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/parts", s.addWorkOrderPart).Methods(http.MethodPost)
	api.HandleFunc("/work-orders/{id}/parts/{partID}", s.removeWorkOrderPart).Methods(http.MethodDelete)
	api.HandleFunc("/work-orders/tasks/{itemID}", s.toggleChecklistItem).Methods(http.MethodPut)

	// Rentals.
	api.HandleFunc("/rentals", s.listRentals).Methods(http.MethodGet)
	api.HandleFunc("/rentals", s.createRental).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id}/approve", s.approveRental).Methods(http.MethodPut)
	api.HandleFunc("/rentals/{id}/reject", s.rejectRental).Methods(http.MethodPut)
	api.HandleFunc("/rentals/{id}/dispatch", s.dispatchRental).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id}/return", s.returnRental).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id}/cancel", s.cancelRental).Methods(http.MethodPost)

	// Rental timesheets.
	api.HandleFunc("/rentals/timesheets", s.listTimesheets).Methods(http.MethodGet)
	api.HandleFunc("/rentals/timesheets", s.createTimesheet).Methods(http.MethodPost)
	api.HandleFunc("/rentals/timesheets/{id}", s.updateTimesheet).Methods(http.MethodPut)
	api.HandleFunc("/rentals/timesheets/{id}/submit", s.timesheetMove("timesheet.update",
		func(r *http.Request) (*domain.RentalTimesheet, error) {
			return s.Timesheets.Submit(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/timesheets/{id}/verify", s.timesheetMove("timesheet.verify",
		func(r *http.Request) (*domain.RentalTimesheet, error) {
			return s.Timesheets.Verify(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/timesheets/{id}/approve", s.timesheetMove("timesheet.approve",
		func(r *http.Request) (*domain.RentalTimesheet, error) {
			return s.Timesheets.Approve(r.Context(), pathVar(r, "id"), claims(r))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/timesheets/{id}/reject", s.rejectTimesheet).Methods(http.MethodPost)
	api.HandleFunc("/rentals/timesheets/{id}/request-revision", s.requestTimesheetRevision).Methods(http.MethodPost)

	// Rental billing.
	api.HandleFunc("/rentals/billing", s.openBillingPeriod).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}", s.getBillingPeriod).Methods(http.MethodGet)
	api.HandleFunc("/rentals/billing/{id}/calculate", s.calculateBilling).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/approve", s.approveBilling).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/invoice", s.billingMove("billing.approve",
		func(r *http.Request) (*domain.BillingPeriod, error) {
			return s.Billing.Invoice(r.Context(), pathVar(r, "id"))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/mark-paid", s.billingMove("billing.approve",
		func(r *http.Request) (*domain.BillingPeriod, error) {
			return s.Billing.MarkPaid(r.Context(), pathVar(r, "id"))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/dispute", s.billingMove("billing.read",
		func(r *http.Request) (*domain.BillingPeriod, error) {
			return s.Billing.Dispute(r.Context(), pathVar(r, "id"))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/resolve-dispute", s.billingMove("billing.approve",
		func(r *http.Request) (*domain.BillingPeriod, error) {
			return s.Billing.ResolveDispute(r.Context(), pathVar(r, "id"))
		})).Methods(http.MethodPost)
	api.HandleFunc("/rentals/billing/{id}/summary", s.billingSummary).Methods(http.MethodGet)
	api.HandleFunc("/rentals/{id}", s.getRental).Methods(http.MethodGet)

	// Approvals.
	api.HandleFunc("/approvals/pending", s.pendingApprovals).Methods(http.MethodGet)
	api.HandleFunc("/approvals/my-requests", s.myApprovalRequests).Methods(http.MethodGet)
	api.HandleFunc("/approvals/{id}/approve", s.approveRequest).Methods(http.MethodPost)
	api.HandleFunc("/approvals/{id}/reject", s.rejectRequest).Methods(http.MethodPost)

	// Notifications.
	api.HandleFunc("/users/{uid}/notifications", s.listNotifications(false)).Methods(http.MethodGet)
	api.HandleFunc("/users/{uid}/notifications/unread", s.listNotifications(true)).Methods(http.MethodGet)
	api.HandleFunc("/users/{uid}/notifications/unread/count", s.unreadCount).Methods(http.MethodGet)
	api.HandleFunc("/users/{uid}/notifications/read-all", s.markAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}/read", s.markNotificationRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}", s.deleteNotification).Methods(http.MethodDelete)

	// Operational admin: trigger a scheduler job out of band.
	api.HandleFunc("/admin/jobs/{name}/run", s.runJob).Methods(http.MethodPost)

	return root
}

// health reports process liveness plus dependency status.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := s.DB.PingContext(r.Context()); err != nil {
		status, dbStatus = "degraded", err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"database":    dbStatus,
		"ws_sessions": s.Hub.SessionCount(),
	})
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "admin.jobs") {
		return
	}
	name := pathVar(r, "name")
	if !s.Scheduler.RunJobNow(r.Context(), name) {
		writeError(w, domain.ErrNotFound("job", name))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"started": name})
}
