package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/assetflow/backend/internal/auth"
	"github.com/assetflow/backend/internal/billing"
	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/notification"
	"github.com/assetflow/backend/internal/rbac"
	"github.com/assetflow/backend/internal/repository"
	"github.com/assetflow/backend/internal/scheduler"
	"github.com/assetflow/backend/internal/sensor"
	"github.com/assetflow/backend/internal/timesheet"
	"github.com/assetflow/backend/internal/workflow"
)

// Server bundles every service the HTTP layer dispatches into.
type Server struct {
	DB       *database.DB
	Auth     *auth.Service
	Resolver *rbac.Resolver

	Assets      *repository.AssetRepository
	Maintenance *repository.MaintenanceRepository

	Lifecycle   *lifecycle.Service
	Transitions *workflow.TransitionGate
	Conversions *workflow.ConversionService
	Loans       *workflow.LoanService
	Rentals     *workflow.RentalService
	WorkOrders  *workflow.WorkOrderService
	Approvals   *workflow.ApprovalService
	Timesheets  *timesheet.Service
	Billing     *billing.Service
	Sensors     *sensor.Engine

	Notifications *notification.Service
	Hub           *notification.Hub
	Scheduler     *scheduler.Scheduler
}

// claims pulls the verified identity from the request context. The auth
// middleware guarantees presence on protected routes.
func claims(r *http.Request) *domain.UserClaims {
	c, _ := auth.ClaimsFrom(r.Context())
	return c
}

// orgScope returns the org filter for a caller: empty for super admins,
// who see across organizations.
func orgScope(c *domain.UserClaims) string {
	if c == nil || c.IsSuperAdmin() {
		return ""
	}
	return c.OrgID
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// queryPage reads ?page and ?page_size.
func queryPage(r *http.Request) repository.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return repository.Page{Number: number, Size: size}
}

// requirePermission answers whether the handler may proceed; on failure it
// has already written the error response.
func (s *Server) requirePermission(w http.ResponseWriter, r *http.Request, code string) bool {
	if err := s.Resolver.RequirePermission(r.Context(), claims(r), code); err != nil {
		writeError(w, err)
		return false
	}
	return true
}
