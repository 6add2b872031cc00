package api

import (
	"database/sql"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/repository"
	"github.com/assetflow/backend/internal/workflow"
)

// assetPayload is the write shape for assets. Status is absent on purpose;
// it only changes through lifecycle transitions.
type assetPayload struct {
	Code           string          `json:"code" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	CategoryID     string          `json:"category_id"`
	LocationID     string          `json:"location_id"`
	DepartmentID   string          `json:"department_id"`
	AssigneeID     string          `json:"assignee_id"`
	VendorID       string          `json:"vendor_id"`
	Condition      string          `json:"condition"`
	SerialNumber   string          `json:"serial_number"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	Year           int             `json:"year"`
	Specifications map[string]any  `json:"specifications"`
	PurchaseDate   *time.Time      `json:"purchase_date"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	Currency       string          `json:"currency"`
	Quantity       int             `json:"quantity"`
	ResidualValue  decimal.Decimal `json:"residual_value"`
	UsefulLifeM    int             `json:"useful_life_months"`
	Notes          string          `json:"notes"`
}

func (p *assetPayload) apply(a *domain.Asset) {
	a.Code = p.Code
	a.Name = p.Name
	a.CategoryID = p.CategoryID
	a.LocationID = p.LocationID
	a.DepartmentID = p.DepartmentID
	a.AssigneeID = p.AssigneeID
	a.VendorID = p.VendorID
	a.Condition = p.Condition
	a.SerialNumber = p.SerialNumber
	a.Brand = p.Brand
	a.Model = p.Model
	a.Year = p.Year
	a.Specifications = p.Specifications
	a.PurchaseDate = p.PurchaseDate
	a.PurchasePrice = p.PurchasePrice
	a.Currency = p.Currency
	a.Quantity = p.Quantity
	a.ResidualValue = p.ResidualValue
	a.UsefulLifeM = p.UsefulLifeM
	a.Notes = p.Notes
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.create") {
		return
	}
	var payload assetPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	asset := &domain.Asset{OrgID: claims(r).OrgID}
	payload.apply(asset)
	if asset.Quantity == 0 {
		asset.Quantity = 1
	}
	if err := s.Assets.Create(r.Context(), s.DB, asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	q := r.URL.Query()
	filter := repository.AssetFilter{
		OrgID:      orgScope(claims(r)),
		Status:     domain.AssetState(q.Get("status")),
		CategoryID: q.Get("category_id"),
		Query:      q.Get("q"),
	}
	assets, total, err := s.Assets.List(r.Context(), s.DB, filter, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": assets, "total": total})
}

// searchAssets is listAssets with the query parameter required.
func (s *Server) searchAssets(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("q") == "" {
		writeError(w, domain.ErrValidation("q", "search query is required"))
		return
	}
	s.listAssets(w, r)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.update") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	var payload assetPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.apply(asset)
	if err := s.Assets.Update(r.Context(), s.DB, asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.delete") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Assets.Delete(r.Context(), s.DB, asset.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": asset.ID})
}

// exportAssets streams the caller's assets as CSV.
func (s *Server) exportAssets(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	filter := repository.AssetFilter{OrgID: orgScope(claims(r))}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.csv"`)
	cw := csv.NewWriter(w)
	cw.Write([]string{"code", "name", "status", "category_id", "serial_number",
		"brand", "model", "purchase_price", "currency", "created_at"})

	// Page through the full set; 100 is the repository page cap.
	for page := 1; ; page++ {
		assets, _, err := s.Assets.List(r.Context(), s.DB, filter,
			repository.Page{Number: page, Size: 100})
		if err != nil {
			apiLogger.Printf("csv export: %v", err)
			break
		}
		for _, a := range assets {
			cw.Write([]string{a.Code, a.Name, string(a.Status), a.CategoryID,
				a.SerialNumber, a.Brand, a.Model, a.PurchasePrice.StringFixed(2),
				a.Currency, a.CreatedAt.Format(time.RFC3339)})
		}
		if len(assets) < 100 {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		apiLogger.Printf("csv export: %v", err)
	}
}

// depreciationSchedule returns the straight-line monthly schedule for an
// asset: (purchase_price - residual_value) spread over useful_life_months
// from the purchase date.
func (s *Server) depreciationSchedule(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	if asset.UsefulLifeM <= 0 {
		writeError(w, domain.ErrBusinessRule("depreciation", "asset has no useful life configured"))
		return
	}
	if asset.PurchaseDate == nil {
		writeError(w, domain.ErrBusinessRule("depreciation", "asset has no purchase date"))
		return
	}

	base := asset.PurchasePrice.Sub(asset.ResidualValue)
	monthly := base.Div(decimal.NewFromInt(int64(asset.UsefulLifeM))).Round(2)
	lines := make([]domain.DepreciationLine, 0, asset.UsefulLifeM)
	cumulative := decimal.Zero
	for m := 1; m <= asset.UsefulLifeM; m++ {
		amount := monthly
		if m == asset.UsefulLifeM {
			// Last month absorbs the rounding remainder.
			amount = base.Sub(cumulative)
		}
		cumulative = cumulative.Add(amount)
		lines = append(lines, domain.DepreciationLine{
			Month:      m,
			Date:       asset.PurchaseDate.AddDate(0, m, 0),
			Amount:     amount,
			BookValue:  asset.PurchasePrice.Sub(cumulative),
			Cumulative: cumulative,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id":       asset.ID,
		"monthly_amount": monthly,
		"schedule":       lines,
	})
}

// --- lifecycle ---

type transitionPayload struct {
	TargetState string `json:"target_state" validate:"required"`
	Reason      string `json:"reason"`
}

func (s *Server) requestTransition(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.transition") {
		return
	}
	var payload transitionPayload
	if err := decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	result, approval, err := s.Transitions.Transition(r.Context(), pathVar(r, "id"),
		domain.AssetState(payload.TargetState), payload.Reason, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if approval != nil {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"result_type":         "ApprovalCreated",
			"approval_request_id": approval.ID,
			"message":             "transition requires two-level approval",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result_type": "Executed",
		"history":     result.History,
	})
}

func (s *Server) lifecycleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	history, err := s.Lifecycle.History(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) validTransitions(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	targets := lifecycle.ValidTransitions(asset.Status)
	gated := make([]domain.AssetState, 0)
	for _, t := range targets {
		if s.Lifecycle.RequiresApproval(asset.Status, t) {
			gated = append(gated, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current":           asset.Status,
		"valid_transitions": targets,
		"requires_approval": gated,
	})
}

func (s *Server) lifecycleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.read") {
		return
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, pathVar(r, "id"), orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": asset.ID,
		"status":   asset.Status,
		"terminal": asset.Status.IsTerminal(),
	})
}

// --- conversion (capitalize into another category, approval gated) ---

func (s *Server) requestConversion(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "asset.convert") {
		return
	}
	var req workflow.ConversionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	approval, err := s.Conversions.Request(r.Context(), pathVar(r, "id"), req, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"result_type":         "ApprovalCreated",
		"approval_request_id": approval.ID,
	})
}

// --- maintenance ---

func (s *Server) scheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "maintenance.create") {
		return
	}
	var rec domain.MaintenanceRecord
	if err := decode(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	if rec.AssetID == "" || rec.Title == "" || rec.ScheduledDate.IsZero() {
		writeError(w, domain.ErrValidation("maintenance", "asset_id, title and scheduled_date are required"))
		return
	}
	rec.Status = domain.MaintenanceScheduled
	if err := s.Maintenance.Create(r.Context(), s.DB, &rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type completeMaintenancePayload struct {
	Cost  *decimal.Decimal `json:"cost"`
	Notes string           `json:"notes"`
}

// completeMaintenance closes the record and, when the asset sits in
// under_maintenance, returns it to deployed in the same transaction.
func (s *Server) completeMaintenance(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "maintenance.update") {
		return
	}
	rec, err := s.Maintenance.GetByID(r.Context(), s.DB, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec.Status == domain.MaintenanceCompleted || rec.Status == domain.MaintenanceCancelled {
		writeError(w, domain.ErrBusinessRule("maintenance_state",
			"maintenance record is already "+rec.Status))
		return
	}
	var payload completeMaintenancePayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	asset, err := s.Assets.GetByID(r.Context(), s.DB, rec.AssetID, orgScope(claims(r)))
	if err != nil {
		writeError(w, err)
		return
	}

	expected := rec.Status
	now := time.Now().UTC()
	rec.Status = domain.MaintenanceCompleted
	rec.CompletedAt = &now
	if payload.Cost != nil {
		rec.Cost = *payload.Cost
	}
	if payload.Notes != "" {
		rec.Notes = payload.Notes
	}

	err = s.DB.WithinTx(r.Context(), func(tx *sql.Tx) error {
		if err := s.Maintenance.UpdateStatusGuarded(r.Context(), tx, rec, expected); err != nil {
			return err
		}
		if asset.Status == domain.StateUnderMaintenance {
			_, err := s.Lifecycle.ExecuteInTx(r.Context(), tx, asset.ID,
				domain.StateUnderMaintenance, domain.StateDeployed,
				"maintenance completed", claims(r).UserID)
			return err
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "maintenance.read") {
		return
	}
	records, err := s.Maintenance.List(r.Context(), s.DB, r.URL.Query().Get("asset_id"), queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
