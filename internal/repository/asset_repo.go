package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// AssetRepository is the SQL gateway for assets and lifecycle history.
type AssetRepository struct{}

// NewAssetRepository creates an AssetRepository.
func NewAssetRepository() *AssetRepository { return &AssetRepository{} }

const assetColumns = `id, code, name, category_id, location_id, department_id,
	assignee_id, vendor_id, org_id, status, condition, serial_number, brand,
	model, year, specifications, purchase_date, purchase_price, currency,
	quantity, residual_value, useful_life_months, notes, created_at, updated_at`

// Create inserts a new asset. A duplicate code surfaces as Conflict.
func (r *AssetRepository) Create(ctx context.Context, q database.Querier, a *domain.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = domain.StatePlanning
	}
	spec, err := jsonDoc(a.Specifications)
	if err != nil {
		return domain.ErrValidation("specifications", "not serializable")
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		        $18,$19,$20,$21,$22,$23,$24,$25)`,
		a.ID, a.Code, a.Name, nullStr(a.CategoryID), nullStr(a.LocationID),
		nullStr(a.DepartmentID), nullStr(a.AssigneeID), nullStr(a.VendorID),
		nullStr(a.OrgID), a.Status, nullStr(a.Condition), nullStr(a.SerialNumber),
		nullStr(a.Brand), nullStr(a.Model), a.Year, spec,
		nullTime(a.PurchaseDate), a.PurchasePrice, nullStr(a.Currency),
		a.Quantity, a.ResidualValue, a.UsefulLifeM, nullStr(a.Notes),
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return translate("asset.create", err)
	}
	return nil
}

// GetByID fetches one asset. orgID restricts the read unless empty.
func (r *AssetRepository) GetByID(ctx context.Context, q database.Querier, id, orgID string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	args := []any{id}
	if orgID != "" {
		query += ` AND org_id = $2`
		args = append(args, orgID)
	}
	row := q.QueryRowContext(ctx, query, args...)
	a, err := scanAsset(row)
	if err != nil {
		return nil, notFoundOr("asset.get", "asset", id, err)
	}
	return a, nil
}

// AssetFilter narrows List.
type AssetFilter struct {
	OrgID      string
	Status     domain.AssetState
	CategoryID string
	Query      string // matches code, name, serial
}

// List returns a page of assets plus the total count.
func (r *AssetRepository) List(ctx context.Context, q database.Querier, f AssetFilter, page Page) ([]*domain.Asset, int, error) {
	page = page.Clamp()
	where := []string{"1=1"}
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.OrgID != "" {
		add("org_id = ", f.OrgID)
	}
	if f.Status != "" {
		add("status = ", string(f.Status))
	}
	if f.CategoryID != "" {
		add("category_id = ", f.CategoryID)
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(code ILIKE $"+n+" OR name ILIKE $"+n+" OR serial_number ILIKE $"+n+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate("asset.count", err)
	}

	args = append(args, page.Size, page.Offset())
	n := len(args)
	rows, err := q.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM assets WHERE `+cond+`
		ORDER BY created_at DESC LIMIT $`+strconv.Itoa(n-1)+` OFFSET $`+strconv.Itoa(n), args...)
	if err != nil {
		return nil, 0, translate("asset.list", err)
	}
	defer rows.Close()

	var out []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, translate("asset.list.scan", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Update rewrites the mutable attributes. Status is deliberately excluded;
// it only changes via UpdateStatus.
func (r *AssetRepository) Update(ctx context.Context, q database.Querier, a *domain.Asset) error {
	spec, err := jsonDoc(a.Specifications)
	if err != nil {
		return domain.ErrValidation("specifications", "not serializable")
	}
	a.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE assets SET code=$2, name=$3, category_id=$4, location_id=$5,
			department_id=$6, assignee_id=$7, vendor_id=$8, condition=$9,
			serial_number=$10, brand=$11, model=$12, year=$13,
			specifications=$14, purchase_date=$15, purchase_price=$16,
			currency=$17, quantity=$18, residual_value=$19,
			useful_life_months=$20, notes=$21, updated_at=$22
		WHERE id=$1`,
		a.ID, a.Code, a.Name, nullStr(a.CategoryID), nullStr(a.LocationID),
		nullStr(a.DepartmentID), nullStr(a.AssigneeID), nullStr(a.VendorID),
		nullStr(a.Condition), nullStr(a.SerialNumber), nullStr(a.Brand),
		nullStr(a.Model), a.Year, spec, nullTime(a.PurchaseDate),
		a.PurchasePrice, nullStr(a.Currency), a.Quantity, a.ResidualValue,
		a.UsefulLifeM, nullStr(a.Notes), a.UpdatedAt)
	if err != nil {
		return translate("asset.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("asset", a.ID)
	}
	return nil
}

// UpdateStatus flips the asset status guarded by the expected current
// status. Zero rows affected means a concurrent transition won the race.
func (r *AssetRepository) UpdateStatus(ctx context.Context, q database.Querier, id string, from, to domain.AssetState) error {
	res, err := q.ExecContext(ctx, `
		UPDATE assets SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return translate("asset.update_status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStateTransition(string(from), string(to))
	}
	return nil
}

// Delete removes an asset.
func (r *AssetRepository) Delete(ctx context.Context, q database.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM assets WHERE id=$1`, id)
	if err != nil {
		return translate("asset.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("asset", id)
	}
	return nil
}

// InsertHistory appends a lifecycle history row. Called in the same
// transaction as the status update.
func (r *AssetRepository) InsertHistory(ctx context.Context, q database.Querier, h *domain.LifecycleHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.CreatedAt = time.Now().UTC()
	meta, err := jsonDoc(h.Metadata)
	if err != nil {
		return domain.ErrValidation("metadata", "not serializable")
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO lifecycle_history
			(id, asset_id, from_state, to_state, reason, actor_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		h.ID, h.AssetID, string(h.FromState), string(h.ToState),
		nullStr(h.Reason), nullStr(h.ActorID), meta, h.CreatedAt)
	if err != nil {
		return translate("asset.history.insert", err)
	}
	return nil
}

// ListHistory returns the lifecycle trail for an asset, newest first.
func (r *AssetRepository) ListHistory(ctx context.Context, q database.Querier, assetID string) ([]*domain.LifecycleHistory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, from_state, to_state, reason, actor_id, metadata, created_at
		FROM lifecycle_history WHERE asset_id=$1 ORDER BY created_at DESC`, assetID)
	if err != nil {
		return nil, translate("asset.history.list", err)
	}
	defer rows.Close()

	var out []*domain.LifecycleHistory
	for rows.Next() {
		h := &domain.LifecycleHistory{}
		var reason, actor stringOrNull
		var meta []byte
		var from, to string
		if err := rows.Scan(&h.ID, &h.AssetID, &from, &to, &reason, &actor, &meta, &h.CreatedAt); err != nil {
			return nil, translate("asset.history.scan", err)
		}
		h.FromState = domain.AssetState(from)
		h.ToState = domain.AssetState(to)
		h.Reason = reason.String
		h.ActorID = actor.String
		h.Metadata = scanDoc(meta)
		out = append(out, h)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (*domain.Asset, error) {
	a := &domain.Asset{}
	var (
		category, location, department, assignee, vendor, org stringOrNull
		condition, serial, brand, model, currency, notes      stringOrNull
		status                                                string
		spec                                                  []byte
		purchase                                              nullTimeCol
	)
	err := s.Scan(&a.ID, &a.Code, &a.Name, &category, &location, &department,
		&assignee, &vendor, &org, &status, &condition, &serial, &brand,
		&model, &a.Year, &spec, &purchase, &a.PurchasePrice, &currency,
		&a.Quantity, &a.ResidualValue, &a.UsefulLifeM, &notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.CategoryID = category.String
	a.LocationID = location.String
	a.DepartmentID = department.String
	a.AssigneeID = assignee.String
	a.VendorID = vendor.String
	a.OrgID = org.String
	a.Status = domain.AssetState(status)
	a.Condition = condition.String
	a.SerialNumber = serial.String
	a.Brand = brand.String
	a.Model = model.String
	a.Currency = currency.String
	a.Notes = notes.String
	a.Specifications = scanDoc(spec)
	a.PurchaseDate = purchase.Ptr()
	return a, nil
}
