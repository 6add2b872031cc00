package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// RentalRepository is the SQL gateway for rentals, handovers and rates.
type RentalRepository struct{}

// NewRentalRepository creates a RentalRepository.
func NewRentalRepository() *RentalRepository { return &RentalRepository{} }

const rentalColumns = `id, rental_number, asset_id, client_id, rate_id,
	org_id, status, request_date, start_date, expected_end, actual_end,
	daily_rate, total_days, subtotal, deposit, penalty, total,
	created_at, updated_at`

// Create inserts a rental in Requested state.
func (r *RentalRepository) Create(ctx context.Context, q database.Querier, rn *domain.Rental) error {
	if rn.ID == "" {
		rn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rn.CreatedAt, rn.UpdatedAt = now, now
	_, err := q.ExecContext(ctx, `
		INSERT INTO rentals (`+rentalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		rn.ID, rn.RentalNumber, rn.AssetID, rn.ClientID, nullStr(rn.RateID),
		nullStr(rn.OrgID), string(rn.Status), rn.RequestDate,
		nullTime(rn.StartDate), nullTime(rn.ExpectedEnd), nullTime(rn.ActualEnd),
		rn.DailyRate, rn.TotalDays, rn.Subtotal, rn.Deposit, rn.Penalty,
		rn.Total, rn.CreatedAt, rn.UpdatedAt)
	if err != nil {
		return translate("rental.create", err)
	}
	return nil
}

// GetByID fetches one rental.
func (r *RentalRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.Rental, error) {
	row := q.QueryRowContext(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id=$1`, id)
	rn, err := scanRental(row)
	if err != nil {
		return nil, notFoundOr("rental.get", "rental", id, err)
	}
	return rn, nil
}

// List returns rentals, newest first.
func (r *RentalRepository) List(ctx context.Context, q database.Querier, orgID string, status domain.RentalStatus, page Page) ([]*domain.Rental, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE ($1 = '' OR org_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orgID, string(status), page.Size, page.Offset())
	if err != nil {
		return nil, translate("rental.list", err)
	}
	defer rows.Close()

	var out []*domain.Rental
	for rows.Next() {
		rn, err := scanRental(rows)
		if err != nil {
			return nil, translate("rental.scan", err)
		}
		out = append(out, rn)
	}
	return out, rows.Err()
}

// ListOverdueCandidates returns rented-out rentals past their expected end
// with no actual end recorded.
func (r *RentalRepository) ListOverdueCandidates(ctx context.Context, q database.Querier, asOf time.Time) ([]*domain.Rental, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE status = $1 AND actual_end IS NULL AND expected_end < $2`,
		string(domain.RentalRentedOut), asOf)
	if err != nil {
		return nil, translate("rental.overdue_candidates", err)
	}
	defer rows.Close()

	var out []*domain.Rental
	for rows.Next() {
		rn, err := scanRental(rows)
		if err != nil {
			return nil, translate("rental.scan", err)
		}
		out = append(out, rn)
	}
	return out, rows.Err()
}

// UpdateGuarded rewrites workflow fields guarded by the expected status.
func (r *RentalRepository) UpdateGuarded(ctx context.Context, q database.Querier, rn *domain.Rental, expected domain.RentalStatus) error {
	rn.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE rentals SET status=$3, start_date=$4, expected_end=$5,
			actual_end=$6, daily_rate=$7, total_days=$8, subtotal=$9,
			penalty=$10, total=$11, rate_id=$12, updated_at=$13
		WHERE id=$1 AND status=$2`,
		rn.ID, string(expected), string(rn.Status), nullTime(rn.StartDate),
		nullTime(rn.ExpectedEnd), nullTime(rn.ActualEnd), rn.DailyRate,
		rn.TotalDays, rn.Subtotal, rn.Penalty, rn.Total, nullStr(rn.RateID),
		rn.UpdatedAt)
	if err != nil {
		return translate("rental.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBusinessRule("rental_state",
			"rental "+rn.ID+" is no longer "+string(expected))
	}
	return nil
}

// InsertHandover records a dispatch or return handover.
func (r *RentalRepository) InsertHandover(ctx context.Context, q database.Querier, h *domain.RentalHandover) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.CreatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO rental_handovers
			(id, rental_id, kind, condition_rating, photos, has_damage,
			 recorded_by, signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		h.ID, h.RentalID, string(h.Kind), h.ConditionRating,
		pq.Array(h.Photos), h.HasDamage, h.RecordedBy, nullStr(h.Signature),
		h.CreatedAt)
	if err != nil {
		return translate("rental.handover.insert", err)
	}
	return nil
}

// ListHandovers returns the handovers for a rental, oldest first.
func (r *RentalRepository) ListHandovers(ctx context.Context, q database.Querier, rentalID string) ([]*domain.RentalHandover, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, rental_id, kind, condition_rating, photos, has_damage,
		       recorded_by, signature, created_at
		FROM rental_handovers WHERE rental_id=$1 ORDER BY created_at`, rentalID)
	if err != nil {
		return nil, translate("rental.handover.list", err)
	}
	defer rows.Close()

	var out []*domain.RentalHandover
	for rows.Next() {
		h := &domain.RentalHandover{}
		var kind string
		var signature stringOrNull
		if err := rows.Scan(&h.ID, &h.RentalID, &kind, &h.ConditionRating,
			pq.Array(&h.Photos), &h.HasDamage, &h.RecordedBy, &signature,
			&h.CreatedAt); err != nil {
			return nil, translate("rental.handover.scan", err)
		}
		h.Kind = domain.HandoverKind(kind)
		h.Signature = signature.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanRental(s scanner) (*domain.Rental, error) {
	rn := &domain.Rental{}
	var rate, org stringOrNull
	var status string
	var start, expectedEnd, actualEnd nullTimeCol
	err := s.Scan(&rn.ID, &rn.RentalNumber, &rn.AssetID, &rn.ClientID, &rate,
		&org, &status, &rn.RequestDate, &start, &expectedEnd, &actualEnd,
		&rn.DailyRate, &rn.TotalDays, &rn.Subtotal, &rn.Deposit, &rn.Penalty,
		&rn.Total, &rn.CreatedAt, &rn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rn.RateID = rate.String
	rn.OrgID = org.String
	rn.Status = domain.RentalStatus(status)
	rn.StartDate = start.Ptr()
	rn.ExpectedEnd = expectedEnd.Ptr()
	rn.ActualEnd = actualEnd.Ptr()
	return rn, nil
}

// GetRate fetches the rate model a rental bills against.
func (r *RentalRepository) GetRate(ctx context.Context, q database.Querier, id string) (*domain.RentalRate, error) {
	rate := &domain.RentalRate{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, hourly_rate, minimum_hours, overtime_multiplier,
		       standby_multiplier, breakdown_penalty_per_day, created_at
		FROM rental_rates WHERE id=$1`, id).
		Scan(&rate.ID, &rate.Name, &rate.HourlyRate, &rate.MinimumHours,
			&rate.OvertimeMultiplier, &rate.StandbyMultiplier,
			&rate.BreakdownPenaltyDaily, &rate.CreatedAt)
	if err != nil {
		return nil, notFoundOr("rental.rate.get", "rental_rate", id, err)
	}
	return rate, nil
}
