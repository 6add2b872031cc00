// Package repository implements the transactional SQL gateways for every
// aggregate. Methods take a database.Querier so they run either on the
// pool or inside a workflow transaction.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/assetflow/backend/internal/domain"
)

// translate maps raw SQL failures onto the domain error taxonomy.
// Unique violations become Conflict; everything else is a Database error.
func translate(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrConflict("duplicate value violates " + pqErr.Constraint)
	}
	return domain.ErrDatabase(op, err)
}

// notFoundOr returns NotFound for sql.ErrNoRows, a translated error otherwise.
func notFoundOr(op, entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound(entity, id)
	}
	return translate(op, err)
}

// nullStr converts an optional string for sql args.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime converts an optional timestamp for sql args.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a scanned NullTime back to *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// nullF64 converts an optional float for sql args.
func nullF64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// f64Ptr converts a scanned NullFloat64 back to *float64.
func f64Ptr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// jsonDoc marshals a free-form document column, nil for empty.
func jsonDoc(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// scanDoc unmarshals a free-form document column.
func scanDoc(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// stringOrNull scans a nullable text column into a plain string.
type stringOrNull struct {
	String string
}

// Scan implements sql.Scanner.
func (s *stringOrNull) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	s.String = ns.String
	return nil
}

// nullTimeCol scans a nullable timestamp column.
type nullTimeCol struct {
	sql.NullTime
}

// Ptr returns the scanned time as a pointer, nil when the column was null.
func (t nullTimeCol) Ptr() *time.Time { return timePtr(t.NullTime) }

// Page bounds list queries.
type Page struct {
	Number int
	Size   int
}

// Clamp normalizes page defaults: page >= 1, 1 <= size <= 100 (default 20).
func (p Page) Clamp() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset returns the SQL offset for the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }
