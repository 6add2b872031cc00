// Package api exposes the HTTP surface: routing, request decoding,
// response envelopes and the error-to-status mapping.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/assetflow/backend/internal/domain"
)

var validate = validator.New()

// envelope is the uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

var apiLogger = log.New(log.Writer(), "[API] ", log.LstdFlags)

// writeJSON sends a success envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		apiLogger.Printf("encode failed: %v", err)
	}
}

// writeError maps a domain error onto its HTTP status and error code.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		apiLogger.Printf("internal error: %v", err)
		// Do not leak internals on 5xx.
		err = errors.New("internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		rule       *domain.BusinessRuleError
		transition *domain.StateTransitionError
		unauth     *domain.UnauthorizedError
		forbidden  *domain.ForbiddenError
		conflict   *domain.ConflictError
		external   *domain.ExternalServiceError
		dbErr      *domain.DatabaseError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &transition):
		return http.StatusUnprocessableEntity, "INVALID_STATE_TRANSITION"
	case errors.As(err, &rule):
		return http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION"
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.As(err, &forbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.As(err, &conflict):
		return http.StatusConflict, "CONFLICT"
	case errors.As(err, &external):
		return http.StatusServiceUnavailable, "SERVICE_ERROR"
	case errors.As(err, &dbErr):
		return http.StatusInternalServerError, "DATABASE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// decode reads, unmarshals and validates a JSON request body.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("body", "malformed JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return domain.ErrValidation(first.Field(), "failed "+first.Tag()+" validation")
		}
		return domain.ErrValidation("body", err.Error())
	}
	return nil
}
