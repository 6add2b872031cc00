package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetflow/backend/internal/domain"
)

func TestClassify_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound("asset", "a-1"), http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrValidation("name", "required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrStateTransition("deployed", "archived"), http.StatusUnprocessableEntity, "INVALID_STATE_TRANSITION"},
		{domain.ErrBusinessRule("loan_state", "not approved"), http.StatusUnprocessableEntity, "BUSINESS_RULE_VIOLATION"},
		{domain.ErrUnauthorized("missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden("missing permission"), http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrConflict("duplicate code"), http.StatusConflict, "CONFLICT"},
		{&domain.ExternalServiceError{Service: "redis", Err: assertErr("down")}, http.StatusServiceUnavailable, "SERVICE_ERROR"},
		{domain.ErrDatabase("asset.get", assertErr("broken")), http.StatusInternalServerError, "DATABASE_ERROR"},
		{assertErr("anything else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, c := range cases {
		status, code := classify(c.err)
		assert.Equal(t, c.status, status, "%v", c.err)
		assert.Equal(t, c.code, code, "%v", c.err)
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.ErrDatabase("asset.get", assertErr("password=hunter2")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.ErrForbidden("missing permission asset.read"))

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Contains(t, body.Error, "asset.read")
}

func TestWriteJSON_EnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"id": "x"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	var dst loginPayload
	err := decode(req, &dst)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDecode_RunsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	var dst loginPayload
	err := decode(req, &dst)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDecode_AcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email":"ops@example.com","password":"secret123"}`))
	var dst loginPayload
	assert.NoError(t, decode(req, &dst))
	assert.Equal(t, "ops@example.com", dst.Email)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email":"ops@example.com","password":"secret123","role":"admin"}`))
	var dst loginPayload
	assert.Error(t, decode(req, &dst))
}
