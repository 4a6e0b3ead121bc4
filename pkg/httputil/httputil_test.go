package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/pkg/logger"
	"github.com/utafrali/jewelrycommerce/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "cart_01"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"cart_01"}}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"app error", apperrors.NotFound("cart", "cart_01"), 404, "NOT_FOUND", "cart with id cart_01 not found"},
		{"remote error keeps provider code", apperrors.Remote(400, "insufficient_inventory", "medusa: out of stock"), 400, "insufficient_inventory", "medusa: out of stock"},
		{"remote 5xx keeps message", apperrors.Remote(502, "", "medusa: bad gateway"), 502, "UPSTREAM_ERROR", "medusa: bad gateway"},
		{"precondition", apperrors.PreconditionFailed("no cart in session"), 412, "PRECONDITION_FAILED", "no cart in session"},
		{"wrapped sentinel", apperrors.Wrap(apperrors.ErrNotFound, "lookup"), 404, "NOT_FOUND", "resource not found"},
		{"internal hides detail", apperrors.Internal(errors.New("pq: broken pipe")), 500, "INTERNAL_ERROR", "an internal error occurred"},
		{"unknown", errors.New("boom"), 500, "INTERNAL_ERROR", "an internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	type input struct {
		Quantity int `json:"quantity" validate:"gte=1"`
	}
	err := validator.Validate(input{})

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), err, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Fields, "quantity")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-42"))

	rec := httptest.NewRecorder()
	WriteError(rec, req, apperrors.InvalidInput("bad"), testLogger())

	assert.Equal(t, "req-42", decodeError(t, rec).RequestID)
}

func TestWriteValidationError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestNewListResponse_NilItems(t *testing.T) {
	resp := NewListResponse[string](nil, 0, 0, 20)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"count":0,"offset":0,"limit":20}`, string(b))
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "ring-1")
	assert.False(t, ok)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=12&offset=abc", nil)
	assert.Equal(t, 12, QueryInt(req, "limit", 20))
	assert.Equal(t, 0, QueryInt(req, "offset", 0))
	assert.Equal(t, 5, QueryInt(req, "missing", 5))
}
