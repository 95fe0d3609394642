package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escrowgate/pkg/domain-errors"
)

type sendLinkRequest struct {
	Email string `json:"email" validate:"required"`
}

func (r *sendLinkRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *sendLinkRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email looks wrong")
	}
	return nil
}

func decode(body string) (*httptest.ResponseRecorder, *sendLinkRequest, bool) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/passwordless/send", strings.NewReader(body))
	rec := httptest.NewRecorder()
	out, ok := DecodeAndPrepare[sendLinkRequest](rec, req, logger, req.Context(), "req-1")
	return rec, out, ok
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		rec, _, ok := decode("{")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", errorBody(t, rec)["error"])
	})

	t.Run("struct tags are enforced after normalization", func(t *testing.T) {
		rec, _, ok := decode(`{"email":"   "}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := errorBody(t, rec)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "email failed required", body["error_description"])
	})

	t.Run("custom Validate keeps its domain code", func(t *testing.T) {
		rec, _, ok := decode(`{"email":"nobody"}`)
		assert.False(t, ok)
		assert.Equal(t, "bad_request", errorBody(t, rec)["error"])
	})

	t.Run("valid request is returned normalized", func(t *testing.T) {
		_, out, ok := decode(`{"email":"  user@example.com "}`)
		require.True(t, ok)
		assert.Equal(t, "user@example.com", out.Email)
	})
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeRateLimited: http.StatusTooManyRequests,
		dErrors.CodeExpiredLink: http.StatusUnauthorized,
		dErrors.CodeInvalidLink: http.StatusUnauthorized,
		dErrors.CodeUnavailable: http.StatusServiceUnavailable,
		dErrors.CodeValidation:  http.StatusBadRequest,
		dErrors.CodeInternal:    http.StatusInternalServerError,
	}
	for code, status := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(code, "x"))
		assert.Equal(t, status, rec.Code, "code %s", code)
	}

	rec := httptest.NewRecorder()
	WriteError(rec, io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", errorBody(t, rec)["error"])
}
