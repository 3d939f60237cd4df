package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/agora/internal/models"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	wrap := func(e error) error { return fmt.Errorf("pkg/Op: %w", e) }

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"validation", wrap(models.ErrValidation), http.StatusBadRequest, "invalid_argument"},
		{"token", wrap(models.ErrToken), http.StatusBadRequest, "invalid_token"},
		{"unauth", wrap(models.ErrAuthenticationRequired), http.StatusUnauthorized, "unauthenticated"},
		{"not_found", wrap(models.ErrNotFound), http.StatusNotFound, "not_found"},
		{"rate_limited", wrap(models.ErrRateLimited), http.StatusTooManyRequests, "resource_exhausted"},
		{"misconfigured", wrap(models.ErrConfiguration), http.StatusInternalServerError, "misconfigured"},
		{"upstream", wrap(models.ErrUpstream), http.StatusBadGateway, "upstream"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"upstream_canceled", fmt.Errorf("github/op: %w: %w", models.ErrUpstream, context.Canceled), StatusClientClosedRequest, "canceled"},
		{"upstream_deadline", fmt.Errorf("github/op: %w: %w", models.ErrUpstream, context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
			require.NotContains(t, resp.Error.Message, "pkg/Op")
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_PublicMessage(t *testing.T) {
	err := Public(fmt.Errorf("handlers/Discussion: %w", models.ErrValidation), "term or number is required")

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusBadRequest, gotStatus)
	require.Equal(t, "invalid_argument", resp.Error.Code)
	require.Equal(t, "term or number is required", resp.Error.Message)

	require.NoError(t, Public(nil, "x"))
}

func TestWriteError_RequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()

	WriteError(w, r, models.ErrUpstream)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "rid-1", resp.Error.RequestID)
	require.Equal(t, "upstream", resp.Error.Code)
}
