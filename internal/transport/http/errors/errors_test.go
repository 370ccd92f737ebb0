package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/authguard/internal/service"
	"github.com/pribylovaa/authguard/internal/token"
)

func wrap(errs ...error) error {
	err := errs[len(errs)-1]
	for i := len(errs) - 2; i >= 0; i-- {
		err = fmt.Errorf("op: %w: %w", errs[i], err)
	}

	return err
}

func TestToHTTP_ServiceMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"missing", wrap(service.ErrMissingCredential), http.StatusUnauthorized, "unauthenticated"},
		{"expired", wrap(service.ErrUnauthorized, token.ErrExpired), http.StatusUnauthorized, "unauthenticated"},
		{"spent", wrap(service.ErrUnauthorized, service.ErrTokenSpent), http.StatusUnauthorized, "unauthenticated"},
		{"bad credentials", wrap(service.ErrInvalidCredentials), http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", wrap(service.ErrForbidden), http.StatusForbidden, "permission_denied"},
		{"forbidden on store timeout", wrap(service.ErrForbidden, context.DeadlineExceeded), http.StatusForbidden, "permission_denied"},
		{"not found", wrap(service.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid argument", wrap(service.ErrInvalidArgument, service.ErrWeakPassword), http.StatusBadRequest, "invalid_argument"},
		{"email taken", wrap(service.ErrEmailTaken), http.StatusConflict, "already_exists"},
		{"revocation off", wrap(service.ErrRevocationUnsupported), http.StatusNotImplemented, "unimplemented"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "resource_exhausted"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"grpc status", status.Error(codes.Unavailable, "x"), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
			require.NotContains(t, resp.Error.Message, "expired")
			require.NotContains(t, resp.Error.Message, "db exploded")
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToStatus(t *testing.T) {
	st, ok := status.FromError(ToStatus(wrap(service.ErrUnauthorized, token.ErrBadSignature)))
	require.True(t, ok)
	require.Equal(t, codes.Unauthenticated, st.Code())
	require.Equal(t, "unauthenticated", st.Message())

	st, _ = status.FromError(ToStatus(wrap(service.ErrForbidden)))
	require.Equal(t, codes.PermissionDenied, st.Code())
}

func TestWriteError_EnvelopeAndHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, wrap(service.ErrMissingCredential))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "unauthenticated", env.Error.Code)
	require.Equal(t, "rid-1", env.Error.RequestID)

	rr = httptest.NewRecorder()
	WriteError(rr, req, wrap(service.ErrForbidden))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Empty(t, rr.Header().Get("WWW-Authenticate"))
}
