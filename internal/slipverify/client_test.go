package slipverify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsSuccessResponse(t *testing.T) {
	var got verifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/verify", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")
	err := c.Verify(context.Background(), "TR-123", decimal.RequireFromString("150.5"))
	require.NoError(t, err)
	require.Equal(t, "TR-123", got.RefNbr)
	require.Equal(t, "150.50", got.Amount, "amount must be sent with two decimal places")
}

func TestVerifyReturnsTypedRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false, "code": "slip_not_found", "message": "no such transfer",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Verify(context.Background(), "TR-404", decimal.RequireFromString("10"))
	var vErr *VerifyError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "slip_not_found", vErr.Code)
}

func TestVerifyRejectsSuccessFalseOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false, "code": "amount_mismatch", "message": "amount differs",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Verify(context.Background(), "TR-1", decimal.RequireFromString("10"))
	var vErr *VerifyError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "amount_mismatch", vErr.Code)
}

func TestVerifyTreatsServerErrorsAsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Verify(context.Background(), "TR-1", decimal.RequireFromString("10"))
	require.Error(t, err)
	var vErr *VerifyError
	require.False(t, errors.As(err, &vErr), "5xx must not become a client-facing rejection")
}

func TestNormalizeRef(t *testing.T) {
	cases := map[string]string{
		" tr-123 456 ":    "TR-123456",
		"ab\tcd":          "ABCD",
		"already-NORMAL":  "ALREADY-NORMAL",
		"  ":              "",
		"0123\n4567\r890": "01234567890",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeRef(in), "input %q", in)
	}
}
