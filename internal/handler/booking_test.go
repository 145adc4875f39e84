package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/service"
	"github.com/norrapat/table-reserve/internal/slipverify"
	"github.com/norrapat/table-reserve/internal/storage"
)

func newJSONContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	c.Set("role", "CUSTOMER")
	return c, rec
}

func TestCreateOrderRejectsMissingTables(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/bookings/create-order",
		`{"tableIds":[],"bookingDate":"2025-06-01"}`)

	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderRejectsBadDate(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/bookings/create-order",
		`{"tableIds":[1],"bookingDate":"01/06/2025"}`)

	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestCreateOrderRejectsUnauthenticated(t *testing.T) {
	h := &BookingHandler{}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/create-order", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyPaymentRequiresFormFields(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/bookings/verify-payment", "")

	require.NoError(t, h.VerifyPayment(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "required")
}

func TestCancelRejectsBadID(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/bookings/abc/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferRequiresRecipient(t *testing.T) {
	h := &BookingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/bookings/5/transfer", `{"recipientId":0}`)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Transfer(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "recipientId")
}

func TestBookingErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"quota", &service.QuotaError{Max: 2, Existing: 2, Requested: 1}, http.StatusConflict},
		{"table conflict", &service.TableConflictError{TableNumbers: []string{"A1"}}, http.StatusConflict},
		{"unknown tables", &service.UnknownTablesError{TableIDs: []uint64{9}}, http.StatusNotFound},
		{"amount mismatch", &service.AmountMismatchError{Expected: decimal.New(100, 0), Got: decimal.New(90, 0)}, http.StatusBadRequest},
		{"provider rejection", &slipverify.VerifyError{Code: "slip_not_found"}, http.StatusBadRequest},
		{"booking disabled", service.ErrBookingDisabled, http.StatusServiceUnavailable},
		{"order not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"booking not found", service.ErrBookingNotFound, http.StatusNotFound},
		{"recipient not found", service.ErrRecipientNotFound, http.StatusNotFound},
		{"not owner", service.ErrNotOwner, http.StatusForbidden},
		{"not active", service.ErrBookingNotActive, http.StatusConflict},
		{"self transfer", service.ErrSelfTransfer, http.StatusBadRequest},
		{"fee unpaid", service.ErrTransferFeeUnpaid, http.StatusBadRequest},
		{"ref used", repository.ErrRefUsed, http.StatusConflict},
		{"invalid image", storage.ErrInvalidImage, http.StatusBadRequest},
		{"image too large", storage.ErrImageTooLarge, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newJSONContext(t, http.MethodPost, "/", "")
			require.NoError(t, bookingError(c, tc.err))
			require.Equal(t, tc.code, rec.Code)
		})
	}
}
