package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/service"
	"github.com/norrapat/table-reserve/internal/slipverify"
	"github.com/norrapat/table-reserve/internal/storage"
)

// BookingHandler exposes the customer-facing booking endpoints.  It
// validates and shapes requests; every decision that touches the
// ledgers happens inside the booking service's transactions.
type BookingHandler struct {
	Svc      *service.BookingService
	Bookings *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, bookings *repository.BookingRepo) *BookingHandler {
	if svc == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Bookings: bookings}
}

// CreateOrder handles POST /v1/bookings/create-order.  Body:
// {"tableIds":[1,2],"bookingDate":"2024-01-01"}.  On success it returns
// 201 with the order id, the payment requirement and the reserved
// tables; on conflict 409 naming the tables that are already taken.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TableIDs    []uint64 `json:"tableIds"`
		BookingDate string   `json:"bookingDate"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.TableIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tableIds is required"})
	}
	date, err := parseBookingDate(body.BookingDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookingDate must be YYYY-MM-DD"})
	}

	res, err := h.Svc.CreateOrder(c.Request().Context(), userID, body.TableIDs, date)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// VerifyPayment handles POST /v1/bookings/verify-payment, a multipart
// form with orderId, refNbr, amount and the slip image file.
func (h *BookingHandler) VerifyPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := strings.TrimSpace(c.FormValue("orderId"))
	refNbr := strings.TrimSpace(c.FormValue("refNbr"))
	amountStr := strings.TrimSpace(c.FormValue("amount"))
	if orderID == "" || refNbr == "" || amountStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "orderId, refNbr and amount are required"})
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil || !amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a positive number"})
	}
	fileHeader, err := c.FormFile("slip")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slip file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read slip file"})
	}
	defer file.Close()

	res, err := h.Svc.VerifyPayment(c.Request().Context(), userID, orderID, refNbr, amount, file, fileHeader)
	if err != nil {
		return bookingError(c, err)
	}
	msg := "payment verified"
	if res.AlreadyProcessed {
		msg = "order already processed"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":          msg,
		"status":           res.Status,
		"alreadyProcessed": res.AlreadyProcessed,
		"slip_image_url":   res.SlipImageURL,
	})
}

// Cancel handles POST /v1/bookings/:id/cancel for the booking's owner.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), userID, getRole(c), bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// Transfer handles POST /v1/bookings/:id/transfer.  Body:
// {"recipientId":7,"refNbr":"...","amount":"20.00"} — refNbr/amount are
// required only while the transfer fee setting is positive.
func (h *BookingHandler) Transfer(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		RecipientID uint64 `json:"recipientId"`
		RefNbr      string `json:"refNbr"`
		Amount      string `json:"amount"`
	}
	if err := c.Bind(&body); err != nil || body.RecipientID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipientId is required"})
	}
	amount := decimal.Zero
	if s := strings.TrimSpace(body.Amount); s != "" {
		if amount, err = decimal.NewFromString(s); err != nil || amount.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a non-negative number"})
		}
	}
	if err := h.Svc.TransferBooking(c.Request().Context(), userID, bookingID, body.RecipientID, body.RefNbr, amount); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking transferred"})
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// bookingError maps service errors onto HTTP responses.  Messages for
// 4xx are written for direct display; unexpected errors stay generic
// and are logged by echo's recover/logger chain.
func bookingError(c echo.Context, err error) error {
	var (
		quotaErr    *service.QuotaError
		conflictErr *service.TableConflictError
		unknownErr  *service.UnknownTablesError
		amountErr   *service.AmountMismatchError
		verifyErr   *slipverify.VerifyError
	)
	switch {
	case errors.As(err, &quotaErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": quotaErr.Error()})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "some tables are already booked for this date",
			"tables": conflictErr.TableNumbers,
		})
	case errors.As(err, &unknownErr):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error":  "some tables do not exist",
			"tables": unknownErr.TableIDs,
		})
	case errors.As(err, &amountErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": amountErr.Error()})
	case errors.As(err, &verifyErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verifyErr.Error()})
	case errors.Is(err, service.ErrBookingDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking is temporarily disabled"})
	case errors.Is(err, service.ErrNoTablesRequested):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tableIds is required"})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrRecipientNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrBookingNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSelfTransfer), errors.Is(err, service.ErrTransferFeeUnpaid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRefUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slip already used"})
	case errors.Is(err, storage.ErrInvalidImage), errors.Is(err, storage.ErrImageTooLarge):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
