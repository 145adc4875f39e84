package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/service"
)

// AdminBookingHandler covers the staff/admin booking operations: the
// per-date management grid, forced cancellation and the manual expiry
// sweep.
type AdminBookingHandler struct {
	Svc    *service.BookingService
	Tables *repository.TableRepo
	Orders *repository.OrderRepo
}

func NewAdminBookingHandler(svc *service.BookingService, tables *repository.TableRepo, orders *repository.OrderRepo) *AdminBookingHandler {
	return &AdminBookingHandler{Svc: svc, Tables: tables, Orders: orders}
}

// TablesManage handles GET /v1/admin/tables-manage?date=.  Unlike the
// public zone view, each booked table carries the holder's booking so
// staff can act on it.
func (h *AdminBookingHandler) TablesManage(c echo.Context) error {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.QueryParam("date"); raw != "" {
		var err error
		if date, err = parseBookingDate(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}
	zones, err := h.Tables.ListZonesWithStatus(c.Request().Context(), date, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tables"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  date.Format("2006-01-02"),
		"zones": zones,
	})
}

// CancelBooking handles POST /v1/admin/bookings/:id/cancel.  The role
// check in the route group means the service skips the ownership test.
func (h *AdminBookingHandler) CancelBooking(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), callerID, getRole(c), bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// ExpireStale handles POST /v1/admin/orders/expire-stale.  The same
// sweep runs inline at the start of every booking transaction; this
// endpoint lets staff trigger it without waiting for traffic.
func (h *AdminBookingHandler) ExpireStale(c echo.Context) error {
	n, err := h.Svc.ExpireStaleOrders(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// DashboardStats handles GET /v1/admin/dashboard-stats?date=.
func (h *AdminBookingHandler) DashboardStats(c echo.Context) error {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.QueryParam("date"); raw != "" {
		var err error
		if date, err = parseBookingDate(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}
	stats, err := h.Orders.Stats(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
