package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/norrapat/table-reserve/internal/config"
	"github.com/norrapat/table-reserve/internal/handler"
	"github.com/norrapat/table-reserve/internal/middleware"
	"github.com/norrapat/table-reserve/internal/model"
)

// RegisterCustomer registers the booking endpoints under /v1.  All
// routes require a valid JWT; staff and admin accounts may also book
// tables, so every role passes the role check.  The rate limiter
// shields the order/payment flow from hammering.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleStaff, model.RoleAdmin),
		middleware.NewTokenBucket(rlCfg, rdb),
	)
	g.POST("/bookings/create-order", h.CreateOrder)
	g.POST("/bookings/verify-payment", h.VerifyPayment)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.POST("/bookings/:id/transfer", h.Transfer)
	g.GET("/my-bookings", h.MyBookings)
}
