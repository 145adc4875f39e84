package router

import (
	"github.com/labstack/echo/v4"

	"github.com/norrapat/table-reserve/internal/handler"
	"github.com/norrapat/table-reserve/internal/middleware"
	"github.com/norrapat/table-reserve/internal/model"
)

// AdminHandlers bundles the handlers mounted under /v1/admin so the
// registration signature stays readable.
type AdminHandlers struct {
	Zones    *handler.AdminZoneHandler
	Tables   *handler.AdminTableHandler
	Bookings *handler.AdminBookingHandler
	Settings *handler.AdminSettingsHandler
}

// RegisterAdmin registers the staff/admin surface.  Staff get the
// day-to-day operations (management grid, cancellations, stats, the
// manual expiry sweep); catalog and settings writes are admin only.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	staff := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	staff.GET("/tables-manage", h.Bookings.TablesManage)
	staff.GET("/dashboard-stats", h.Bookings.DashboardStats)
	staff.POST("/bookings/:id/cancel", h.Bookings.CancelBooking)
	staff.POST("/orders/expire-stale", h.Bookings.ExpireStale)

	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/zones", h.Zones.Create)
	admin.GET("/zones", h.Zones.List)
	admin.PUT("/zones/:id", h.Zones.Update)
	admin.DELETE("/zones/:id", h.Zones.Delete)

	admin.POST("/tables", h.Tables.Create)
	admin.PUT("/tables/:id", h.Tables.Update)
	admin.DELETE("/tables/:id", h.Tables.Delete)

	admin.GET("/settings", h.Settings.List)
	admin.PUT("/settings", h.Settings.Update)
}
