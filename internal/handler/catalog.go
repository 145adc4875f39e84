package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/norrapat/table-reserve/internal/repository"
)

// CatalogHandler serves the public zone/table availability view.
type CatalogHandler struct {
	Tables *repository.TableRepo
}

func NewCatalogHandler(tables *repository.TableRepo) *CatalogHandler {
	return &CatalogHandler{Tables: tables}
}

// Zones handles GET /v1/zones?date=YYYY-MM-DD.  Date defaults to
// today (UTC).  The response never exposes who holds a table, only
// whether it is available for the requested date.
func (h *CatalogHandler) Zones(c echo.Context) error {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.QueryParam("date"); raw != "" {
		var err error
		if date, err = parseBookingDate(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}
	zones, err := h.Tables.ListZonesWithStatus(c.Request().Context(), date, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load zones"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  date.Format("2006-01-02"),
		"zones": zones,
	})
}
