package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/norrapat/table-reserve/internal/repository"
)

// AdminZoneHandler covers zone CRUD for the admin panel.
type AdminZoneHandler struct {
	Zones *repository.ZoneRepo
}

func NewAdminZoneHandler(zones *repository.ZoneRepo) *AdminZoneHandler {
	return &AdminZoneHandler{Zones: zones}
}

type zoneReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	BookingFee  *string `json:"bookingFee"`
}

func (r zoneReq) fee() (*decimal.Decimal, error) {
	if r.BookingFee == nil || strings.TrimSpace(*r.BookingFee) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*r.BookingFee))
	if err != nil || d.IsNegative() {
		return nil, errors.New("bookingFee must be a non-negative number")
	}
	return &d, nil
}

func (h *AdminZoneHandler) Create(c echo.Context) error {
	var body zoneReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	fee, err := body.fee()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	id, err := h.Zones.Create(c.Request().Context(), strings.TrimSpace(body.Name), body.Description, fee)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create zone"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *AdminZoneHandler) List(c echo.Context) error {
	zones, err := h.Zones.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load zones"})
	}
	return c.JSON(http.StatusOK, echo.Map{"zones": zones})
}

func (h *AdminZoneHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone id"})
	}
	var body zoneReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	fee, err := body.fee()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Zones.Update(c.Request().Context(), id, strings.TrimSpace(body.Name), body.Description, fee); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "zone not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update zone"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "zone updated"})
}

func (h *AdminZoneHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone id"})
	}
	if err := h.Zones.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "zone still has tables"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "zone not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete zone"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "zone deleted"})
}
