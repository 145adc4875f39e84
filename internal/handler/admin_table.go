package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/norrapat/table-reserve/internal/repository"
)

// AdminTableHandler covers table CRUD for the admin panel.
type AdminTableHandler struct {
	Tables *repository.TableRepo
}

func NewAdminTableHandler(tables *repository.TableRepo) *AdminTableHandler {
	return &AdminTableHandler{Tables: tables}
}

type tableReq struct {
	TableNumber string `json:"tableNumber"`
	Capacity    uint32 `json:"capacity"`
	ZoneID      uint64 `json:"zoneId"`
}

func (r tableReq) validate() error {
	if strings.TrimSpace(r.TableNumber) == "" {
		return errors.New("tableNumber is required")
	}
	if r.Capacity == 0 {
		return errors.New("capacity must be positive")
	}
	if r.ZoneID == 0 {
		return errors.New("zoneId is required")
	}
	return nil
}

func (h *AdminTableHandler) Create(c echo.Context) error {
	var body tableReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	id, err := h.Tables.Create(c.Request().Context(), strings.TrimSpace(body.TableNumber), body.Capacity, body.ZoneID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create table"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *AdminTableHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	var body tableReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Tables.Update(c.Request().Context(), id, strings.TrimSpace(body.TableNumber), body.Capacity, body.ZoneID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table number already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "table updated"})
}

func (h *AdminTableHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	if err := h.Tables.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table has booking history"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete table"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "table deleted"})
}
