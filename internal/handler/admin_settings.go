package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/norrapat/table-reserve/internal/model"
	"github.com/norrapat/table-reserve/internal/repository"
)

// AdminSettingsHandler reads and writes the runtime settings rows.
type AdminSettingsHandler struct {
	Settings *repository.SettingsRepo
}

func NewAdminSettingsHandler(settings *repository.SettingsRepo) *AdminSettingsHandler {
	return &AdminSettingsHandler{Settings: settings}
}

// knownSettings prevents typos from silently creating dead rows.
var knownSettings = map[string]bool{
	model.SettingBookingEnabled:     true,
	model.SettingMaxBookingsPerUser: true,
	model.SettingDefaultBookingFee:  true,
	model.SettingTransferFee:        true,
}

// List handles GET /v1/admin/settings.
func (h *AdminSettingsHandler) List(c echo.Context) error {
	settings, err := h.Settings.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load settings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": settings})
}

// Update handles PUT /v1/admin/settings.  Body: {"name":"...","value":"..."}.
// Values are stored as strings; readers fall back to safe defaults when
// a value does not parse, so a bad write degrades rather than breaks.
func (h *AdminSettingsHandler) Update(c echo.Context) error {
	var body struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if !knownSettings[name] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown setting name"})
	}
	if err := h.Settings.Upsert(c.Request().Context(), name, strings.TrimSpace(body.Value)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save setting"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "setting saved"})
}
