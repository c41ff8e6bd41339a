package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/service"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
	"github.com/haneul-lab/storybook-api/pkg/response"
)

// SettingsHandler exposes the classroom configuration endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List godoc
// @Summary List settings with secret values masked
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Write one writable setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.UpdateSettingRequest true "Setting payload"
// @Success 204 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	if err := h.settings.Update(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetTeacherPIN godoc
// @Summary Set the shared teacher PIN
// @Tags Settings
// @Accept json
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /settings/teacher-pin [put]
func (h *SettingsHandler) SetTeacherPIN(c *gin.Context) {
	var payload struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a PIN is required"))
		return
	}
	if err := h.settings.SetTeacherPIN(c.Request.Context(), payload.PIN); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
