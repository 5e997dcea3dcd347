package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// PortalHandler wires HTTP endpoints for holidays, announcements and settings.
type PortalHandler struct {
	service *service.PortalService
}

// NewPortalHandler creates a new handler.
func NewPortalHandler(svc *service.PortalService) *PortalHandler {
	return &PortalHandler{service: svc}
}

// Holidays godoc
// @Summary Holiday calendar for a year
// @Tags Portal
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *PortalHandler) Holidays(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	holidays, err := h.service.Holidays(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// AddHoliday godoc
// @Summary Add a holiday
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.CreateHolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /holidays [post]
func (h *PortalHandler) AddHoliday(c *gin.Context) {
	var req models.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}

	holiday, err := h.service.AddHoliday(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// RemoveHoliday godoc
// @Summary Delete a holiday
// @Tags Portal
// @Produce json
// @Param id path string true "Holiday ID"
// @Success 204 {object} response.Envelope
// @Router /holidays/{id} [delete]
func (h *PortalHandler) RemoveHoliday(c *gin.Context) {
	if err := h.service.RemoveHoliday(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Announcements godoc
// @Summary Announcements visible to the caller
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *PortalHandler) Announcements(c *gin.Context) {
	var role *models.UserRole
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		role = &claims.Role
	}

	announcements, err := h.service.Announcements(c.Request.Context(), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcements, nil)
}

// Announce godoc
// @Summary Publish an announcement
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /announcements [post]
func (h *PortalHandler) Announce(c *gin.Context) {
	var req models.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}

	announcement, err := h.service.Announce(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// RemoveAnnouncement godoc
// @Summary Delete an announcement
// @Tags Portal
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204 {object} response.Envelope
// @Router /announcements/{id} [delete]
func (h *PortalHandler) RemoveAnnouncement(c *gin.Context) {
	if err := h.service.RemoveAnnouncement(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Settings godoc
// @Summary List admin settings
// @Tags Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *PortalHandler) Settings(c *gin.Context) {
	settings, err := h.service.Settings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// GetSetting godoc
// @Summary One admin setting by key
// @Tags Portal
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /settings/{key} [get]
func (h *PortalHandler) GetSetting(c *gin.Context) {
	setting, err := h.service.Setting(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// PutSetting godoc
// @Summary Upsert an admin setting
// @Tags Portal
// @Accept json
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [put]
func (h *PortalHandler) PutSetting(c *gin.Context) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}

	if err := h.service.PutSetting(c.Request.Context(), payload.Key, payload.Value); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
