package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// NotificationHandler wires HTTP endpoints to the notification service.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary The caller's notifications
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max notifications"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	notifications, unread, err := h.service.List(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil, map[string]interface{}{"unread": unread})
}

// MarkRead godoc
// @Summary Mark notifications read
// @Description Marks one notification read, or all when no id is given
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /notifications/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		ID string `json:"id"`
	}
	_ = c.ShouldBindJSON(&payload)

	if err := h.service.MarkRead(c.Request.Context(), claims.UserID, payload.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
