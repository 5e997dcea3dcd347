package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// LeaveHandler wires HTTP endpoints to the leave service.
type LeaveHandler struct {
	service *service.LeaveService
}

// NewLeaveHandler creates a new handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Apply godoc
// @Summary Apply for leave
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body models.ApplyLeaveRequest true "Leave application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leave [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	req.UserID = claims.UserID

	leave, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Mine godoc
// @Summary The caller's leave applications
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leave/mine [get]
func (h *LeaveHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	leaves, err := h.service.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// List godoc
// @Summary All leave applications
// @Tags Leave
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /leave [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var status *models.LeaveStatus
	if raw := c.Query("status"); raw != "" {
		s := models.LeaveStatus(raw)
		status = &s
	}

	leaves, err := h.service.ListAll(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a leave application
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body models.UpdateLeaveStatusRequest true "Status update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave/status [patch]
func (h *LeaveHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateLeaveStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	leave, err := h.service.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Balance godoc
// @Summary Leave balance for the caller
// @Tags Leave
// @Produce json
// @Param year query int false "Year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /leave/balance [get]
func (h *LeaveHandler) Balance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	balance, err := h.service.Balance(c.Request.Context(), claims.UserID, year, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}
