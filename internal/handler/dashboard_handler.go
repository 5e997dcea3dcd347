package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// DashboardHandler wires HTTP endpoints to the dashboard service.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Admin dashboard snapshot
// @Tags Dashboard
// @Produce json
// @Param year query int false "Revenue year (defaults to current)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	stats, err := h.service.Stats(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// PendingDues godoc
// @Summary Users with unpaid fees
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/pending-dues [get]
func (h *DashboardHandler) PendingDues(c *gin.Context) {
	report, err := h.service.PendingDues(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportPendingDues godoc
// @Summary Download the pending dues report
// @Tags Dashboard
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /dashboard/pending-dues/export [get]
func (h *DashboardHandler) ExportPendingDues(c *gin.Context) {
	raw, contentType, filename, err := h.service.PendingDuesExport(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, raw)
}

// CreatePurchase godoc
// @Summary Record an expense
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param payload body models.CreatePurchaseRequest true "Purchase"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /purchases [post]
func (h *DashboardHandler) CreatePurchase(c *gin.Context) {
	var req models.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase payload"))
		return
	}

	purchase, err := h.service.RecordPurchase(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, purchase)
}

// Purchases godoc
// @Summary The expense ledger
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /purchases [get]
func (h *DashboardHandler) Purchases(c *gin.Context) {
	purchases, err := h.service.Purchases(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purchases, nil)
}
