package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// InvoiceHandler wires HTTP endpoints to the invoice service.
type InvoiceHandler struct {
	service   *service.InvoiceService
	dashboard *service.DashboardService
	metrics   *service.MetricsService
}

// NewInvoiceHandler creates a new handler.
func NewInvoiceHandler(svc *service.InvoiceService, dashboard *service.DashboardService, metrics *service.MetricsService) *InvoiceHandler {
	return &InvoiceHandler{service: svc, dashboard: dashboard, metrics: metrics}
}

// Create godoc
// @Summary Create an invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body models.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}

	invoice, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordInvoiceCreated()
	}
	if h.dashboard != nil {
		h.dashboard.InvalidateStats(c.Request.Context())
	}
	response.Created(c, invoice)
}

// Get godoc
// @Summary Get an invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// List godoc
// @Summary List all invoices
// @Tags Invoices
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, nil)
}

// Mine godoc
// @Summary The caller's invoices
// @Tags Invoices
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invoices/mine [get]
func (h *InvoiceHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invoices, err := h.service.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, nil)
}

// RecordPayment godoc
// @Summary Record a payment against an invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body models.RecordPaymentRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	invoice, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.dashboard != nil {
		h.dashboard.InvalidateStats(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Delete godoc
// @Summary Delete an invoice
// @Description Removes the invoice and reverses its ledger effect
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	if h.dashboard != nil {
		h.dashboard.InvalidateStats(c.Request.Context())
	}
	response.NoContent(c)
}

// Email godoc
// @Summary Email an invoice PDF
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body models.EmailInvoiceRequest true "Recipient"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/email [post]
func (h *InvoiceHandler) Email(c *gin.Context) {
	var req models.EmailInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}

	if err := h.service.Email(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "invoice queued for delivery"}, nil)
}

// PDF godoc
// @Summary Download the invoice PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *gin.Context) {
	data, filename, err := h.service.PDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
