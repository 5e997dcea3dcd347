package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// DocumentHandler wires HTTP endpoints to the document service.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// GenerateCertificate godoc
// @Summary Generate a completion certificate
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body models.GenerateCertificateRequest true "Certificate"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/certificate [post]
func (h *DocumentHandler) GenerateCertificate(c *gin.Context) {
	var req models.GenerateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid certificate payload"))
		return
	}

	link, err := h.service.GenerateCertificate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// GenerateJoiningLetter godoc
// @Summary Generate a joining letter
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body models.GenerateJoiningLetterRequest true "Joining letter"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/joining-letter [post]
func (h *DocumentHandler) GenerateJoiningLetter(c *gin.Context) {
	var req models.GenerateJoiningLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid joining letter payload"))
		return
	}

	link, err := h.service.GenerateJoiningLetter(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// GenerateSalarySlip godoc
// @Summary Generate a salary slip
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body models.GenerateSalarySlipRequest true "Salary slip"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/salary-slip [post]
func (h *DocumentHandler) GenerateSalarySlip(c *gin.Context) {
	var req models.GenerateSalarySlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid salary slip payload"))
		return
	}

	link, err := h.service.GenerateSalarySlip(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// GenerateNOC godoc
// @Summary Generate a no objection certificate
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body models.GenerateNOCRequest true "NOC"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/noc [post]
func (h *DocumentHandler) GenerateNOC(c *gin.Context) {
	var req models.GenerateNOCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid noc payload"))
		return
	}

	link, err := h.service.GenerateNOC(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Mine godoc
// @Summary The caller's documents with signed links
// @Tags Documents
// @Produce json
// @Param type query string false "Document type filter"
// @Success 200 {object} response.Envelope
// @Router /documents/mine [get]
func (h *DocumentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var docType *models.DocumentType
	if raw := c.Query("type"); raw != "" {
		t := models.DocumentType(raw)
		docType = &t
	}

	links, err := h.service.ListByUser(c.Request.Context(), claims.UserID, docType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// ListByUser godoc
// @Summary A user's documents with signed links
// @Tags Documents
// @Produce json
// @Param id path string true "User ID"
// @Param type query string false "Document type filter"
// @Success 200 {object} response.Envelope
// @Router /documents/users/{id} [get]
func (h *DocumentHandler) ListByUser(c *gin.Context) {
	var docType *models.DocumentType
	if raw := c.Query("type"); raw != "" {
		t := models.DocumentType(raw)
		docType = &t
	}

	links, err := h.service.ListByUser(c.Request.Context(), c.Param("id"), docType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// Download godoc
// @Summary Download a document by signed token
// @Tags Documents
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, filename, err := h.service.Download(c.Request.Context(), c.Query("token"), claims.UserID, isAdmin(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// Email godoc
// @Summary Email a document as an attachment
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body models.EmailDocumentRequest true "Recipient"
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/email [post]
func (h *DocumentHandler) Email(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.EmailDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}

	if err := h.service.Email(c.Request.Context(), req, claims.UserID, isAdmin(claims)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "document queued for delivery"}, nil)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
