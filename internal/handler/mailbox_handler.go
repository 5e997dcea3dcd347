package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// MailboxHandler wires HTTP endpoints to the mailbox service.
type MailboxHandler struct {
	service *service.MailboxService
}

// NewMailboxHandler creates a new handler.
func NewMailboxHandler(svc *service.MailboxService) *MailboxHandler {
	return &MailboxHandler{service: svc}
}

// Me godoc
// @Summary The caller's mailbox
// @Description Lazily provisions the portal address on first access
// @Tags Mailbox
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mailbox [get]
func (h *MailboxHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	mailbox, err := h.service.EnsureMailbox(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mailbox, nil)
}

// Send godoc
// @Summary Send or draft an email
// @Tags Mailbox
// @Accept json
// @Produce json
// @Param payload body models.SendEmailRequest true "Email"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mailbox/send [post]
func (h *MailboxHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}
	req.SenderUserID = claims.UserID

	result, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Folder godoc
// @Summary List a mailbox folder
// @Tags Mailbox
// @Produce json
// @Param folder path string true "INBOX, SENT, DRAFTS or TRASH"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mailbox/folders/{folder} [get]
func (h *MailboxHandler) Folder(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	folder := models.MailFolder(strings.ToUpper(c.Param("folder")))
	entries, err := h.service.Folder(c.Request.Context(), claims.UserID, folder)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// UpdateEntry godoc
// @Summary Update a mailbox entry
// @Description Toggle read or starred flags, or move between folders
// @Tags Mailbox
// @Accept json
// @Produce json
// @Param payload body models.UpdateRecipientRequest true "Entry update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mailbox/entries [patch]
func (h *MailboxHandler) UpdateEntry(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}

	entry, err := h.service.UpdateEntry(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// DeleteEntry godoc
// @Summary Delete a mailbox entry
// @Description Moves to trash first, deletes permanently from trash
// @Tags Mailbox
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mailbox/entries/{id} [delete]
func (h *MailboxHandler) DeleteEntry(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteEntry(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnreadCount godoc
// @Summary Unread inbox count
// @Tags Mailbox
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mailbox/unread [get]
func (h *MailboxHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}
