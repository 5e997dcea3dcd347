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

// ChatHandler wires HTTP endpoints to the chat service.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Send godoc
// @Summary Send a direct message
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body models.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	req.SenderID = claims.UserID

	message, err := h.service.SendMessage(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// Messages godoc
// @Summary Messages in a conversation
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Max messages"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chat/conversations/{id}/messages [get]
func (h *ChatHandler) Messages(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.service.Messages(c.Request.Context(), claims.UserID, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// WithUser godoc
// @Summary Find or start a conversation with a user
// @Tags Chat
// @Produce json
// @Param id path string true "Other user ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chat/with/{id} [get]
func (h *ChatHandler) WithUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversation, err := h.service.WithUser(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conversation, nil)
}

// Contacts godoc
// @Summary Users available to chat with
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/contacts [get]
func (h *ChatHandler) Contacts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contacts, err := h.service.Contacts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil)
}

// Monitor godoc
// @Summary All conversations with last message previews
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chat/monitor [get]
func (h *ChatHandler) Monitor(c *gin.Context) {
	conversations, err := h.service.Monitor(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conversations, nil)
}

// Conversations godoc
// @Summary The caller's conversations with last message previews
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chat/conversations [get]
func (h *ChatHandler) Conversations(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversations, err := h.service.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conversations, nil)
}
