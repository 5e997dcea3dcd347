package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// GameHandler wires HTTP endpoints to the racing game service.
type GameHandler struct {
	service *service.GameService
}

// NewGameHandler creates a new handler.
func NewGameHandler(svc *service.GameService) *GameHandler {
	return &GameHandler{service: svc}
}

// Join godoc
// @Summary Join a racing session
// @Description Joins the given session, or the newest waiting lobby when no id is supplied
// @Tags Game
// @Accept json
// @Produce json
// @Param id query string false "Session ID"
// @Param payload body models.JoinSessionRequest true "Player"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /game/sessions/join [post]
func (h *GameHandler) Join(c *gin.Context) {
	var req models.JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.UserID = &claims.UserID
		if req.Name == "" {
			req.Name = claims.Name
		}
	}

	session, player, err := h.service.Join(c.Request.Context(), c.Query("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"session": session, "player": player})
}

// Heartbeat godoc
// @Summary Report player state
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.HeartbeatRequest true "Heartbeat"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /game/sessions/{id}/heartbeat [post]
func (h *GameHandler) Heartbeat(c *gin.Context) {
	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid heartbeat payload"))
		return
	}

	player, err := h.service.Heartbeat(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, player, nil)
}

// State godoc
// @Summary Poll session state
// @Tags Game
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /game/sessions/{id} [get]
func (h *GameHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Leaderboard godoc
// @Summary Global leaderboard
// @Tags Game
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /game/leaderboard [get]
func (h *GameHandler) Leaderboard(c *gin.Context) {
	entries, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
