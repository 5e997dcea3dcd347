package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
	metrics *service.MetricsService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by mobile, password and role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil && res.AccessToken != "" {
		h.metrics.RecordLogin("password")
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// FaceLogin godoc
// @Summary Authenticate by face
// @Description Identify the user from a face descriptor
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.FaceLoginRequest true "Face descriptor"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/face-login [post]
func (h *AuthHandler) FaceLogin(c *gin.Context) {
	var req models.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid face login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.FaceLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordLogin("face")
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Register godoc
// @Summary Self-register an account
// @Description Creates a PENDING account awaiting admin approval
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	info, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, info)
}

// SetPassword godoc
// @Summary Complete first-time setup
// @Description Sets the password for an account provisioned without one
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SetPasswordRequest true "Set password payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/set-password [post]
func (h *AuthHandler) SetPassword(c *gin.Context) {
	var req models.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// FaceAuth godoc
// @Summary Enroll or verify face
// @Description First call enrolls the descriptor, later calls verify it
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.FaceLoginRequest true "Face descriptor"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /user/face-auth [post]
func (h *AuthHandler) FaceAuth(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid face payload"))
		return
	}

	if err := h.service.EnrollOrVerifyFace(c.Request.Context(), claims.UserID, req.FaceDescriptor); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the presented access token's session
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token := bearerToken(c)
	if err := h.service.Logout(c.Request.Context(), token, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:   claims.UserID,
		Name: claims.Name,
		Role: claims.Role,
	}
	response.JSON(c, http.StatusOK, info, nil)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) {
		return header[len(prefix):]
	}
	return ""
}
