package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// ReferralHandler wires HTTP endpoints to the referral service.
type ReferralHandler struct {
	service *service.ReferralService
}

// NewReferralHandler creates a new handler.
func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: svc}
}

// SubmitLead godoc
// @Summary Refer a prospective student
// @Tags Referrals
// @Accept json
// @Produce json
// @Param payload body models.SubmitLeadRequest true "Lead"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /referrals/leads [post]
func (h *ReferralHandler) SubmitLead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lead payload"))
		return
	}

	referral, err := h.service.SubmitLead(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, referral)
}

// SubmitProject godoc
// @Summary Refer a project
// @Tags Referrals
// @Accept json
// @Produce json
// @Param payload body models.SubmitProjectReferralRequest true "Project"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /referrals/projects [post]
func (h *ReferralHandler) SubmitProject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubmitProjectReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	referral, err := h.service.SubmitProject(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, referral)
}

// Mine godoc
// @Summary The caller's referrals with earnings stats
// @Tags Referrals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /referrals/mine [get]
func (h *ReferralHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	referrals, err := h.service.ListByReferrer(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"referrals": referrals, "stats": stats}, nil)
}

// List godoc
// @Summary All referrals
// @Tags Referrals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /referrals [get]
func (h *ReferralHandler) List(c *gin.Context) {
	referrals, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referrals, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a referral
// @Description Approval credits the referrer's wallet and notifies them
// @Tags Referrals
// @Accept json
// @Produce json
// @Param id path string true "Referral ID"
// @Param payload body models.UpdateReferralStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /referrals/{id}/status [patch]
func (h *ReferralHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateReferralStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	referral, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referral, nil)
}
