package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance service.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// CheckIn godoc
// @Summary Check in for today
// @Tags Attendance
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.CheckIn(c.Request.Context(), claims.UserID, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// CheckOut godoc
// @Summary Check out for today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.CheckOut(c.Request.Context(), claims.UserID, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Today godoc
// @Summary Today's attendance for the caller
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.Today(c.Request.Context(), claims.UserID, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// History godoc
// @Summary Attendance history for the caller
// @Tags Attendance
// @Produce json
// @Param limit query int false "Max records"
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.service.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Daily godoc
// @Summary All attendance for one date
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/daily [get]
func (h *AttendanceHandler) Daily(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	records, err := h.service.Daily(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
