package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// SubmissionHandler wires HTTP endpoints to the weekly submission service.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler creates a new handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Upload the week's documents
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "PDF report"
// @Param excel formData file true "Excel sheet"
// @Param week_date formData string false "Week Monday (YYYY-MM-DD)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pdf, err := readFormFile(c, "pdf")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing PDF upload"))
		return
	}
	excel, err := readFormFile(c, "excel")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing Excel upload"))
		return
	}

	submission, err := h.service.Submit(c.Request.Context(), claims.UserID, c.PostForm("week_date"), pdf, excel, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Mine godoc
// @Summary The caller's submission history
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions/mine [get]
func (h *SubmissionHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissions, err := h.service.Mine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Report godoc
// @Summary Weekly submission report across all active students
// @Tags Submissions
// @Produce json
// @Param week query string true "Week Monday (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions/report [get]
func (h *SubmissionHandler) Report(c *gin.Context) {
	week := c.Query("week")
	if week == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing week parameter"))
		return
	}

	report, err := h.service.WeeklyReport(c.Request.Context(), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// UpdateStatus godoc
// @Summary Review a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.UpdateSubmissionStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/status [patch]
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateSubmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": req.Status}, nil)
}

// Delete godoc
// @Summary Delete a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remind godoc
// @Summary Send a submission reminder to a student
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body models.SubmissionReminderRequest true "Target"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/remind [post]
func (h *SubmissionHandler) Remind(c *gin.Context) {
	var req models.SubmissionReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reminder payload"))
		return
	}

	if err := h.service.Remind(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "reminder queued"}, nil)
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return readMultipartFile(header)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck
	return io.ReadAll(file)
}
