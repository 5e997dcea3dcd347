package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/service"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/response"
)

// ProjectHandler wires HTTP endpoints to the project and task service.
type ProjectHandler struct {
	service *service.ProjectService
}

// NewProjectHandler creates a new handler.
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: svc}
}

// CreateProject godoc
// @Summary Open a new project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body models.CreateProjectRequest true "Project"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// ListProjects godoc
// @Summary All projects
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.service.Projects(c.Request.Context(), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// OpenProjects godoc
// @Summary Publicly listed open projects
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /projects/open [get]
func (h *ProjectHandler) OpenProjects(c *gin.Context) {
	projects, err := h.service.Projects(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// CreateTask godoc
// @Summary Assign a new task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body models.CreateTaskRequest true "Task"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tasks [post]
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Tasks godoc
// @Summary All tasks with history, comments and attachments
// @Tags Tasks
// @Produce json
// @Param user_id query string false "Filter by assignee"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *ProjectHandler) Tasks(c *gin.Context) {
	tasks, err := h.service.Tasks(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// MyTasks godoc
// @Summary Tasks assigned to the caller
// @Tags Tasks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tasks/mine [get]
func (h *ProjectHandler) MyTasks(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tasks, err := h.service.Tasks(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// UpdateTask godoc
// @Summary Move a task, comment on it, or attach a file
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.UpdateTaskRequest true "Update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tasks/{id} [patch]
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), claims.UserID, isAdmin(claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [delete]
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
	if err := h.service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
