package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type projectRepository interface {
	CreateProject(ctx context.Context, project *models.Project) error
	ListProjects(ctx context.Context, openOnly bool) ([]models.Project, error)
	FindTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task, history *models.TaskHistory) error
	UpdateTask(ctx context.Context, task *models.Task, history *models.TaskHistory, comment *models.TaskComment, attachment *models.TaskAttachment) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, assignedToID string) ([]models.TaskDetail, error)
}

type projectUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ProjectConfig carries the default commission rate for new projects.
type ProjectConfig struct {
	DefaultCommission float64
}

// ProjectService manages client projects and the task board.
type ProjectService struct {
	repo      projectRepository
	users     projectUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    ProjectConfig
}

// NewProjectService constructs a ProjectService.
func NewProjectService(repo projectRepository, users projectUserRepository, validate *validator.Validate, logger *zap.Logger, config ProjectConfig) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultCommission <= 0 {
		config.DefaultCommission = 5.0
	}
	return &ProjectService{repo: repo, users: users, validator: validate, logger: logger, config: config}
}

// CreateProject opens a project for referrals.
func (s *ProjectService) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	rate := req.CommissionRate
	if rate <= 0 {
		rate = s.config.DefaultCommission
	}
	project := &models.Project{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		CommissionRate: rate,
		Status:         models.ProjectOpen,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// Projects lists projects newest first. openOnly restricts to the public
// OPEN listing.
func (s *ProjectService) Projects(ctx context.Context, openOnly bool) ([]models.Project, error) {
	projects, err := s.repo.ListProjects(ctx, openOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	return projects, nil
}

// CreateTask assigns a new task and writes its first history line.
func (s *ProjectService) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	if _, err := s.users.FindByID(ctx, req.AssignedToID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}

	task := &models.Task{
		Title:        req.Title,
		Description:  req.Description,
		ProjectName:  req.ProjectName,
		Priority:     req.Priority,
		Deadline:     req.Deadline,
		AssignedToID: req.AssignedToID,
		Status:       models.TaskTodo,
	}
	history := &models.TaskHistory{
		Change:    "Task created and assigned",
		UpdatedBy: "Admin",
	}
	if err := s.repo.CreateTask(ctx, task, history); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Tasks lists every task with history, comments and attachments. A non-empty
// assignedToID restricts the listing to one assignee.
func (s *ProjectService) Tasks(ctx context.Context, assignedToID string) ([]models.TaskDetail, error) {
	tasks, err := s.repo.ListTasks(ctx, assignedToID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

// UpdateTask lets the assignee (or an admin) move a task, comment on it, or
// attach a file. Status changes are journalled to the task history.
func (s *ProjectService) UpdateTask(ctx context.Context, userID string, isAdmin bool, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if req.Status == nil && req.Comment == nil && req.FileURL == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task status")
	}
	if req.FileURL != nil && (req.FileName == nil || *req.FileName == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attachment requires a file name")
	}

	task, err := s.repo.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if task.AssignedToID != userID && !isAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another user")
	}

	var history *models.TaskHistory
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		history = &models.TaskHistory{
			Change:    fmt.Sprintf("Status updated to %s", *req.Status),
			UpdatedBy: userID,
		}
	}
	var comment *models.TaskComment
	if req.Comment != nil && *req.Comment != "" {
		comment = &models.TaskComment{UserID: userID, Content: *req.Comment}
	}
	var attachment *models.TaskAttachment
	if req.FileURL != nil {
		attachment = &models.TaskAttachment{
			FileName: *req.FileName,
			FileURL:  *req.FileURL,
			FileType: fileExtension(*req.FileName),
		}
	}

	if err := s.repo.UpdateTask(ctx, task, history, comment, attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// DeleteTask removes a task permanently.
func (s *ProjectService) DeleteTask(ctx context.Context, id string) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

func fileExtension(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
