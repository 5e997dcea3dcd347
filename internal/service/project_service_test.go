package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type projectRepoStub struct {
	task *models.Task

	createdProject *models.Project
	createdTask    *models.Task
	createdHistory *models.TaskHistory

	updatedTask       *models.Task
	updatedHistory    *models.TaskHistory
	updatedComment    *models.TaskComment
	updatedAttachment *models.TaskAttachment

	deletedID string
}

func (s *projectRepoStub) CreateProject(_ context.Context, project *models.Project) error {
	project.ID = "proj-new"
	s.createdProject = project
	return nil
}

func (s *projectRepoStub) ListProjects(_ context.Context, _ bool) ([]models.Project, error) {
	return nil, nil
}

func (s *projectRepoStub) FindTask(_ context.Context, id string) (*models.Task, error) {
	if s.task == nil || s.task.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.task
	return &copied, nil
}

func (s *projectRepoStub) CreateTask(_ context.Context, task *models.Task, history *models.TaskHistory) error {
	task.ID = "task-new"
	s.createdTask = task
	s.createdHistory = history
	return nil
}

func (s *projectRepoStub) UpdateTask(_ context.Context, task *models.Task, history *models.TaskHistory, comment *models.TaskComment, attachment *models.TaskAttachment) error {
	s.updatedTask = task
	s.updatedHistory = history
	s.updatedComment = comment
	s.updatedAttachment = attachment
	return nil
}

func (s *projectRepoStub) DeleteTask(_ context.Context, id string) error {
	if s.task == nil || s.task.ID != id {
		return sql.ErrNoRows
	}
	s.deletedID = id
	return nil
}

func (s *projectRepoStub) ListTasks(_ context.Context, _ string) ([]models.TaskDetail, error) {
	return nil, nil
}

type projectUserStub struct {
	users map[string]*models.User
}

func (s *projectUserStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func TestCreateProjectDefaultsCommission(t *testing.T) {
	repo := &projectRepoStub{}
	svc := NewProjectService(repo, &projectUserStub{}, nil, nil, ProjectConfig{})

	project, err := svc.CreateProject(context.Background(), models.CreateProjectRequest{Title: "Landing page"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, project.CommissionRate)
	assert.Equal(t, models.ProjectOpen, project.Status)
}

func TestCreateTaskUnknownAssignee(t *testing.T) {
	svc := NewProjectService(&projectRepoStub{}, &projectUserStub{}, nil, nil, ProjectConfig{})

	_, err := svc.CreateTask(context.Background(), models.CreateTaskRequest{
		Title:        "Wireframes",
		AssignedToID: "ghost",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateTaskJournalsAssignment(t *testing.T) {
	repo := &projectRepoStub{}
	users := &projectUserStub{users: map[string]*models.User{"user-1": {ID: "user-1"}}}
	svc := NewProjectService(repo, users, nil, nil, ProjectConfig{})

	task, err := svc.CreateTask(context.Background(), models.CreateTaskRequest{
		Title:        "Wireframes",
		AssignedToID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskTodo, task.Status)
	require.NotNil(t, repo.createdHistory)
	assert.Equal(t, "Task created and assigned", repo.createdHistory.Change)
	assert.Equal(t, "Admin", repo.createdHistory.UpdatedBy)
}

func TestUpdateTaskBelongsToAnotherUser(t *testing.T) {
	repo := &projectRepoStub{task: &models.Task{ID: "task-1", AssignedToID: "user-1", Status: models.TaskTodo}}
	svc := NewProjectService(repo, &projectUserStub{}, nil, nil, ProjectConfig{})

	status := models.TaskInProgress
	_, err := svc.UpdateTask(context.Background(), "user-2", false, "task-1", models.UpdateTaskRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateTaskAdminOverridesOwnership(t *testing.T) {
	repo := &projectRepoStub{task: &models.Task{ID: "task-1", AssignedToID: "user-1", Status: models.TaskTodo}}
	svc := NewProjectService(repo, &projectUserStub{}, nil, nil, ProjectConfig{})

	status := models.TaskDone
	task, err := svc.UpdateTask(context.Background(), "admin-1", true, "task-1", models.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, task.Status)
}

func TestUpdateTaskStatusJournalled(t *testing.T) {
	repo := &projectRepoStub{task: &models.Task{ID: "task-1", AssignedToID: "user-1", Status: models.TaskTodo}}
	svc := NewProjectService(repo, &projectUserStub{}, nil, nil, ProjectConfig{})

	status := models.TaskInProgress
	_, err := svc.UpdateTask(context.Background(), "user-1", false, "task-1", models.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, repo.updatedHistory)
	assert.Equal(t, "Status updated to IN_PROGRESS", repo.updatedHistory.Change)
	assert.Equal(t, "user-1", repo.updatedHistory.UpdatedBy)
}

func TestUpdateTaskNothingToUpdate(t *testing.T) {
	svc := NewProjectService(&projectRepoStub{}, &projectUserStub{}, nil, nil, ProjectConfig{})

	_, err := svc.UpdateTask(context.Background(), "user-1", false, "task-1", models.UpdateTaskRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateTaskAttachmentNeedsFileName(t *testing.T) {
	svc := NewProjectService(&projectRepoStub{}, &projectUserStub{}, nil, nil, ProjectConfig{})

	url := "https://files.example/report.pdf"
	_, err := svc.UpdateTask(context.Background(), "user-1", false, "task-1", models.UpdateTaskRequest{FileURL: &url})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateTaskAttachmentDerivesFileType(t *testing.T) {
	repo := &projectRepoStub{task: &models.Task{ID: "task-1", AssignedToID: "user-1", Status: models.TaskTodo}}
	svc := NewProjectService(repo, &projectUserStub{}, nil, nil, ProjectConfig{})

	name := "report.pdf"
	url := "https://files.example/report.pdf"
	_, err := svc.UpdateTask(context.Background(), "user-1", false, "task-1", models.UpdateTaskRequest{FileName: &name, FileURL: &url})
	require.NoError(t, err)
	require.NotNil(t, repo.updatedAttachment)
	assert.Equal(t, "pdf", repo.updatedAttachment.FileType)
	assert.Nil(t, repo.updatedHistory)
}

func TestDeleteTaskNotFound(t *testing.T) {
	svc := NewProjectService(&projectRepoStub{}, &projectUserStub{}, nil, nil, ProjectConfig{})

	err := svc.DeleteTask(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
