package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// ProjectRepository manages persistence for projects and their tasks.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs a ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject inserts a project.
func (r *ProjectRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO projects (id, title, description, category, commission_rate, status, created_at)
        VALUES (:id, :title, :description, :category, :commission_rate, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// ListProjects returns projects newest first. When openOnly is set only OPEN
// projects are returned.
func (r *ProjectRepository) ListProjects(ctx context.Context, openOnly bool) ([]models.Project, error) {
	query := `SELECT id, title, description, category, commission_rate, status, created_at
        FROM projects`
	args := []interface{}{}
	if openOnly {
		query += ` WHERE status = $1`
		args = append(args, models.ProjectOpen)
	}
	query += ` ORDER BY created_at DESC`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// FindTask returns one task row.
func (r *ProjectRepository) FindTask(ctx context.Context, id string) (*models.Task, error) {
	const query = `SELECT id, title, description, project_name, priority, deadline, assigned_to_id,
        status, created_at, updated_at FROM tasks WHERE id = $1 LIMIT 1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// CreateTask inserts a task together with its first history line.
func (r *ProjectRepository) CreateTask(ctx context.Context, task *models.Task, history *models.TaskHistory) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const insertTask = `INSERT INTO tasks (id, title, description, project_name, priority, deadline,
        assigned_to_id, status, created_at, updated_at)
        VALUES (:id, :title, :description, :project_name, :priority, :deadline,
        :assigned_to_id, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertTask, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	if history != nil {
		history.TaskID = task.ID
		if err := insertTaskHistory(ctx, tx, history); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create task: %w", err)
	}
	committed = true
	return nil
}

// UpdateTask applies a status change alongside optional history, comment and
// attachment rows in one transaction.
func (r *ProjectRepository) UpdateTask(ctx context.Context, task *models.Task, history *models.TaskHistory, comment *models.TaskComment, attachment *models.TaskAttachment) error {
	task.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update task: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const update = `UPDATE tasks SET status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if history != nil {
		history.TaskID = task.ID
		if err := insertTaskHistory(ctx, tx, history); err != nil {
			return err
		}
	}
	if comment != nil {
		comment.TaskID = task.ID
		if comment.ID == "" {
			comment.ID = uuid.NewString()
		}
		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = time.Now().UTC()
		}
		const insertComment = `INSERT INTO task_comments (id, task_id, user_id, content, created_at)
            VALUES (:id, :task_id, :user_id, :content, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertComment, comment); err != nil {
			return fmt.Errorf("create task comment: %w", err)
		}
	}
	if attachment != nil {
		attachment.TaskID = task.ID
		if attachment.ID == "" {
			attachment.ID = uuid.NewString()
		}
		if attachment.CreatedAt.IsZero() {
			attachment.CreatedAt = time.Now().UTC()
		}
		const insertAttachment = `INSERT INTO task_attachments (id, task_id, file_name, file_url, file_type, created_at)
            VALUES (:id, :task_id, :file_name, :file_url, :file_type, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertAttachment, attachment); err != nil {
			return fmt.Errorf("create task attachment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update task: %w", err)
	}
	committed = true
	return nil
}

// DeleteTask removes a task and its dependent rows.
func (r *ProjectRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTasks returns tasks with related rows, newest first. An empty
// assignedToID lists every task.
func (r *ProjectRepository) ListTasks(ctx context.Context, assignedToID string) ([]models.TaskDetail, error) {
	query := `SELECT t.id, t.title, t.description, t.project_name, t.priority, t.deadline,
        t.assigned_to_id, t.status, t.created_at, t.updated_at, u.name AS assignee_name
        FROM tasks t JOIN users u ON u.id = t.assigned_to_id`
	args := []interface{}{}
	if assignedToID != "" {
		query += ` WHERE t.assigned_to_id = $1`
		args = append(args, assignedToID)
	}
	query += ` ORDER BY t.created_at DESC`

	var tasks []models.TaskDetail
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		if err := r.loadTaskRelations(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *ProjectRepository) loadTaskRelations(ctx context.Context, task *models.TaskDetail) error {
	const historyQuery = `SELECT id, task_id, change, updated_by, created_at
        FROM task_history WHERE task_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &task.History, historyQuery, task.ID); err != nil {
		return fmt.Errorf("list task history: %w", err)
	}
	const commentQuery = `SELECT id, task_id, user_id, content, created_at
        FROM task_comments WHERE task_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &task.Comments, commentQuery, task.ID); err != nil {
		return fmt.Errorf("list task comments: %w", err)
	}
	const attachmentQuery = `SELECT id, task_id, file_name, file_url, file_type, created_at
        FROM task_attachments WHERE task_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &task.Attachments, attachmentQuery, task.ID); err != nil {
		return fmt.Errorf("list task attachments: %w", err)
	}
	return nil
}

func insertTaskHistory(ctx context.Context, tx *sqlx.Tx, history *models.TaskHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO task_history (id, task_id, change, updated_by, created_at)
        VALUES (:id, :task_id, :change, :updated_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, history); err != nil {
		return fmt.Errorf("create task history: %w", err)
	}
	return nil
}
