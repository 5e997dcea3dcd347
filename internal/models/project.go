package models

import "time"

// ProjectStatus tracks whether a project still accepts referrals and tasks.
type ProjectStatus string

const (
	ProjectOpen   ProjectStatus = "OPEN"
	ProjectClosed ProjectStatus = "CLOSED"
)

// Project is a client engagement offered on the portal. Open projects are
// publicly listed so referrers can pitch them.
type Project struct {
	ID             string        `db:"id" json:"id"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	Category       string        `db:"category" json:"category"`
	CommissionRate float64       `db:"commission_rate" json:"commission_rate"`
	Status         ProjectStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// CreateProjectRequest opens a new project.
type CreateProjectRequest struct {
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0"`
}

// TaskStatus is the kanban state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// Valid reports whether the status is one of the known states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Task is a unit of work assigned to one user.
type Task struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	ProjectName  string     `db:"project_name" json:"project_name"`
	Priority     string     `db:"priority" json:"priority"`
	Deadline     *string    `db:"deadline" json:"deadline,omitempty"`
	AssignedToID string     `db:"assigned_to_id" json:"assigned_to_id"`
	Status       TaskStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskHistory is one audit line on a task.
type TaskHistory struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	Change    string    `db:"change" json:"change"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TaskComment is a discussion entry on a task.
type TaskComment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TaskAttachment is a file linked to a task.
type TaskAttachment struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileURL   string    `db:"file_url" json:"file_url"`
	FileType  string    `db:"file_type" json:"file_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TaskDetail is a task with its assignee and related rows.
type TaskDetail struct {
	Task
	AssigneeName string           `db:"assignee_name" json:"assignee_name"`
	History      []TaskHistory    `json:"history"`
	Comments     []TaskComment    `json:"comments"`
	Attachments  []TaskAttachment `json:"attachments"`
}

// CreateTaskRequest assigns a new task.
type CreateTaskRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	ProjectName  string  `json:"project_name"`
	Priority     string  `json:"priority"`
	Deadline     *string `json:"deadline,omitempty"`
	AssignedToID string  `json:"assigned_to_id" validate:"required"`
}

// UpdateTaskRequest moves a task, comments on it, or attaches a file. All
// fields are optional but at least one must be present.
type UpdateTaskRequest struct {
	Status   *TaskStatus `json:"status,omitempty"`
	Comment  *string     `json:"comment,omitempty"`
	FileName *string     `json:"file_name,omitempty"`
	FileURL  *string     `json:"file_url,omitempty"`
}
