package models

import "time"

// Holiday is a portal-wide calendar holiday.
type Holiday struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Date      string    `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Announcement is a role-scoped broadcast. An empty audience reaches
// everyone.
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Audience  *UserRole `db:"audience" json:"audience,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateHolidayRequest adds a holiday to the calendar.
type CreateHolidayRequest struct {
	Name string `json:"name" validate:"required"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// CreateAnnouncementRequest publishes a broadcast. An empty audience
// reaches every role.
type CreateAnnouncementRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Audience string `json:"audience"`
}

// Setting is a key/value admin configuration row.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
