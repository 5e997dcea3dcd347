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

// HolidayRepository manages persistence for the holiday calendar,
// announcements and key-value settings.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ListHolidays returns holidays in a year, ordered by date.
func (r *HolidayRepository) ListHolidays(ctx context.Context, year int) ([]models.Holiday, error) {
	const query = `SELECT id, name, date, created_at FROM holidays WHERE date LIKE $1 ORDER BY date ASC`
	prefix := fmt.Sprintf("%04d-%%", year)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, prefix); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// CreateHoliday inserts a holiday.
func (r *HolidayRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO holidays (id, name, date, created_at) VALUES (:id, :name, :date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday.
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, id string) error {
	const query = `DELETE FROM holidays WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}

// IsHoliday reports whether a date has a holiday entry.
func (r *HolidayRepository) IsHoliday(ctx context.Context, date string) (bool, error) {
	const query = `SELECT 1 FROM holidays WHERE date = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, date); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check holiday: %w", err)
	}
	return true, nil
}

// ListAnnouncements returns announcements visible to a role, newest first.
// Admin callers pass nil to see everything.
func (r *HolidayRepository) ListAnnouncements(ctx context.Context, role *models.UserRole) ([]models.Announcement, error) {
	query := `SELECT id, title, content, audience, created_at, updated_at FROM announcements`
	var args []interface{}
	if role != nil {
		query += ` WHERE audience IS NULL OR audience = $1`
		args = append(args, *role)
	}
	query += ` ORDER BY created_at DESC`
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}

// CreateAnnouncement inserts an announcement.
func (r *HolidayRepository) CreateAnnouncement(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, title, content, audience, created_at, updated_at)
        VALUES (:id, :title, :content, :audience, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// DeleteAnnouncement removes an announcement.
func (r *HolidayRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	const query = `DELETE FROM announcements WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}

// GetSetting returns a setting by key.
func (r *HolidayRepository) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	const query = `SELECT key, value, updated_at FROM settings WHERE key = $1 LIMIT 1`
	var setting models.Setting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &setting, nil
}

// PutSetting upserts a setting value.
func (r *HolidayRepository) PutSetting(ctx context.Context, key, value string) error {
	const query = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("put setting: %w", err)
	}
	return nil
}

// ListSettings returns all settings.
func (r *HolidayRepository) ListSettings(ctx context.Context) ([]models.Setting, error) {
	const query = `SELECT key, value, updated_at FROM settings ORDER BY key ASC`
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}
