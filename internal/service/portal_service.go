package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type portalRepository interface {
	ListHolidays(ctx context.Context, year int) ([]models.Holiday, error)
	CreateHoliday(ctx context.Context, holiday *models.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListAnnouncements(ctx context.Context, role *models.UserRole) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, announcement *models.Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	PutSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]models.Setting, error)
}

// PortalService covers the small administrative surfaces: the holiday
// calendar, role-scoped announcements and key/value settings.
type PortalService struct {
	repo      portalRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPortalService constructs a PortalService.
func NewPortalService(repo portalRepository, validate *validator.Validate, logger *zap.Logger) *PortalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PortalService{repo: repo, validator: validate, logger: logger}
}

// Holidays lists the calendar for a year. A zero year means the current year.
func (s *PortalService) Holidays(ctx context.Context, year int) ([]models.Holiday, error) {
	if year <= 0 {
		year = time.Now().Year()
	}
	holidays, err := s.repo.ListHolidays(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// AddHoliday records a calendar holiday.
func (s *PortalService) AddHoliday(ctx context.Context, req models.CreateHolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	holiday := &models.Holiday{Name: req.Name, Date: req.Date}
	if err := s.repo.CreateHoliday(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	return holiday, nil
}

// RemoveHoliday deletes a holiday.
func (s *PortalService) RemoveHoliday(ctx context.Context, id string) error {
	if err := s.repo.DeleteHoliday(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}

// Announcements returns broadcasts visible to the given role. Admin callers
// pass nil and see everything.
func (s *PortalService) Announcements(ctx context.Context, role *models.UserRole) ([]models.Announcement, error) {
	announcements, err := s.repo.ListAnnouncements(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return announcements, nil
}

// Announce publishes a broadcast, optionally scoped to one role.
func (s *PortalService) Announce(ctx context.Context, req models.CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	announcement := &models.Announcement{Title: req.Title, Content: req.Content}
	if req.Audience != "" {
		role := models.UserRole(req.Audience)
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown audience role")
		}
		announcement.Audience = &role
	}
	if err := s.repo.CreateAnnouncement(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// RemoveAnnouncement deletes a broadcast.
func (s *PortalService) RemoveAnnouncement(ctx context.Context, id string) error {
	if err := s.repo.DeleteAnnouncement(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

// Setting returns one configuration value.
func (s *PortalService) Setting(ctx context.Context, key string) (*models.Setting, error) {
	setting, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting")
	}
	return setting, nil
}

// PutSetting upserts one configuration value.
func (s *PortalService) PutSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing setting key")
	}
	if err := s.repo.PutSetting(ctx, key, value); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store setting")
	}
	return nil
}

// Settings lists all configuration values.
func (s *PortalService) Settings(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	return settings, nil
}
