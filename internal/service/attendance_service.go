package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type holidayCalendar interface {
	IsHoliday(ctx context.Context, date string) (bool, error)
}

type attendanceRepository interface {
	FindByUserAndDate(ctx context.Context, userID, date string) (*models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	UpdateCheckout(ctx context.Context, id string, logoutTime time.Time, status models.AttendanceStatus, remarks string) error
	CountLateInMonth(ctx context.Context, userID, monthPrefix, excludeDate string) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Attendance, error)
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
}

// AttendanceConfig tunes the check-in classifier.
type AttendanceConfig struct {
	LateDeadline   string
	LateStrikes    int
	MinimumHours   float64
	StrikeRemark   string
	EarlyOutRemark string
}

// AttendanceService implements the daily check-in and check-out rules.
//
// Check-in after the deadline is LATE, and the strike that completes the
// configured count within a month is recorded ABSENT instead. Check-out
// before the minimum hours downgrades the day to ABSENT.
type AttendanceService struct {
	repo     attendanceRepository
	holidays holidayCalendar
	logger   *zap.Logger
	config   AttendanceConfig

	deadlineHour   int
	deadlineMinute int
}

// NewAttendanceService constructs an AttendanceService. A nil holiday
// calendar disables the holiday check.
func NewAttendanceService(repo attendanceRepository, holidays holidayCalendar, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LateDeadline == "" {
		config.LateDeadline = "10:45"
	}
	if config.LateStrikes <= 0 {
		config.LateStrikes = 3
	}
	if config.MinimumHours <= 0 {
		config.MinimumHours = 4
	}
	if config.StrikeRemark == "" {
		config.StrikeRemark = "Multiple Late Arrivals (3rd Strike)"
	}
	if config.EarlyOutRemark == "" {
		config.EarlyOutRemark = "Early Leave (<4h)"
	}

	hour, minute, err := parseClock(config.LateDeadline)
	if err != nil {
		hour, minute = 10, 45
	}
	return &AttendanceService{
		repo:           repo,
		holidays:       holidays,
		logger:         logger,
		config:         config,
		deadlineHour:   hour,
		deadlineMinute: minute,
	}
}

// CheckIn records the start of a user's day and classifies it.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, now time.Time) (*models.Attendance, error) {
	date := now.Format("2006-01-02")

	if s.holidays != nil {
		holiday, err := s.holidays.IsHoliday(ctx, date)
		if err != nil {
			s.logger.Warn("failed to check holiday calendar", zap.Error(err))
		} else if holiday {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cannot check in on a holiday")
		}
	}

	if _, err := s.repo.FindByUserAndDate(ctx, userID, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in today")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}

	status := models.AttendancePresent
	remarks := ""

	deadline := time.Date(now.Year(), now.Month(), now.Day(), s.deadlineHour, s.deadlineMinute, 0, 0, now.Location())
	if now.After(deadline) {
		priorLates, err := s.repo.CountLateInMonth(ctx, userID, now.Format("2006-01"), date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count strikes")
		}
		if priorLates >= s.config.LateStrikes-1 {
			status = models.AttendanceAbsent
			remarks = s.config.StrikeRemark
		} else {
			status = models.AttendanceLate
			remarks = fmt.Sprintf("Late Arrival (after %s)", s.config.LateDeadline)
		}
	}

	record := &models.Attendance{
		UserID:    userID,
		Date:      date,
		LoginTime: now,
		Status:    status,
		Remarks:   remarks,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	s.logger.Info("check-in recorded",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.String("status", string(status)))
	return record, nil
}

// CheckOut records the end of the day and finalises the status. Leaving
// before the minimum hours downgrades the day to ABSENT; a legacy PENDING
// day that meets them becomes PRESENT.
func (s *AttendanceService) CheckOut(ctx context.Context, userID string, now time.Time) (*models.Attendance, error) {
	date := now.Format("2006-01-02")

	record, err := s.repo.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no check-in found for today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if record.LogoutTime != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked out today")
	}

	status := record.Status
	remarks := record.Remarks
	worked := now.Sub(record.LoginTime).Hours()
	if worked < s.config.MinimumHours {
		status = models.AttendanceAbsent
		if remarks != "" {
			remarks = remarks + ", " + s.config.EarlyOutRemark
		} else {
			remarks = s.config.EarlyOutRemark
		}
	} else if status == models.AttendancePending {
		status = models.AttendancePresent
	}

	if err := s.repo.UpdateCheckout(ctx, record.ID, now, status, remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-out")
	}

	record.LogoutTime = &now
	record.Status = status
	record.Remarks = remarks
	return record, nil
}

// Today returns the user's attendance row for the current day, if any.
func (s *AttendanceService) Today(ctx context.Context, userID string, now time.Time) (*models.Attendance, error) {
	record, err := s.repo.FindByUserAndDate(ctx, userID, now.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not checked in today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// History returns a user's recent attendance rows.
func (s *AttendanceService) History(ctx context.Context, userID string, limit int) ([]models.Attendance, error) {
	records, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Daily returns all attendance rows for a date, for admin review.
func (s *AttendanceService) Daily(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	records, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

func parseClock(value string) (int, int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
