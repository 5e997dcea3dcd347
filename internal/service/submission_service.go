package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/mail"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	ListByUser(ctx context.Context, userID string) ([]models.Submission, error)
	ListByWeek(ctx context.Context, weekStartDate string) ([]models.Submission, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error
	Delete(ctx context.Context, id string) error
}

type submissionUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type submissionStore interface {
	Save(filename string, data []byte) (string, error)
}

type submissionNotifier interface {
	Notify(ctx context.Context, userID, title, message string, kind models.NotificationType) error
}

var _ submissionNotifier = (*NotificationService)(nil)

// SubmissionConfig tunes the weekly deadline. A submission after the
// deadline clock on the deadline day, or later in the week, is LATE.
type SubmissionConfig struct {
	DeadlineDay   time.Weekday
	DeadlineClock string
}

// SubmissionService implements the weekly document submission cycle:
// students upload a PDF report and an Excel sheet each week, admins review
// the merged report and chase stragglers.
type SubmissionService struct {
	repo          submissionRepository
	users         submissionUserRepository
	store         submissionStore
	relay         mail.Relay
	notifications submissionNotifier
	logger        *zap.Logger
	config        SubmissionConfig

	deadlineHour   int
	deadlineMinute int
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionRepository, users submissionUserRepository, store submissionStore, relay mail.Relay, notifications submissionNotifier, logger *zap.Logger, config SubmissionConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DeadlineDay == 0 {
		config.DeadlineDay = time.Friday
	}
	if config.DeadlineClock == "" {
		config.DeadlineClock = "15:30"
	}
	hour, minute, err := parseClock(config.DeadlineClock)
	if err != nil {
		hour, minute = 15, 30
	}
	return &SubmissionService{
		repo:           repo,
		users:          users,
		store:          store,
		relay:          relay,
		notifications:  notifications,
		logger:         logger,
		config:         config,
		deadlineHour:   hour,
		deadlineMinute: minute,
	}
}

// Submit stores the week's documents and classifies the upload against the
// deadline. An empty weekDate targets the current week.
func (s *SubmissionService) Submit(ctx context.Context, userID, weekDate string, pdf, excel []byte, now time.Time) (*models.Submission, error) {
	if len(pdf) == 0 || len(excel) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "both PDF and Excel files are required")
	}
	if weekDate == "" {
		weekDate = mondayOf(now)
	} else if _, err := time.Parse("2006-01-02", weekDate); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid week date, expected YYYY-MM-DD")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	pdfName := fmt.Sprintf("submissions/%s/%s/report_%d.pdf", weekDate, userID, now.UnixMilli())
	excelName := fmt.Sprintf("submissions/%s/%s/sheet_%d.xlsx", weekDate, userID, now.UnixMilli())
	pdfPath, err := s.store.Save(pdfName, pdf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store PDF")
	}
	excelPath, err := s.store.Save(excelName, excel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store Excel sheet")
	}

	submission := &models.Submission{
		UserID:        userID,
		WeekStartDate: weekDate,
		PDFPath:       pdfPath,
		ExcelPath:     excelPath,
		Status:        s.classify(weekDate, now),
		SubmittedAt:   now,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	s.logger.Info("submission recorded",
		zap.String("user_id", userID),
		zap.String("week", weekDate),
		zap.String("status", string(submission.Status)))
	return submission, nil
}

// Mine returns a user's submissions, most recent week first.
func (s *SubmissionService) Mine(ctx context.Context, userID string) ([]models.Submission, error) {
	submissions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// WeeklyReport merges the active student roster with one week's uploads.
// Students without an upload show NOT_SUBMITTED; for students with several
// uploads the latest one wins and the older ones count toward the history.
func (s *SubmissionService) WeeklyReport(ctx context.Context, weekDate string) ([]models.SubmissionReportRow, error) {
	if _, err := time.Parse("2006-01-02", weekDate); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid week date, expected YYYY-MM-DD")
	}

	students, err := s.users.ListActiveByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	submissions, err := s.repo.ListByWeek(ctx, weekDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	latest := make(map[string]*models.Submission, len(submissions))
	counts := make(map[string]int, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		counts[sub.UserID]++
		if latest[sub.UserID] == nil {
			latest[sub.UserID] = sub
		}
	}

	report := make([]models.SubmissionReportRow, 0, len(students))
	for _, student := range students {
		row := models.SubmissionReportRow{
			UserID: student.ID,
			Name:   student.Name,
			Mobile: student.Mobile,
			Course: student.Course,
			Status: models.SubmissionNotSubmitted,
		}
		if sub := latest[student.ID]; sub != nil {
			row.SubmissionID = &sub.ID
			row.Status = sub.Status
			row.PDFPath = &sub.PDFPath
			row.ExcelPath = &sub.ExcelPath
			row.SubmittedAt = &sub.SubmittedAt
			row.HistoryCount = counts[student.ID]
		}
		report = append(report, row)
	}
	return report, nil
}

// UpdateStatus moves a submission through review.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, req models.UpdateSubmissionStatusRequest) error {
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	return nil
}

// Delete removes a submission row.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	return nil
}

// Remind drops a warning notification for a student who has not submitted
// and mails them when an address is on file. Relay failures are logged, the
// notification still lands.
func (s *SubmissionService) Remind(ctx context.Context, req models.SubmissionReminderRequest) error {
	if req.UserID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing user id")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Email != nil && *user.Email != "" {
		message := mail.Message{
			To:      []string{*user.Email},
			Subject: "Reminder: Weekly Document Submission Pending",
			TextBody: fmt.Sprintf("Dear %s,\n\nYou have not yet submitted your weekly documents (PDF report and Excel sheet) for the current week. "+
				"Please log in to the portal and submit them as soon as possible.", user.Name),
		}
		if err := s.relay.Send(ctx, message); err != nil {
			s.logger.Warn("failed to mail submission reminder", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	if err := s.notifications.Notify(ctx, user.ID, "Submission Reminder",
		"You have not yet submitted your weekly documents. Please submit them ASAP.", models.NotificationWarning); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record reminder")
	}
	return nil
}

func (s *SubmissionService) classify(weekDate string, now time.Time) models.SubmissionStatus {
	currentMonday := mondayOf(now)
	switch {
	case weekDate < currentMonday:
		return models.SubmissionLate
	case weekDate > currentMonday:
		return models.SubmissionSubmitted
	}

	weekday := now.Weekday()
	if weekday == time.Sunday || weekday > s.config.DeadlineDay {
		return models.SubmissionLate
	}
	if weekday == s.config.DeadlineDay {
		deadline := time.Date(now.Year(), now.Month(), now.Day(), s.deadlineHour, s.deadlineMinute, 0, 0, now.Location())
		if !now.Before(deadline) {
			return models.SubmissionLate
		}
	}
	return models.SubmissionSubmitted
}

// mondayOf returns the Monday of the week containing t, as YYYY-MM-DD.
func mondayOf(t time.Time) string {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}
