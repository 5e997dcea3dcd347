package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type submissionRepoStub struct {
	byWeek []models.Submission

	created       *models.Submission
	statusID      string
	statusApplied models.SubmissionStatus
}

func (s *submissionRepoStub) Create(_ context.Context, submission *models.Submission) error {
	submission.ID = "sub-new"
	s.created = submission
	return nil
}

func (s *submissionRepoStub) ListByUser(_ context.Context, _ string) ([]models.Submission, error) {
	return nil, nil
}

func (s *submissionRepoStub) ListByWeek(_ context.Context, _ string) ([]models.Submission, error) {
	return s.byWeek, nil
}

func (s *submissionRepoStub) UpdateStatus(_ context.Context, id string, status models.SubmissionStatus) error {
	s.statusID = id
	s.statusApplied = status
	return nil
}

func (s *submissionRepoStub) Delete(_ context.Context, _ string) error {
	return nil
}

type submissionUserStub struct {
	users  map[string]*models.User
	active []models.User
}

func (s *submissionUserStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *submissionUserStub) ListActiveByRole(_ context.Context, _ models.UserRole) ([]models.User, error) {
	return s.active, nil
}

type submissionStoreStub struct {
	saved []string
}

func (s *submissionStoreStub) Save(filename string, _ []byte) (string, error) {
	s.saved = append(s.saved, filename)
	return filename, nil
}

func newSubmissionService(repo *submissionRepoStub, users *submissionUserStub, relay *relayStub, notifier *notifierStub) *SubmissionService {
	return NewSubmissionService(repo, users, &submissionStoreStub{}, relay, notifier, nil, SubmissionConfig{})
}

func submissionUser(id string) *submissionUserStub {
	return &submissionUserStub{users: map[string]*models.User{id: {ID: id, Name: "Asha"}}}
}

// Monday 2026-03-09 through Sunday 2026-03-15.
func weekAt(day time.Weekday, hour, minute int) time.Time {
	offset := int(day) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return time.Date(2026, time.March, 9+offset, hour, minute, 0, 0, time.UTC)
}

func TestSubmitRequiresBothFiles(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	_, err := svc.Submit(context.Background(), "user-1", "", []byte("pdf"), nil, weekAt(time.Wednesday, 10, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitDefaultsToCurrentWeek(t *testing.T) {
	repo := &submissionRepoStub{}
	svc := newSubmissionService(repo, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	submission, err := svc.Submit(context.Background(), "user-1", "", []byte("pdf"), []byte("xlsx"), weekAt(time.Wednesday, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", submission.WeekStartDate)
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
}

func TestSubmitBeforeFridayDeadlineOnTime(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	submission, err := svc.Submit(context.Background(), "user-1", "2026-03-09", []byte("pdf"), []byte("xlsx"), weekAt(time.Friday, 15, 29))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
}

func TestSubmitAtFridayDeadlineIsLate(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	submission, err := svc.Submit(context.Background(), "user-1", "2026-03-09", []byte("pdf"), []byte("xlsx"), weekAt(time.Friday, 15, 30))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionLate, submission.Status)
}

func TestSubmitOnWeekendIsLate(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	submission, err := svc.Submit(context.Background(), "user-1", "2026-03-09", []byte("pdf"), []byte("xlsx"), weekAt(time.Sunday, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionLate, submission.Status)
}

func TestSubmitForPastWeekIsLate(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, submissionUser("user-1"), &relayStub{}, &notifierStub{})

	submission, err := svc.Submit(context.Background(), "user-1", "2026-03-02", []byte("pdf"), []byte("xlsx"), weekAt(time.Tuesday, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionLate, submission.Status)
}

func TestSubmitUnknownUser(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, &submissionUserStub{}, &relayStub{}, &notifierStub{})

	_, err := svc.Submit(context.Background(), "ghost", "", []byte("pdf"), []byte("xlsx"), weekAt(time.Tuesday, 9, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWeeklyReportMergesRoster(t *testing.T) {
	submitted := weekAt(time.Thursday, 12, 0)
	repo := &submissionRepoStub{byWeek: []models.Submission{
		{ID: "sub-2", UserID: "user-1", WeekStartDate: "2026-03-09", PDFPath: "p2", ExcelPath: "e2", Status: models.SubmissionSubmitted, SubmittedAt: submitted},
		{ID: "sub-1", UserID: "user-1", WeekStartDate: "2026-03-09", PDFPath: "p1", ExcelPath: "e1", Status: models.SubmissionLate, SubmittedAt: submitted.Add(-time.Hour)},
	}}
	users := &submissionUserStub{active: []models.User{
		{ID: "user-1", Name: "Asha"},
		{ID: "user-2", Name: "Ravi"},
	}}
	svc := newSubmissionService(repo, users, &relayStub{}, &notifierStub{})

	report, err := svc.WeeklyReport(context.Background(), "2026-03-09")
	require.NoError(t, err)
	require.Len(t, report, 2)

	require.NotNil(t, report[0].SubmissionID)
	assert.Equal(t, "sub-2", *report[0].SubmissionID)
	assert.Equal(t, models.SubmissionSubmitted, report[0].Status)
	assert.Equal(t, 2, report[0].HistoryCount)

	assert.Nil(t, report[1].SubmissionID)
	assert.Equal(t, models.SubmissionNotSubmitted, report[1].Status)
	assert.Zero(t, report[1].HistoryCount)
}

func TestUpdateSubmissionStatusRejectsPlaceholder(t *testing.T) {
	svc := newSubmissionService(&submissionRepoStub{}, &submissionUserStub{}, &relayStub{}, &notifierStub{})

	err := svc.UpdateStatus(context.Background(), "sub-1", models.UpdateSubmissionStatusRequest{Status: models.SubmissionNotSubmitted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRemindMailsAndNotifies(t *testing.T) {
	email := "asha@example.com"
	users := &submissionUserStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Name: "Asha", Email: &email},
	}}
	relay := &relayStub{}
	notifier := &notifierStub{}
	svc := newSubmissionService(&submissionRepoStub{}, users, relay, notifier)

	err := svc.Remind(context.Background(), models.SubmissionReminderRequest{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, relay.sent, 1)
	assert.Equal(t, []string{email}, relay.sent[0].To)
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, models.NotificationWarning, notifier.notifications[0].Type)
}

func TestRemindSurvivesRelayFailure(t *testing.T) {
	email := "asha@example.com"
	users := &submissionUserStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Name: "Asha", Email: &email},
	}}
	notifier := &notifierStub{}
	svc := newSubmissionService(&submissionRepoStub{}, users, &relayStub{err: errors.New("smtp down")}, notifier)

	err := svc.Remind(context.Background(), models.SubmissionReminderRequest{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, notifier.notifications, 1)
}
