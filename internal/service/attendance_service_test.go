package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type attendanceRepoStub struct {
	existing   *models.Attendance
	priorLates int
	created    *models.Attendance

	checkoutStatus  models.AttendanceStatus
	checkoutRemarks string
}

func (s *attendanceRepoStub) FindByUserAndDate(ctx context.Context, userID, date string) (*models.Attendance, error) {
	if s.existing == nil {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func (s *attendanceRepoStub) Create(ctx context.Context, record *models.Attendance) error {
	s.created = record
	return nil
}

func (s *attendanceRepoStub) UpdateCheckout(ctx context.Context, id string, logoutTime time.Time, status models.AttendanceStatus, remarks string) error {
	s.checkoutStatus = status
	s.checkoutRemarks = remarks
	return nil
}

func (s *attendanceRepoStub) CountLateInMonth(ctx context.Context, userID, monthPrefix, excludeDate string) (int, error) {
	return s.priorLates, nil
}

func (s *attendanceRepoStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.Attendance, error) {
	return nil, nil
}

func (s *attendanceRepoStub) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return nil, nil
}

type holidayCalendarStub struct {
	holiday bool
	err     error
}

func (s *holidayCalendarStub) IsHoliday(ctx context.Context, date string) (bool, error) {
	return s.holiday, s.err
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestAttendanceCheckInOnTime(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckIn(context.Background(), "user-1", at(9, 30))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
	assert.Empty(t, record.Remarks)
}

func TestAttendanceCheckInLate(t *testing.T) {
	repo := &attendanceRepoStub{priorLates: 1}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckIn(context.Background(), "user-1", at(10, 46))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, record.Status)
	assert.Contains(t, record.Remarks, "10:45")
}

func TestAttendanceCheckInThirdStrikeIsAbsent(t *testing.T) {
	repo := &attendanceRepoStub{priorLates: 2}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckIn(context.Background(), "user-1", at(11, 0))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, record.Status)
	assert.Equal(t, "Multiple Late Arrivals (3rd Strike)", record.Remarks)
}

func TestAttendanceCheckInOnHolidayRejected(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, &holidayCalendarStub{holiday: true}, nil, AttendanceConfig{})

	_, err := svc.CheckIn(context.Background(), "user-1", at(9, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestAttendanceCheckInProceedsWhenCalendarFails(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, &holidayCalendarStub{err: sql.ErrConnDone}, nil, AttendanceConfig{})

	record, err := svc.CheckIn(context.Background(), "user-1", at(9, 30))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
}

func TestAttendanceCheckInTwiceConflicts(t *testing.T) {
	repo := &attendanceRepoStub{existing: &models.Attendance{ID: "att-1"}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	_, err := svc.CheckIn(context.Background(), "user-1", at(9, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceCheckOutEarlyLeave(t *testing.T) {
	login := at(9, 0)
	repo := &attendanceRepoStub{existing: &models.Attendance{
		ID:        "att-1",
		UserID:    "user-1",
		LoginTime: login,
		Status:    models.AttendancePending,
	}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckOut(context.Background(), "user-1", login.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, record.Status)
	assert.Equal(t, "Early Leave (<4h)", record.Remarks)
	assert.Equal(t, models.AttendanceAbsent, repo.checkoutStatus)
}

func TestAttendanceCheckOutFullDayBecomesPresent(t *testing.T) {
	login := at(9, 0)
	repo := &attendanceRepoStub{existing: &models.Attendance{
		ID:        "att-1",
		UserID:    "user-1",
		LoginTime: login,
		Status:    models.AttendancePending,
	}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckOut(context.Background(), "user-1", login.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, record.Status)
}

func TestAttendanceCheckOutEarlyLeaveAppendsToLateRemark(t *testing.T) {
	login := at(11, 0)
	repo := &attendanceRepoStub{existing: &models.Attendance{
		ID:        "att-1",
		UserID:    "user-1",
		LoginTime: login,
		Status:    models.AttendanceLate,
		Remarks:   "Late Arrival (after 10:45)",
	}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckOut(context.Background(), "user-1", login.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, record.Status)
	assert.Equal(t, "Late Arrival (after 10:45), Early Leave (<4h)", record.Remarks)
}

func TestAttendanceCheckOutPreservesLate(t *testing.T) {
	login := at(11, 0)
	repo := &attendanceRepoStub{existing: &models.Attendance{
		ID:        "att-1",
		UserID:    "user-1",
		LoginTime: login,
		Status:    models.AttendanceLate,
		Remarks:   "Late Arrival (after 10:45)",
	}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	record, err := svc.CheckOut(context.Background(), "user-1", login.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, record.Status)
	assert.Equal(t, "Late Arrival (after 10:45)", record.Remarks)
}

func TestAttendanceCheckOutTwiceConflicts(t *testing.T) {
	login := at(9, 0)
	logout := login.Add(8 * time.Hour)
	repo := &attendanceRepoStub{existing: &models.Attendance{
		ID:         "att-1",
		LoginTime:  login,
		LogoutTime: &logout,
		Status:     models.AttendancePresent,
	}}
	svc := NewAttendanceService(repo, nil, nil, AttendanceConfig{})

	_, err := svc.CheckOut(context.Background(), "user-1", logout.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceDailyRejectsBadDate(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, nil, nil, AttendanceConfig{})

	_, err := svc.Daily(context.Background(), "10-03-2026")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("10:45")
	require.NoError(t, err)
	assert.Equal(t, 10, hour)
	assert.Equal(t, 45, minute)

	_, _, err = parseClock("25:00")
	assert.Error(t, err)
}
