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

type leaveRepoStub struct {
	leave    *models.Leave
	approved []models.Leave
	balance  *models.LeaveBalanceRow

	created       *models.Leave
	updatedStatus models.LeaveStatus
}

func (s *leaveRepoStub) Create(ctx context.Context, leave *models.Leave) error {
	s.created = leave
	return nil
}

func (s *leaveRepoStub) FindByID(ctx context.Context, id string) (*models.Leave, error) {
	if s.leave == nil {
		return nil, sql.ErrNoRows
	}
	return s.leave, nil
}

func (s *leaveRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Leave, error) {
	return nil, nil
}

func (s *leaveRepoStub) ListAll(ctx context.Context, status *models.LeaveStatus) ([]models.LeaveRecord, error) {
	return nil, nil
}

func (s *leaveRepoStub) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus) error {
	s.updatedStatus = status
	return nil
}

func (s *leaveRepoStub) ListApprovedByYear(ctx context.Context, userID string, year int) ([]models.Leave, error) {
	return s.approved, nil
}

func (s *leaveRepoStub) GetBalanceRow(ctx context.Context, userID string, year int) (*models.LeaveBalanceRow, error) {
	if s.balance == nil {
		return nil, sql.ErrNoRows
	}
	return s.balance, nil
}

type leaveUserStub struct {
	user *models.User
}

func (s leaveUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func TestLeaveApplyDefaultsToCasual(t *testing.T) {
	repo := &leaveRepoStub{}
	svc := NewLeaveService(repo, leaveUserStub{}, nil, nil, LeaveConfig{})

	leave, err := svc.Apply(context.Background(), models.ApplyLeaveRequest{
		UserID:    "user-1",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-04",
		Reason:    "family function",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveCasual, leave.Type)
	assert.Equal(t, models.LeavePending, leave.Status)
}

func TestLeaveApplyRejectsHalfDayRange(t *testing.T) {
	svc := NewLeaveService(&leaveRepoStub{}, leaveUserStub{}, nil, nil, LeaveConfig{})

	_, err := svc.Apply(context.Background(), models.ApplyLeaveRequest{
		UserID:    "user-1",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
		Reason:    "appointment",
		IsHalfDay: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaveApplyRejectsReversedRange(t *testing.T) {
	svc := NewLeaveService(&leaveRepoStub{}, leaveUserStub{}, nil, nil, LeaveConfig{})

	_, err := svc.Apply(context.Background(), models.ApplyLeaveRequest{
		UserID:    "user-1",
		StartDate: "2026-03-04",
		EndDate:   "2026-03-02",
		Reason:    "trip",
	})
	require.Error(t, err)
}

func TestLeaveBalanceAccrual(t *testing.T) {
	joined := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	repo := &leaveRepoStub{
		balance: &models.LeaveBalanceRow{PL: 5},
		approved: []models.Leave{
			{Type: models.LeaveCasual, StartDate: "2026-04-01", EndDate: "2026-04-02"},
			{Type: models.LeaveSick, StartDate: "2026-05-11", EndDate: "2026-05-11", IsHalfDay: true},
			{Type: models.LeavePaid, StartDate: "2026-06-01", EndDate: "2026-06-01"},
		},
	}
	svc := NewLeaveService(repo, leaveUserStub{user: &models.User{ID: "user-1", JoiningDate: &joined}}, nil, nil, LeaveConfig{})

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	balance, err := svc.Balance(context.Background(), "user-1", 0, now)
	require.NoError(t, err)

	// March through August is six accrual months.
	assert.Equal(t, 6, balance.AccruedInfo.Months)
	assert.InDelta(t, 4.0, balance.CL, 0.001) // 6*1.0 accrued, 2 used
	assert.InDelta(t, 2.5, balance.SL, 0.001) // 6*0.5 accrued, 0.5 used
	assert.InDelta(t, 4.0, balance.PL, 0.001) // stored 5, 1 used
}

func TestLeaveBalanceClampsAtZero(t *testing.T) {
	repo := &leaveRepoStub{
		approved: []models.Leave{
			{Type: models.LeaveCasual, StartDate: "2026-01-05", EndDate: "2026-01-30"},
		},
	}
	svc := NewLeaveService(repo, leaveUserStub{user: &models.User{ID: "user-1"}}, nil, nil, LeaveConfig{})

	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	balance, err := svc.Balance(context.Background(), "user-1", 0, now)
	require.NoError(t, err)
	assert.Zero(t, balance.CL)
	assert.Zero(t, balance.PL)
}

func TestLeaveBalanceFutureYearAccruesNothing(t *testing.T) {
	svc := NewLeaveService(&leaveRepoStub{}, leaveUserStub{user: &models.User{ID: "user-1"}}, nil, nil, LeaveConfig{})

	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	balance, err := svc.Balance(context.Background(), "user-1", 2027, now)
	require.NoError(t, err)
	assert.Zero(t, balance.AccruedInfo.Months)
	assert.Zero(t, balance.CL)
}

func TestLeaveRejectionRestoresBalance(t *testing.T) {
	// The balance is derived from approved leaves, so flipping an approved
	// leave to REJECTED removes its consumption on the next read.
	repo := &leaveRepoStub{
		leave: &models.Leave{ID: "leave-1", UserID: "user-1", Type: models.LeaveCasual,
			StartDate: "2026-02-02", EndDate: "2026-02-03", Status: models.LeaveApproved},
	}
	svc := NewLeaveService(repo, leaveUserStub{user: &models.User{ID: "user-1"}}, nil, nil, LeaveConfig{})

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	repo.approved = []models.Leave{*repo.leave}
	before, err := svc.Balance(context.Background(), "user-1", 0, now)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, before.CL, 0.001)

	_, err = svc.UpdateStatus(context.Background(), models.UpdateLeaveStatusRequest{ID: "leave-1", Status: models.LeaveRejected})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, repo.updatedStatus)

	repo.approved = nil
	after, err := svc.Balance(context.Background(), "user-1", 0, now)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, after.CL, 0.001)
}

func TestLeaveDuration(t *testing.T) {
	assert.InDelta(t, 0.5, leaveDuration(models.Leave{IsHalfDay: true, StartDate: "2026-01-05", EndDate: "2026-01-05"}), 0.001)
	assert.InDelta(t, 1.0, leaveDuration(models.Leave{StartDate: "2026-01-05", EndDate: "2026-01-05"}), 0.001)
	assert.InDelta(t, 3.0, leaveDuration(models.Leave{StartDate: "2026-01-05", EndDate: "2026-01-07"}), 0.001)
}
