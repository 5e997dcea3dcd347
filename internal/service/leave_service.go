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

type leaveRepository interface {
	Create(ctx context.Context, leave *models.Leave) error
	FindByID(ctx context.Context, id string) (*models.Leave, error)
	ListByUser(ctx context.Context, userID string) ([]models.Leave, error)
	ListAll(ctx context.Context, status *models.LeaveStatus) ([]models.LeaveRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.LeaveStatus) error
	ListApprovedByYear(ctx context.Context, userID string, year int) ([]models.Leave, error)
	GetBalanceRow(ctx context.Context, userID string, year int) (*models.LeaveBalanceRow, error)
}

type leaveUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LeaveConfig holds the monthly accrual rates.
type LeaveConfig struct {
	CasualRate float64
	SickRate   float64
}

// LeaveService implements the leave workflow and the derived balance.
//
// Balances are recomputed from approved leaves on every read rather than
// stored, so approving and later rejecting a leave restores the bucket
// without compensation logic.
type LeaveService struct {
	repo      leaveRepository
	users     leaveUserReader
	validator *validator.Validate
	logger    *zap.Logger
	config    LeaveConfig
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(repo leaveRepository, users leaveUserReader, validate *validator.Validate, logger *zap.Logger, config LeaveConfig) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CasualRate <= 0 {
		config.CasualRate = 1.0
	}
	if config.SickRate <= 0 {
		config.SickRate = 0.5
	}
	return &LeaveService{repo: repo, users: users, validator: validate, logger: logger, config: config}
}

// Apply files a new leave request in PENDING status.
func (s *LeaveService) Apply(ctx context.Context, req models.ApplyLeaveRequest) (*models.Leave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date before start date")
	}
	if req.IsHalfDay && !start.Equal(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "half-day leave must be a single day")
	}

	leaveType := req.Type
	if leaveType == "" {
		leaveType = models.LeaveCasual
	}
	switch leaveType {
	case models.LeaveCasual, models.LeaveSick, models.LeavePaid, models.LeaveWithoutPay:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave type")
	}

	leave := &models.Leave{
		UserID:    req.UserID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Type:      leaveType,
		Reason:    req.Reason,
		IsHalfDay: req.IsHalfDay,
		Status:    models.LeavePending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave")
	}
	return leave, nil
}

// ListByUser returns a user's leave requests.
func (s *LeaveService) ListByUser(ctx context.Context, userID string) ([]models.Leave, error) {
	leaves, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaves")
	}
	return leaves, nil
}

// ListAll returns every leave request with requester info, for admin review.
func (s *LeaveService) ListAll(ctx context.Context, status *models.LeaveStatus) ([]models.LeaveRecord, error) {
	records, err := s.repo.ListAll(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaves")
	}
	return records, nil
}

// UpdateStatus transitions a leave request through the approval workflow.
func (s *LeaveService) UpdateStatus(ctx context.Context, req models.UpdateLeaveStatusRequest) (*models.Leave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	switch req.Status {
	case models.LeaveApproved, models.LeaveRejected, models.LeavePending:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave status")
	}

	leave, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave")
	}

	if err := s.repo.UpdateStatus(ctx, leave.ID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave")
	}
	leave.Status = req.Status
	return leave, nil
}

// Balance derives the CL/SL/PL balance for a user and year.
func (s *LeaveService) Balance(ctx context.Context, userID string, year int, now time.Time) (*models.LeaveBalance, error) {
	if year <= 0 {
		year = now.Year()
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	months := s.accruedMonths(user, year, now)
	accruedCL := float64(months) * s.config.CasualRate
	accruedSL := float64(months) * s.config.SickRate

	var storedPL float64
	if row, err := s.repo.GetBalanceRow(ctx, userID, year); err == nil {
		storedPL = row.PL
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load balance ledger")
	}

	approved, err := s.repo.ListApprovedByYear(ctx, userID, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved leaves")
	}

	var usedCL, usedSL, usedPL float64
	for _, leave := range approved {
		days := leaveDuration(leave)
		switch leave.Type {
		case models.LeaveCasual:
			usedCL += days
		case models.LeaveSick:
			usedSL += days
		case models.LeavePaid:
			usedPL += days
		}
	}

	return &models.LeaveBalance{
		UserID: userID,
		Year:   year,
		CL:     clampZero(accruedCL - usedCL),
		SL:     clampZero(accruedSL - usedSL),
		PL:     clampZero(storedPL - usedPL),
		AccruedInfo: models.AccruedInfo{
			Months:         months,
			TotalAccruedCL: accruedCL,
			TotalAccruedSL: accruedSL,
		},
	}, nil
}

// accruedMonths counts accrual months in a year: from the later of January
// and the joining month, through the current month for the current year or
// December for past years. Future years accrue nothing.
func (s *LeaveService) accruedMonths(user *models.User, year int, now time.Time) int {
	if year > now.Year() {
		return 0
	}
	startMonth := 1
	if user.JoiningDate != nil && user.JoiningDate.Year() == year {
		startMonth = int(user.JoiningDate.Month())
	}
	if user.JoiningDate != nil && user.JoiningDate.Year() > year {
		return 0
	}
	endMonth := 12
	if year == now.Year() {
		endMonth = int(now.Month())
	}
	if endMonth < startMonth {
		return 0
	}
	return endMonth - startMonth + 1
}

func leaveDuration(leave models.Leave) float64 {
	if leave.IsHalfDay {
		return 0.5
	}
	start, err := time.Parse("2006-01-02", leave.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse("2006-01-02", leave.EndDate)
	if err != nil {
		return 0
	}
	days := end.Sub(start).Hours()/24 + 1
	if days < 1 {
		return 1
	}
	return days
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
