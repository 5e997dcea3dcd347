package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByMobile(ctx context.Context, mobile string, excludeID string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdateFaceDescriptor(ctx context.Context, id string, descriptor *string) error
	Delete(ctx context.Context, id string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService provides user management use cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns users matching the filter along with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions a user directly in ACTIVE status. The role is
// normalised to upper case.
func (s *UserService) Create(ctx context.Context, actorID string, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	role := models.UserRole(strings.ToUpper(string(req.Role)))
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	exists, err := s.repo.ExistsByMobile(ctx, req.Mobile, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "mobile number already registered")
	}

	user := &models.User{
		Name:       req.Name,
		Mobile:     req.Mobile,
		Role:       role,
		Status:     models.StatusActive,
		TotalFees:  req.TotalFees,
		PaidAmount: req.PaidAmount,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.Course != "" {
		user.Course = &req.Course
	}
	if req.Designation != "" {
		user.Designation = &req.Designation
	}
	if req.JoiningDate != "" {
		joined, err := time.Parse("2006-01-02", req.JoiningDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid joining date")
		}
		user.JoiningDate = &joined
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, user.ID, []byte(`{"created":true}`))
	return user, nil
}

// Update edits profile and fee fields. Changing fee figures recomputes the
// pending amount.
func (s *UserService) Update(ctx context.Context, actorID, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Mobile != nil && *req.Mobile != user.Mobile {
		exists, err := s.repo.ExistsByMobile(ctx, *req.Mobile, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "mobile number already registered")
		}
		user.Mobile = *req.Mobile
	}
	if req.Name != nil {
		user.Name = strings.ToUpper(strings.TrimSpace(*req.Name))
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Role != nil {
		role := models.UserRole(strings.ToUpper(string(*req.Role)))
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		user.Role = role
	}
	if req.Course != nil {
		user.Course = req.Course
	}
	if req.Designation != nil {
		user.Designation = req.Designation
	}
	if req.JoiningDate != nil {
		joined, err := time.Parse("2006-01-02", *req.JoiningDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid joining date")
		}
		user.JoiningDate = &joined
	}
	if req.TotalFees != nil {
		user.TotalFees = *req.TotalFees
	}
	if req.PaidAmount != nil {
		user.PaidAmount = *req.PaidAmount
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, user.ID, nil)
	return user, nil
}

// UpdateStatus approves or blocks an account. Blocking also revokes the
// user's sessions.
func (s *UserService) UpdateStatus(ctx context.Context, actorID, id string, status models.UserStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	user.Status = status

	if status == models.StatusBlocked {
		if err := s.repo.RevokeUserSessions(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of blocked user", zap.Error(err))
		}
	}

	s.audit(ctx, actorID, models.AuditActionStatusChange, id, []byte(`{"status":"`+string(status)+`"}`))
	return user, nil
}

// ResetFace clears the enrolled biometric descriptor and any lockout so the
// user can enrol again.
func (s *UserService) ResetFace(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateFaceDescriptor(ctx, id, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset face")
	}
	s.audit(ctx, actorID, models.AuditActionFaceReset, id, nil)
	return nil
}

// Delete removes a user permanently.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.audit(ctx, actorID, models.AuditActionUserDelete, id, nil)
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, newValues []byte) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  newValues,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
