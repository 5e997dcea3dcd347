package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type authUserRepository interface {
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByMobile(ctx context.Context, mobile string, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdateFaceDescriptor(ctx context.Context, id string, descriptor *string) error
	RecordFaceFailure(ctx context.Context, id string) (int, error)
	SetLockout(ctx context.Context, id string, until time.Time) error
	ClearFaceFailures(ctx context.Context, id string) error
	ListWithFace(ctx context.Context, role models.UserRole) ([]models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, token string) (*models.Session, error)
	RevokeSession(ctx context.Context, token string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret     string
	TokenExpiry     time.Duration
	Issuer          string
	FaceThreshold   float64
	FaceMaxFailures int
	LockoutDuration time.Duration
}

// AuthService provides password and biometric authentication use cases.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.FaceThreshold <= 0 {
		config.FaceThreshold = 0.6
	}
	if config.FaceMaxFailures <= 0 {
		config.FaceMaxFailures = 3
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = 24 * time.Hour
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Login authenticates with mobile and password. Accounts that have not yet
// set a password get a PENDING_SETUP response instead of a token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByMobile(ctx, req.Mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid mobile or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	// Admins may sign in through any role portal.
	if user.Role != req.Role && user.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid mobile or password")
	}
	if err := s.checkAccountUsable(user); err != nil {
		return nil, err
	}

	if user.PasswordHash == "" {
		return &models.LoginResponse{Status: "PENDING_SETUP", IssuedAt: time.Now().UTC()}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid mobile or password")
	}

	return s.issueSession(ctx, user, models.AuditActionLogin, req.IP, req.UserAgent)
}

// FaceLogin identifies a user by their face descriptor. Candidates are the
// active users with an enrolled descriptor; locked-out accounts are skipped
// so a stranger's probe cannot burn their attempts.
func (s *AuthService) FaceLogin(ctx context.Context, req models.FaceLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid face login payload")
	}

	var candidates []models.User
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleStudent, models.RoleEmployee, models.RoleClient} {
		users, err := s.repo.ListWithFace(ctx, role)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
		}
		candidates = append(candidates, users...)
	}

	now := time.Now().UTC()
	var best *models.User
	minDistance := math.Inf(1)
	for i := range candidates {
		user := &candidates[i]
		if user.Status != models.StatusActive || user.LockedOut(now) {
			continue
		}
		stored, err := decodeDescriptor(user.FaceDescriptor)
		if err != nil {
			s.logger.Warn("skipping malformed face descriptor", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		distance := euclideanDistance(req.FaceDescriptor, stored)
		if distance < minDistance && distance < s.config.FaceThreshold {
			minDistance = distance
			best = user
		}
	}

	if best == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "face not recognized, sign in with mobile and password first")
	}

	return s.issueSession(ctx, best, models.AuditActionFaceLogin, req.IP, req.UserAgent)
}

// EnrollOrVerifyFace registers the first descriptor for a user, or verifies
// a probe against the stored one. Repeated failures lock the account.
func (s *AuthService) EnrollOrVerifyFace(ctx context.Context, userID string, descriptor []float64) error {
	if len(descriptor) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "missing face descriptor")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	now := time.Now().UTC()
	if user.LockedOut(now) {
		hoursLeft := int(math.Ceil(user.LockoutUntil.Sub(now).Hours()))
		return appErrors.Clone(appErrors.ErrAccountLocked, fmt.Sprintf("account locked, try again in %d hours or contact admin", hoursLeft))
	}

	if !user.HasFace() {
		encoded, err := encodeDescriptor(descriptor)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode descriptor")
		}
		if err := s.repo.UpdateFaceDescriptor(ctx, userID, &encoded); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store descriptor")
		}
		return nil
	}

	stored, err := decodeDescriptor(user.FaceDescriptor)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored descriptor is malformed")
	}

	if euclideanDistance(descriptor, stored) < s.config.FaceThreshold {
		if err := s.repo.ClearFaceFailures(ctx, userID); err != nil {
			s.logger.Warn("failed to clear face failures", zap.Error(err))
		}
		return nil
	}

	failures, err := s.repo.RecordFaceFailure(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attempt")
	}
	if failures >= s.config.FaceMaxFailures {
		until := now.Add(s.config.LockoutDuration)
		if err := s.repo.SetLockout(ctx, userID, until); err != nil {
			s.logger.Warn("failed to set lockout", zap.Error(err))
		}
		return appErrors.Clone(appErrors.ErrAccountLocked, "face not recognized, account locked after repeated failures")
	}
	remaining := s.config.FaceMaxFailures - failures
	return appErrors.Clone(appErrors.ErrInvalidCredentials, fmt.Sprintf("face not recognized, %d attempts remaining before lockout", remaining))
}

// Register creates a self-service account in PENDING status.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}
	if req.Role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot self-register as admin")
	}

	exists, err := s.repo.ExistsByMobile(ctx, req.Mobile, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "mobile number already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:         req.Name,
		Mobile:       req.Mobile,
		PasswordHash: string(hash),
		Role:         req.Role,
		Status:       models.StatusPending,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"pending"}`),
	}); err != nil {
		s.logger.Warn("failed to record register audit log", zap.Error(err))
	}

	info := userInfo(user)
	return &info, nil
}

// SetPassword completes first-time setup for imported accounts that have no
// password yet.
func (s *AuthService) SetPassword(ctx context.Context, req models.SetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid set password payload")
	}

	user, err := s.repo.FindByMobile(ctx, req.Mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.PasswordHash != "" {
		return appErrors.Clone(appErrors.ErrConflict, "password already set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store password")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record password audit log", zap.Error(err))
	}
	return nil
}

// Logout revokes the presented session token.
func (s *AuthService) Logout(ctx context.Context, token string, userID string) error {
	session, err := s.repo.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "session does not belong to user")
	}
	if err := s.repo.RevokeSession(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &userID,
	}); err != nil {
		s.logger.Warn("failed to record logout audit log", zap.Error(err))
	}
	return nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) checkAccountUsable(user *models.User) error {
	switch user.Status {
	case models.StatusPending:
		return appErrors.Clone(appErrors.ErrAccountPending, "account is pending approval")
	case models.StatusBlocked:
		return appErrors.Clone(appErrors.ErrAccountBlocked, "account is blocked, contact admin")
	}
	now := time.Now().UTC()
	if user.LockedOut(now) {
		hoursLeft := int(math.Ceil(user.LockoutUntil.Sub(now).Hours()))
		return appErrors.Clone(appErrors.ErrAccountLocked, fmt.Sprintf("account locked, try again in %d hours or contact admin", hoursLeft))
	}
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, action, ip, userAgent string) (*models.LoginResponse, error) {
	accessToken, expiresAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     accessToken,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	info := userInfo(user)
	return &models.LoginResponse{
		Status:      "SUCCESS",
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		User:        &info,
		IssuedAt:    time.Now().UTC(),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:     user.ID,
		Name:   user.Name,
		Mobile: user.Mobile,
		Role:   user.Role,
		Status: user.Status,
	}
}

// euclideanDistance compares two descriptors. Mismatched lengths count as a
// maximal miss.
func euclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1.0
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func encodeDescriptor(descriptor []float64) (string, error) {
	raw, err := json.Marshal(descriptor)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeDescriptor(stored *string) ([]float64, error) {
	if stored == nil || *stored == "" {
		return nil, fmt.Errorf("no descriptor stored")
	}
	var descriptor []float64
	if err := json.Unmarshal([]byte(*stored), &descriptor); err != nil {
		return nil, err
	}
	return descriptor, nil
}
