package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type authRepoStub struct {
	users    map[string]*models.User
	byMobile map[string]*models.User
	sessions map[string]*models.Session

	faceFailures    int
	lockoutUntil    *time.Time
	storedDesc      *string
	failuresCleared bool
	passwordSet     string
	created         *models.User
	revokedToken    string
}

func newAuthRepoStub(users ...*models.User) *authRepoStub {
	stub := &authRepoStub{
		users:    map[string]*models.User{},
		byMobile: map[string]*models.User{},
		sessions: map[string]*models.Session{},
	}
	for _, u := range users {
		stub.users[u.ID] = u
		stub.byMobile[u.Mobile] = u
	}
	return stub
}

func (s *authRepoStub) FindByMobile(_ context.Context, mobile string) (*models.User, error) {
	user, ok := s.byMobile[mobile]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *authRepoStub) ExistsByMobile(_ context.Context, mobile string, _ string) (bool, error) {
	_, ok := s.byMobile[mobile]
	return ok, nil
}

func (s *authRepoStub) Create(_ context.Context, user *models.User) error {
	user.ID = "new-user"
	s.created = user
	return nil
}

func (s *authRepoStub) UpdatePassword(_ context.Context, _ string, passwordHash string, _ time.Time) error {
	s.passwordSet = passwordHash
	return nil
}

func (s *authRepoStub) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (s *authRepoStub) UpdateFaceDescriptor(_ context.Context, _ string, descriptor *string) error {
	s.storedDesc = descriptor
	return nil
}

func (s *authRepoStub) RecordFaceFailure(_ context.Context, _ string) (int, error) {
	s.faceFailures++
	return s.faceFailures, nil
}

func (s *authRepoStub) SetLockout(_ context.Context, _ string, until time.Time) error {
	s.lockoutUntil = &until
	return nil
}

func (s *authRepoStub) ClearFaceFailures(_ context.Context, _ string) error {
	s.failuresCleared = true
	return nil
}

func (s *authRepoStub) ListWithFace(_ context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role == role && u.HasFace() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *authRepoStub) CreateSession(_ context.Context, session *models.Session) error {
	s.sessions[session.Token] = session
	return nil
}

func (s *authRepoStub) FindSession(_ context.Context, token string) (*models.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return session, nil
}

func (s *authRepoStub) RevokeSession(_ context.Context, token string) error {
	s.revokedToken = token
	return nil
}

func (s *authRepoStub) CreateAuditLog(_ context.Context, _ *models.AuditLog) error {
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func encodeDesc(t *testing.T, descriptor []float64) *string {
	t.Helper()
	raw, err := json.Marshal(descriptor)
	require.NoError(t, err)
	encoded := string(raw)
	return &encoded
}

func activeUser(t *testing.T, id, mobile, password string, role models.UserRole) *models.User {
	t.Helper()
	return &models.User{
		ID:           id,
		Name:         "Test User",
		Mobile:       mobile,
		PasswordHash: hashPassword(t, password),
		Role:         role,
		Status:       models.StatusActive,
	}
}

func newAuthServiceForTest(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "portal-test",
	})
}

func TestLoginSuccess(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Status)
	require.NotEmpty(t, resp.AccessToken)
	assert.Len(t, repo.sessions, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "wrong-pass",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRoleMismatchLooksLikeBadCredentials(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginAdminAllowedThroughAnyPortal(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "a1", "9876543210", "secret123", models.RoleAdmin))
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", resp.Status)
}

func TestLoginPendingAccountForbidden(t *testing.T) {
	user := activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent)
	user.Status = models.StatusPending
	svc := newAuthServiceForTest(newAuthRepoStub(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountPending.Code, appErrors.FromError(err).Code)
}

func TestLoginBlockedAccountForbidden(t *testing.T) {
	user := activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent)
	user.Status = models.StatusBlocked
	svc := newAuthServiceForTest(newAuthRepoStub(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountBlocked.Code, appErrors.FromError(err).Code)
}

func TestLoginWithoutPasswordReturnsPendingSetup(t *testing.T) {
	user := activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent)
	user.PasswordHash = ""
	svc := newAuthServiceForTest(newAuthRepoStub(user))

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "anything",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING_SETUP", resp.Status)
	assert.Empty(t, resp.AccessToken)
}

func TestFaceLoginPicksClosestMatch(t *testing.T) {
	near := activeUser(t, "near", "9000000001", "secret123", models.RoleEmployee)
	near.FaceDescriptor = encodeDesc(t, []float64{0.1, 0.1, 0.1})
	far := activeUser(t, "far", "9000000002", "secret123", models.RoleEmployee)
	far.FaceDescriptor = encodeDesc(t, []float64{0.5, 0.5, 0.5})
	svc := newAuthServiceForTest(newAuthRepoStub(near, far))

	resp, err := svc.FaceLogin(context.Background(), models.FaceLoginRequest{
		FaceDescriptor: []float64{0.12, 0.1, 0.1},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "near", resp.User.ID)
}

func TestFaceLoginNoMatchAboveThreshold(t *testing.T) {
	user := activeUser(t, "u1", "9000000001", "secret123", models.RoleEmployee)
	user.FaceDescriptor = encodeDesc(t, []float64{0.0, 0.0, 0.0})
	svc := newAuthServiceForTest(newAuthRepoStub(user))

	_, err := svc.FaceLogin(context.Background(), models.FaceLoginRequest{
		FaceDescriptor: []float64{1.0, 1.0, 1.0},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestFaceLoginSkipsLockedOutAccounts(t *testing.T) {
	until := time.Now().UTC().Add(time.Hour)
	user := activeUser(t, "u1", "9000000001", "secret123", models.RoleEmployee)
	user.FaceDescriptor = encodeDesc(t, []float64{0.1, 0.1, 0.1})
	user.LockoutUntil = &until
	svc := newAuthServiceForTest(newAuthRepoStub(user))

	_, err := svc.FaceLogin(context.Background(), models.FaceLoginRequest{
		FaceDescriptor: []float64{0.1, 0.1, 0.1},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestEnrollStoresFirstDescriptor(t *testing.T) {
	user := activeUser(t, "u1", "9000000001", "secret123", models.RoleStudent)
	repo := newAuthRepoStub(user)
	svc := newAuthServiceForTest(repo)

	err := svc.EnrollOrVerifyFace(context.Background(), "u1", []float64{0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.NotNil(t, repo.storedDesc)
	assert.JSONEq(t, `[0.2,0.3,0.4]`, *repo.storedDesc)
}

func TestVerifyFaceMatchClearsFailures(t *testing.T) {
	user := activeUser(t, "u1", "9000000001", "secret123", models.RoleStudent)
	user.FaceDescriptor = encodeDesc(t, []float64{0.2, 0.3, 0.4})
	repo := newAuthRepoStub(user)
	svc := newAuthServiceForTest(repo)

	err := svc.EnrollOrVerifyFace(context.Background(), "u1", []float64{0.21, 0.3, 0.4})
	require.NoError(t, err)
	assert.True(t, repo.failuresCleared)
}

func TestVerifyFaceThirdFailureLocksAccount(t *testing.T) {
	user := activeUser(t, "u1", "9000000001", "secret123", models.RoleStudent)
	user.FaceDescriptor = encodeDesc(t, []float64{0.0, 0.0, 0.0})
	repo := newAuthRepoStub(user)
	svc := newAuthServiceForTest(repo)
	probe := []float64{2.0, 2.0, 2.0}

	for i := 0; i < 2; i++ {
		err := svc.EnrollOrVerifyFace(context.Background(), "u1", probe)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	}
	assert.Nil(t, repo.lockoutUntil)

	err := svc.EnrollOrVerifyFace(context.Background(), "u1", probe)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
	require.NotNil(t, repo.lockoutUntil)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), *repo.lockoutUntil, time.Minute)
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newAuthServiceForTest(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "New User",
		Mobile:   "9876501234",
		Password: "secret123",
		Role:     models.RoleClient,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, info.Status)
	require.NotNil(t, repo.created)
	assert.NotEmpty(t, repo.created.PasswordHash)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newAuthServiceForTest(newAuthRepoStub())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Sneaky",
		Mobile:   "9876501234",
		Password: "secret123",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateMobileConflicts(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876501234", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Another",
		Mobile:   "9876501234",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSetPasswordConflictsWhenAlreadySet(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876501234", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	err := svc.SetPassword(context.Background(), models.SetPasswordRequest{
		Mobile:   "9876501234",
		Password: "brand-new",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSetPasswordFirstTime(t *testing.T) {
	user := activeUser(t, "u1", "9876501234", "secret123", models.RoleStudent)
	user.PasswordHash = ""
	repo := newAuthRepoStub(user)
	svc := newAuthServiceForTest(repo)

	err := svc.SetPassword(context.Background(), models.SetPasswordRequest{
		Mobile:   "9876501234",
		Password: "brand-new",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordSet), []byte("brand-new")))
}

func TestLogoutRejectsForeignSession(t *testing.T) {
	repo := newAuthRepoStub()
	repo.sessions["tok"] = &models.Session{ID: "s1", UserID: "owner", Token: "tok"}
	svc := newAuthServiceForTest(repo)

	err := svc.Logout(context.Background(), "tok", "intruder")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.revokedToken)
}

func TestLogoutRevokesOwnSession(t *testing.T) {
	repo := newAuthRepoStub()
	repo.sessions["tok"] = &models.Session{ID: "s1", UserID: "u1", Token: "tok"}
	svc := newAuthServiceForTest(repo)

	require.NoError(t, svc.Logout(context.Background(), "tok", "u1"))
	assert.Equal(t, "tok", repo.revokedToken)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t, "u1", "9876543210", "secret123", models.RoleStudent))
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Mobile:   "9876543210",
		Password: "secret123",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{TokenSecret: "different", TokenExpiry: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, euclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.Zero(t, euclideanDistance([]float64{1, 2}, []float64{1, 2}))
	assert.Equal(t, 1.0, euclideanDistance([]float64{1}, []float64{1, 2}))
}
