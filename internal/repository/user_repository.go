package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

const userColumns = `id, name, mobile, email, password_hash, role, status, course, designation, joining_date,
        total_fees, paid_amount, pending_amount, wallet_balance, face_descriptor, face_failures, lockout_until,
        last_login, created_at, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByMobile returns a user by mobile number.
func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE mobile = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, mobile); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by mobile: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ExistsByMobile checks whether a mobile number is already registered,
// optionally excluding one user ID.
func (r *UserRepository) ExistsByMobile(ctx context.Context, mobile string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM users WHERE mobile = $1"
	args := []interface{}{mobile}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check mobile: %w", err)
	}
	return true, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR mobile LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"name":       true,
		"mobile":     true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.PendingAmount = user.TotalFees - user.PaidAmount
	const query = `INSERT INTO users (id, name, mobile, email, password_hash, role, status, course, designation, joining_date,
        total_fees, paid_amount, pending_amount, wallet_balance, face_descriptor, face_failures, lockout_until, last_login, created_at, updated_at)
        VALUES (:id, :name, :mobile, :email, :password_hash, :role, :status, :course, :designation, :joining_date,
        :total_fees, :paid_amount, :pending_amount, :wallet_balance, :face_descriptor, :face_failures, :lockout_until, :last_login, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update modifies an existing user's profile and fee fields. The pending
// amount is always recomputed from total and paid.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	user.PendingAmount = user.TotalFees - user.PaidAmount
	const query = `UPDATE users SET name = :name, mobile = :mobile, email = :email, role = :role, status = :status,
        course = :course, designation = :designation, joining_date = :joining_date,
        total_fees = :total_fees, paid_amount = :paid_amount, pending_amount = :pending_amount,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateStatus transitions an account between PENDING, ACTIVE and BLOCKED.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	const query = `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdateFaceDescriptor stores or clears the enrolled biometric descriptor.
// Clearing also resets the failure counter and any lockout.
func (r *UserRepository) UpdateFaceDescriptor(ctx context.Context, id string, descriptor *string) error {
	const query = `UPDATE users SET face_descriptor = $2, face_failures = 0, lockout_until = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, descriptor, time.Now().UTC()); err != nil {
		return fmt.Errorf("update face descriptor: %w", err)
	}
	return nil
}

// RecordFaceFailure increments the biometric failure counter and returns the
// new count.
func (r *UserRepository) RecordFaceFailure(ctx context.Context, id string) (int, error) {
	const query = `UPDATE users SET face_failures = face_failures + 1, updated_at = $2 WHERE id = $1 RETURNING face_failures`
	var failures int
	if err := r.db.GetContext(ctx, &failures, query, id, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("record face failure: %w", err)
	}
	return failures, nil
}

// SetLockout marks the account locked until the given time.
func (r *UserRepository) SetLockout(ctx context.Context, id string, until time.Time) error {
	const query = `UPDATE users SET lockout_until = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, until, time.Now().UTC()); err != nil {
		return fmt.Errorf("set lockout: %w", err)
	}
	return nil
}

// ClearFaceFailures resets the biometric failure counter and lockout.
func (r *UserRepository) ClearFaceFailures(ctx context.Context, id string) error {
	const query = `UPDATE users SET face_failures = 0, lockout_until = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear face failures: %w", err)
	}
	return nil
}

// ListWithFace returns users of a role that have an enrolled face descriptor.
func (r *UserRepository) ListWithFace(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 AND face_descriptor IS NOT NULL AND face_descriptor <> ''`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users with face: %w", err)
	}
	return users, nil
}

// ListActiveByRole returns every ACTIVE user holding a role, ordered by name.
func (r *UserRepository) ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 AND status = $2 ORDER BY name ASC`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list active users by role: %w", err)
	}
	return users, nil
}

// Delete removes a user permanently.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// CreateSession stores a login session token.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, user_id, token, expires_at, created_at, revoked)
        VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindSession looks up a session by its token.
func (r *UserRepository) FindSession(ctx context.Context, token string) (*models.Session, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked FROM sessions WHERE token = $1 LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// RevokeSession marks a session revoked.
func (r *UserRepository) RevokeSession(ctx context.Context, token string) error {
	const query = `UPDATE sessions SET revoked = true WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions revokes all sessions belonging to a user.
func (r *UserRepository) RevokeUserSessions(ctx context.Context, userID string) error {
	const query = `UPDATE sessions SET revoked = true WHERE user_id = $1 AND revoked = false`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
