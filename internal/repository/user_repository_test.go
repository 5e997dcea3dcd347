package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "mobile", "email", "password_hash", "role", "status", "course", "designation", "joining_date",
		"total_fees", "paid_amount", "pending_amount", "wallet_balance", "face_descriptor", "face_failures", "lockout_until",
		"last_login", "created_at", "updated_at",
	}).AddRow("u1", "Riya", "9876543210", nil, "hash", string(models.RoleStudent), string(models.StatusActive), nil, nil, nil,
		1000.0, 400.0, 600.0, 0.0, nil, 0, nil, nil, now, now)
}

func TestUserFindByMobile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE mobile = \\$1 LIMIT 1").
		WithArgs("9876543210").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByMobile(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByMobileNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE mobile = \\$1 LIMIT 1").
		WithArgs("0000000000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByMobile(context.Background(), "0000000000")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsByMobile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE mobile = $1 LIMIT 1")).
		WithArgs("9876543210").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByMobile(context.Background(), "9876543210", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE mobile = $1 AND id <> $2 LIMIT 1")).
		WithArgs("9876543210", "u1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByMobile(context.Background(), "9876543210", "u1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateComputesPendingAmount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Name:       "Riya",
		Mobile:     "9876543210",
		Role:       models.RoleStudent,
		Status:     models.StatusActive,
		TotalFees:  1000,
		PaidAmount: 400,
	}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, 600.0, user.PendingAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE 1=1 AND role = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs(models.RoleStudent).
		WillReturnRows(userRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND role = $1")).
		WithArgs(models.RoleStudent).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	role := models.RoleStudent
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFaceFailureReturnsCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET face_failures = face_failures + 1, updated_at = $2 WHERE id = $1 RETURNING face_failures")).
		WillReturnRows(sqlmock.NewRows([]string{"face_failures"}).AddRow(2))

	failures, err := repo.RecordFaceFailure(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, failures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("u1", models.StatusBlocked, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "u1", models.StatusBlocked)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked = true WHERE token = $1")).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeSession(context.Background(), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
