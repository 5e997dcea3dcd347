package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tejaskp/portal-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, paramID string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/resource", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}

	RBAC(allowed...)(c)
	return rec
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	rec := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "", string(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	rec := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "", string(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	rec := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u1", string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACSelfRejectsForeignID(t *testing.T) {
	rec := performRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u2", string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRequiresClaims(t *testing.T) {
	rec := performRBAC(t, nil, "", string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
