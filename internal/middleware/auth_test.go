package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomlift/api/internal/config"
	"roomlift/api/internal/models"
	"roomlift/api/internal/repository"
	"roomlift/api/internal/security"
)

const authTestSecret = "auth-test-secret"

type fakeUserLoader struct {
	users map[string]models.User
}

func (f *fakeUserLoader) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func authRouter(t *testing.T, loader UserLoader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{Security: config.SecurityConfig{JWTAccessSecret: authTestSecret}}

	router := gin.New()
	router.Use(Auth(cfg, loader))
	router.GET("/me", func(c *gin.Context) {
		user := c.MustGet("current_user").(models.User)
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})
	return router
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := security.GenerateAccessToken(authTestSecret, userID, string(models.UserRoleUser), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthAcceptsActiveUser(t *testing.T) {
	loader := &fakeUserLoader{users: map[string]models.User{
		"user-1": {ID: "user-1", Role: models.UserRoleUser, Status: models.UserStatusActive},
	}}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	authRouter(t, loader).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestAuthRejectsSuspendedUser(t *testing.T) {
	loader := &fakeUserLoader{users: map[string]models.User{
		"user-1": {ID: "user-1", Role: models.UserRoleUser, Status: models.UserStatusSuspended},
	}}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	authRouter(t, loader).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_inactive")
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	authRouter(t, &fakeUserLoader{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMalformedToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	authRouter(t, &fakeUserLoader{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsUnknownUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearerToken(t, "ghost"))
	rec := httptest.NewRecorder()
	authRouter(t, &fakeUserLoader{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_not_found")
}
