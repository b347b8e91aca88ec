package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbridge/portal/common/models"
)

const testSecret = "test-secret"

func testUser(role models.UserRole) *models.User {
	u := &models.User{
		ID:    uuid.New(),
		Email: "user@example.com",
		Name:  "Test User",
		Role:  role,
	}
	if role == models.RoleClient {
		clientID := uuid.New()
		u.ClientID = &clientID
	}
	return u
}

func newAuthTestApp(next fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(Auth(AuthConfig{JWTSecret: testSecret}))
	app.Get("/protected", next)
	return app
}

func TestAuthAcceptsAccessToken(t *testing.T) {
	user := testUser(models.RoleClient)
	token, _, err := GenerateAccessToken(user, testSecret, time.Minute)
	require.NoError(t, err)

	var gotUser uuid.UUID
	var gotTenant uuid.UUID
	var tenantSet bool
	app := newAuthTestApp(func(c *fiber.Ctx) error {
		gotUser, _ = GetUserID(c)
		gotTenant, tenantSet = GetClientID(c)
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID, gotUser)
	require.True(t, tenantSet)
	assert.Equal(t, *user.ClientID, gotTenant)
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	user := testUser(models.RoleAdmin)
	token, _, err := GenerateRefreshToken(user, testSecret, time.Minute)
	require.NoError(t, err)

	app := newAuthTestApp(func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsMissingAndMalformedHeaders(t *testing.T) {
	app := newAuthTestApp(func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	user := testUser(models.RoleAdmin)
	token, _, err := GenerateAccessToken(user, "other-secret", time.Minute)
	require.NoError(t, err)

	app := newAuthTestApp(func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	user := testUser(models.RoleAdmin)
	token, _, err := GenerateAccessToken(user, testSecret, -time.Minute)
	require.NoError(t, err)

	app := newAuthTestApp(func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(Auth(AuthConfig{JWTSecret: testSecret}))
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	adminToken, _, err := GenerateAccessToken(testUser(models.RoleAdmin), testSecret, time.Minute)
	require.NoError(t, err)
	clientToken, _, err := GenerateAccessToken(testUser(models.RoleClient), testSecret, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthSkipPaths(t *testing.T) {
	app := fiber.New()
	app.Use(Auth(AuthConfig{JWTSecret: testSecret, SkipPaths: []string{"/public"}}))
	app.Get("/public/info", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/public/info", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
