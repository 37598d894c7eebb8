package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthApp(t *testing.T) (*fiber.App, services.TokenService, *int) {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	handlerCalls := 0
	app := fiber.New()
	// Guard ahead of the handler, matching the admin route registration
	app.Get("/admin/analytics", NewAuthMiddleware(tokenService).AdminAuthenticate(), func(c fiber.Ctx) error {
		handlerCalls++
		return c.SendString("ok")
	})

	return app, tokenService, &handlerCalls
}

func TestAdminAuthenticate(t *testing.T) {
	t.Run("MissingHeaderBlocksHandler", func(t *testing.T) {
		app, _, handlerCalls := newTestAuthApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/admin/analytics", nil))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, *handlerCalls)
	})

	t.Run("MalformedHeaderBlocksHandler", func(t *testing.T) {
		app, _, handlerCalls := newTestAuthApp(t)

		req := httptest.NewRequest("GET", "/admin/analytics", nil)
		req.Header.Set("Authorization", "Token abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, *handlerCalls)
	})

	t.Run("InvalidTokenBlocksHandler", func(t *testing.T) {
		app, _, handlerCalls := newTestAuthApp(t)

		req := httptest.NewRequest("GET", "/admin/analytics", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, *handlerCalls)
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		app, tokenService, handlerCalls := newTestAuthApp(t)

		_, refreshToken, err := tokenService.GenerateAdminTokens(7)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin/analytics", nil)
		req.Header.Set("Authorization", "Bearer "+refreshToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, *handlerCalls)
	})

	t.Run("ValidAccessTokenReachesHandler", func(t *testing.T) {
		app, tokenService, handlerCalls := newTestAuthApp(t)

		accessToken, _, err := tokenService.GenerateAdminTokens(7)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin/analytics", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, *handlerCalls)
	})
}
