package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterCheck(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	newLimiter := func(max int, window time.Duration) (*RateLimiter, *time.Time) {
		rl := NewRateLimiter(true, max, window, 0)
		current := base
		rl.now = func() time.Time { return current }
		return rl, &current
	}

	t.Run("AllowsUpToMax", func(t *testing.T) {
		rl, _ := newLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			d := rl.Check("1.2.3.4")
			assert.True(t, d.Allowed)
			assert.Equal(t, 3, d.Limit)
			assert.Equal(t, 2-i, d.Remaining)
		}
		d := rl.Check("1.2.3.4")
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
	})

	t.Run("DeniedRequestsStillCount", func(t *testing.T) {
		rl, current := newLimiter(1, time.Minute)
		rl.Check("k")
		d := rl.Check("k")
		require.False(t, d.Allowed)

		// Half a window later the key is still denied; the denied calls did
		// not restart the window.
		*current = base.Add(30 * time.Second)
		d = rl.Check("k")
		assert.False(t, d.Allowed)
		assert.Equal(t, base.Add(time.Minute), d.ResetAt)
	})

	t.Run("WindowReset", func(t *testing.T) {
		rl, current := newLimiter(1, time.Minute)
		rl.Check("k")
		d := rl.Check("k")
		require.False(t, d.Allowed)

		*current = base.Add(time.Minute)
		d = rl.Check("k")
		assert.True(t, d.Allowed)
		assert.Equal(t, base.Add(2*time.Minute), d.ResetAt)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		rl, _ := newLimiter(1, time.Minute)
		require.True(t, rl.Check("a").Allowed)
		require.False(t, rl.Check("a").Allowed)
		assert.True(t, rl.Check("b").Allowed)
	})

	t.Run("DisabledPassthrough", func(t *testing.T) {
		rl := NewRateLimiter(false, 5, time.Minute, 0)
		assert.False(t, rl.Active())
		for i := 0; i < 20; i++ {
			assert.True(t, rl.Check("k").Allowed)
		}
	})

	t.Run("ZeroMaxPassthrough", func(t *testing.T) {
		rl := NewRateLimiter(true, 0, time.Minute, 0)
		assert.False(t, rl.Active())
		assert.True(t, rl.Check("k").Allowed)
	})
}

func TestRateLimiterEvictExpired(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	current := base

	rl := NewRateLimiter(true, 5, time.Minute, 0)
	rl.now = func() time.Time { return current }

	rl.Check("a")
	rl.Check("b")
	require.Len(t, rl.windows, 2)

	current = base.Add(30 * time.Second)
	rl.Check("c")

	current = base.Add(time.Minute)
	rl.evictExpired()

	// a and b lapsed at base+1m; c lapses at base+1m30s
	assert.Len(t, rl.windows, 1)
	assert.Contains(t, rl.windows, "c")
}

func TestRateLimitMiddleware(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	setup := func(max int) (*fiber.App, *RateLimiter) {
		rl := NewRateLimiter(true, max, time.Minute, 0)
		rl.now = func() time.Time { return base }
		app := fiber.New()
		// Middleware precedes the handler, matching the route registration
		app.Post("/links", RateLimit(rl), func(c fiber.Ctx) error {
			return c.SendString("ok")
		})
		return app, rl
	}

	t.Run("HeadersOnAllowedRequest", func(t *testing.T) {
		app, _ := setup(2)

		req := httptest.NewRequest("POST", "/links", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.42")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	})

	t.Run("DeniedGets429AndRetryAfter", func(t *testing.T) {
		app, _ := setup(1)

		first := httptest.NewRequest("POST", "/links", nil)
		first.Header.Set("X-Forwarded-For", "203.0.113.42")
		resp, err := app.Test(first)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		second := httptest.NewRequest("POST", "/links", nil)
		second.Header.Set("X-Forwarded-For", "203.0.113.42")
		resp, err = app.Test(second)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", resp.Header.Get("Retry-After"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("ForwardedForSeparatesClients", func(t *testing.T) {
		app, _ := setup(1)

		first := httptest.NewRequest("POST", "/links", nil)
		first.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
		resp, err := app.Test(first)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		// Same first hop is denied
		second := httptest.NewRequest("POST", "/links", nil)
		second.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.2")
		resp, err = app.Test(second)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

		// Different first hop is allowed
		third := httptest.NewRequest("POST", "/links", nil)
		third.Header.Set("X-Forwarded-For", "203.0.113.2, 10.0.0.1")
		resp, err = app.Test(third)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("DisabledLimiterSkipsHeaders", func(t *testing.T) {
		rl := NewRateLimiter(false, 1, time.Minute, 0)
		app := fiber.New()
		app.Post("/links", RateLimit(rl), func(c fiber.Ctx) error {
			return c.SendString("ok")
		})

		for i := 0; i < 5; i++ {
			resp, err := app.Test(httptest.NewRequest("POST", "/links", nil))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
		}
	})
}
