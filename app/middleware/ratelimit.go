package middleware

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/gofiber/fiber/v3"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type windowState struct {
	count   int
	resetAt time.Time
}

// RateLimiter enforces a fixed-window per-key request budget. Each key gets
// at most max requests per window; the first request after a window lapses
// opens a fresh one. Denied requests still count against the window, so
// hammering a limited key does not shorten the wait.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowState

	max     int
	window  time.Duration
	sweep   time.Duration
	enabled bool

	now func() time.Time
}

// NewRateLimiter builds a limiter. A nil-safe disabled limiter is returned
// when enabled is false or max is not positive.
func NewRateLimiter(enabled bool, max int, window, sweepInterval time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = window
	}
	return &RateLimiter{
		windows: make(map[string]*windowState),
		max:     max,
		window:  window,
		sweep:   sweepInterval,
		enabled: enabled,
		now:     time.Now,
	}
}

// Active reports whether the limiter enforces anything at all.
func (rl *RateLimiter) Active() bool {
	return rl.enabled && rl.max > 0
}

// Check consumes one request slot for key and returns the decision. The
// counter advances even when the request is denied.
func (rl *RateLimiter) Check(key string) Decision {
	now := rl.now().UTC()

	if !rl.Active() {
		return Decision{Allowed: true, Limit: rl.max, Remaining: rl.max, ResetAt: now}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	st := rl.windows[key]
	if st == nil || !now.Before(st.resetAt) {
		st = &windowState{resetAt: now.Add(rl.window)}
		rl.windows[key] = st
	}
	st.count++

	remaining := rl.max - st.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   st.count <= rl.max,
		Limit:     rl.max,
		Remaining: remaining,
		ResetAt:   st.resetAt,
	}
}

// StartSweep launches the background eviction of lapsed windows and returns
// a stop function. Stopping the sweep does not disable the limiter itself.
func (rl *RateLimiter) StartSweep(ctx context.Context) func() {
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(rl.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				rl.evictExpired()
			}
		}
	}()

	return stop
}

func (rl *RateLimiter) evictExpired() {
	now := rl.now().UTC()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, st := range rl.windows {
		if !now.Before(st.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// RateLimit returns a Fiber middleware that applies the limiter to the
// wrapped routes. The client key is the first entry of X-Forwarded-For when
// present, the transport peer address otherwise.
func RateLimit(rl *RateLimiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !rl.Active() {
			return c.Next()
		}

		decision := rl.Check(clientKey(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			CountRateLimitDenial()
			retryAfter := int64(decision.ResetAt.Sub(rl.now().UTC()) + time.Second - 1)
			retrySeconds := retryAfter / int64(time.Second)
			if retrySeconds < 0 {
				retrySeconds = 0
			}
			c.Set("Retry-After", strconv.FormatInt(retrySeconds, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Rate limit exceeded, please try again later",
				Error: &dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		}

		return c.Next()
	}
}

func clientKey(c fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}
