package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/verdantmart/identity-gateway/internal/api/metrics"
)

const limiterCleanupInterval = 5 * time.Minute

// RateLimitConfig defines a token bucket per client IP.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// PerMinute allows n requests per minute with an equal burst.
func PerMinute(n int) RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: n, Window: time.Minute, Burst: n}
}

// ipLimiters keeps one limiter per client IP.
type ipLimiters struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (l *ipLimiters) get(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket has refilled, at most every
// limiterCleanupInterval.
func (l *ipLimiters) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastCleanup) < limiterCleanupInterval {
		return
	}
	l.lastCleanup = time.Now()
	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// newIPLimiters normalises cfg. It returns nil when cfg disables limiting.
func newIPLimiters(cfg RateLimitConfig) (*ipLimiters, RateLimitConfig) {
	if cfg.RequestsPerWindow <= 0 {
		return nil, cfg
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerWindow
	}
	return &ipLimiters{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}, cfg
}

// allow reports whether the caller's IP has a token left. On refusal it
// writes the 429 response.
func (l *ipLimiters) allow(c echo.Context, cfg RateLimitConfig, log zerolog.Logger) (bool, error) {
	key := c.RealIP()
	limiter := l.get(key)
	if limiter.Allow() {
		return true, nil
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	retryAfter := max(int(delay.Seconds()), 1)

	h := c.Response().Header()
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
	h.Set("X-RateLimit-Window", cfg.Window.String())

	metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
	log.Warn().Str("ip", key).Str("path", c.Path()).Int("retry_after", retryAfter).Msg("rate limit exceeded")

	return false, c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests, please try again later"})
}

// RateLimit throttles credential submissions per client IP. It is the
// server-side counterpart of the per-session login lockout. A non-positive
// RequestsPerWindow disables it.
func RateLimit(cfg RateLimitConfig, log zerolog.Logger) echo.MiddlewareFunc {
	l, cfg := newIPLimiters(cfg)
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := l.allow(c, cfg, log)
			if !ok {
				return err
			}
			return next(c)
		}
	}
}
