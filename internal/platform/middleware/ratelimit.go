package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-client request budget.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is sized for an institution's staff sharing one
// egress address.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// tokenBucket tracks one client's remaining request budget. The balance is
// refilled lazily on access rather than by a background ticker.
type tokenBucket struct {
	mu      sync.Mutex
	balance float64
	burst   float64
	rate    float64
	touched time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		balance: float64(burst),
		burst:   float64(burst),
		rate:    rate,
		touched: time.Now(),
	}
}

// take credits the bucket for the time elapsed since the last visit and
// consumes one token. It reports whether a token was available and how many
// whole tokens remain.
func (b *tokenBucket) take() (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.balance += now.Sub(b.touched).Seconds() * b.rate
	if b.balance > b.burst {
		b.balance = b.burst
	}
	b.touched = now

	if b.balance < 1 {
		return false, 0
	}
	b.balance--
	return true, int(b.balance)
}

func (b *tokenBucket) allow() bool {
	ok, _ := b.take()
	return ok
}

// retryAfter estimates whole seconds until the next token becomes available.
func (b *tokenBucket) retryAfter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rate <= 0 {
		return 1
	}
	return int((1-b.balance)/b.rate) + 1
}

// rateLimiterStore keeps one bucket per client key.
type rateLimiterStore struct {
	config  RateLimitConfig
	buckets sync.Map
}

func newRateLimiterStore(cfg RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{config: cfg}
}

func (s *rateLimiterStore) getBucket(key string) *tokenBucket {
	if b, ok := s.buckets.Load(key); ok {
		return b.(*tokenBucket)
	}
	b, _ := s.buckets.LoadOrStore(key, newTokenBucket(s.config.RequestsPerSecond, s.config.BurstSize))
	return b.(*tokenBucket)
}

// RateLimit throttles clients by remote IP so one misbehaving integration
// cannot starve everyone else's access to the API.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newRateLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bucket := store.getBucket(c.RealIP())
			ok, remaining := bucket.take()

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(bucket.retryAfter()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
