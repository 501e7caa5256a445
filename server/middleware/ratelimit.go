package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Rate is the number of requests per second allowed per key.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size per key.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// IdleTTL drops a key's bucket after it has been unused this long.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 50
	}
	if c.Burst <= 0 {
		c.Burst = 100
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 5 * time.Minute
	}
}

// RateLimit returns a Gin middleware applying a token bucket per key.
// Rejected requests get a RATE_LIMITED error body and 429.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cfg.ApplyDefaults()
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
		Name:  "http",
		Rate:  cfg.Rate,
		Burst: cfg.Burst,
	}, cfg.IdleTTL)

	return func(c *gin.Context) {
		if !limiter.Allow(cfg.KeyFunc(c)) {
			appErr := errors.RateLimited()
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
