package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kbukum/peerkit/errors"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the limiter in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of events allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// OnLimit is called when an event is rejected.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig allows 50 events per second with a burst of 100.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 50, Burst: 100}
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 50
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
}

// RateLimiter is a token bucket backed by rate.Limiter.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether one event may happen now.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until an event is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Execute runs fn if the limiter allows it, otherwise returns a
// RATE_LIMITED error.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return errors.RateLimited()
	}
	return fn()
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

func (rl *RateLimiter) Rate() float64 { return rl.config.Rate }
func (rl *RateLimiter) Burst() int    { return rl.config.Burst }

// KeyedRateLimiter keeps one bucket per key, such as one per sending peer.
// Buckets idle for longer than ttl are dropped on the next Allow.
type KeyedRateLimiter struct {
	config RateLimiterConfig
	ttl    time.Duration

	mu      sync.Mutex
	buckets map[string]*keyedBucket
	lastGC  time.Time
}

type keyedBucket struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates per-key buckets sharing one config.
func NewKeyedRateLimiter(config RateLimiterConfig, ttl time.Duration) *KeyedRateLimiter {
	config.applyDefaults()
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &KeyedRateLimiter{
		config:  config,
		ttl:     ttl,
		buckets: make(map[string]*keyedBucket),
		lastGC:  time.Now(),
	}
}

// Allow reports whether one event for key may happen now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	now := time.Now()

	k.mu.Lock()
	if now.Sub(k.lastGC) > k.ttl {
		for name, b := range k.buckets {
			if now.Sub(b.lastSeen) > k.ttl {
				delete(k.buckets, name)
			}
		}
		k.lastGC = now
	}
	b, ok := k.buckets[key]
	if !ok {
		cfg := k.config
		cfg.Name = k.config.Name + ":" + key
		b = &keyedBucket{limiter: NewRateLimiter(cfg)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	k.mu.Unlock()

	return b.limiter.Allow()
}

// Len returns the number of live buckets.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
