// Package ratelimit provides per-key token bucket rate limiting on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

// Limiter names used as metric labels.
const (
	NameUser = "user"
	NameLLM  = "llm"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "user", "llm")
	Name string

	// Token bucket settings
	Limit rate.Limit // tokens refilled per second
	Burst int        // bucket capacity

	// How often to drop limiters whose bucket has refilled
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics

	Now func() time.Time
}

// KeyedLimiter tracks rate limits per key (e.g. LINE user id). Each key
// gets its own token bucket; buckets that refill completely are dropped by
// a background cleanup so idle users cost nothing.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	config   KeyedConfig
	onDrop   func()          // Optional callback when request is dropped
	onUpdate func(count int) // Optional callback when active count changes

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewKeyedLimiter creates a new per-key rate limiter.
// Call Stop to end the cleanup goroutine.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	kl := &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}

	if cfg.Metrics != nil {
		kl.onDrop = func() {
			cfg.Metrics.RecordRateLimiterDrop(cfg.Name)
		}
		kl.onUpdate = func(count int) {
			cfg.Metrics.SetRateLimiterUsers(cfg.Name, count)
		}
	}

	if cfg.CleanupPeriod > 0 {
		kl.wg.Go(kl.cleanupLoop)
	}
	return kl
}

// NewUserLimiter limits every message a user sends.
func NewUserLimiter(perSecond float64, burst int, cleanup time.Duration, m *metrics.Metrics) *KeyedLimiter {
	return NewKeyedLimiter(KeyedConfig{
		Name:          NameUser,
		Limit:         rate.Limit(perSecond),
		Burst:         burst,
		CleanupPeriod: cleanup,
		Metrics:       m,
	})
}

// NewLLMLimiter limits free-text questions, which each cost an LLM call.
func NewLLMLimiter(perHour float64, burst int, cleanup time.Duration, m *metrics.Metrics) *KeyedLimiter {
	return NewKeyedLimiter(KeyedConfig{
		Name:          NameLLM,
		Limit:         rate.Limit(perHour / 3600),
		Burst:         burst,
		CleanupPeriod: cleanup,
		Metrics:       m,
	})
}

// Allow consumes a token for key. An empty key is always allowed.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if kl.limiterFor(key).AllowN(kl.config.Now(), 1) {
		return true
	}
	if kl.onDrop != nil {
		kl.onDrop()
	}
	return false
}

// limiterFor returns the limiter for a key, creating it if needed.
func (kl *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	kl.mu.RLock()
	l, ok := kl.limiters[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if l, ok = kl.limiters[key]; ok {
		return l
	}
	l = rate.NewLimiter(kl.config.Limit, kl.config.Burst)
	kl.limiters[key] = l
	return l
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.limiters)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

// cleanup drops limiters whose bucket is full again and returns the
// remaining count.
func (kl *KeyedLimiter) cleanup() int {
	now := kl.config.Now()
	full := float64(kl.config.Burst)

	kl.mu.Lock()
	for key, l := range kl.limiters {
		if l.TokensAt(now) >= full {
			delete(kl.limiters, key)
		}
	}
	count := len(kl.limiters)
	kl.mu.Unlock()

	if kl.onUpdate != nil {
		kl.onUpdate(count)
	}
	return count
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
	kl.wg.Wait()
}
