package middleware

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"golang.org/x/time/rate"
)

// MaxMessageBytes bounds a single chat utterance
const MaxMessageBytes = 4096

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(clientKey string) bool
	Reset(clientKey string)
}

// ClientRateLimiter implements per-client rate limiting keyed by
// chat session or remote address
type ClientRateLimiter struct {
	enabled         bool
	limiters        map[string]*rate.Limiter
	mu              sync.RWMutex
	rpm             int
	burst           int
	logger          *logrus.Logger
	cleanupInterval time.Duration
	stop            chan struct{}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) RateLimiter {
	if !cfg.RateLimit.Enabled {
		return &ClientRateLimiter{enabled: false}
	}

	rl := &ClientRateLimiter{
		enabled:         true,
		limiters:        make(map[string]*rate.Limiter),
		rpm:             cfg.RateLimit.RequestsPerMinute,
		burst:           cfg.RateLimit.Burst,
		logger:          logger,
		cleanupInterval: 1 * time.Hour,
		stop:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a client is allowed to make a request
func (r *ClientRateLimiter) Allow(clientKey string) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(clientKey).Allow()
	if !allowed {
		r.logger.WithField("client", clientKey).Warn("Rate limit exceeded")
	}

	return allowed
}

// Reset resets the rate limiter for a client
func (r *ClientRateLimiter) Reset(clientKey string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	delete(r.limiters, clientKey)
	r.mu.Unlock()
}

// Stop ends the cleanup goroutine
func (r *ClientRateLimiter) Stop() {
	if r.stop != nil {
		close(r.stop)
	}
}

func (r *ClientRateLimiter) getLimiter(clientKey string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[clientKey]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[clientKey]; exists {
		return limiter
	}

	// Rate per second = RPM / 60
	rps := float64(r.rpm) / 60.0
	limiter = rate.NewLimiter(rate.Limit(rps), r.burst)
	r.limiters[clientKey] = limiter

	return limiter
}

func (r *ClientRateLimiter) cleanup() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if len(r.limiters) > 10000 {
				r.logger.Warn("Rate limiter map size exceeded threshold, clearing")
				r.limiters = make(map[string]*rate.Limiter)
			}
			r.mu.Unlock()
		}
	}
}

// ValidateMessage rejects chat input the responder should never see
func ValidateMessage(text string) error {
	if len(text) > MaxMessageBytes {
		return fmt.Errorf("message too long: %d bytes", len(text))
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message is not valid UTF-8")
	}
	return nil
}
