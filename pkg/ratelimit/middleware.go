package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
)

// Config holds rate limiting configuration
type Config struct {
	// Per-User rate limiting, keyed by the token subject
	PerUserEnabled   bool
	PerUserBurst     int
	PerUserPerSecond float64

	// Per-IP rate limiting for requests without a subject
	PerIPEnabled   bool
	PerIPBurst     int
	PerIPPerSecond float64

	// Bucket TTL (how long to keep inactive buckets in memory)
	BucketTTL time.Duration

	// Headers to include in response
	IncludeHeaders bool
}

// DefaultConfig returns 60 writes per minute per user and 120 per minute per IP
func DefaultConfig() *Config {
	return &Config{
		PerUserEnabled:   true,
		PerUserBurst:     60,
		PerUserPerSecond: 1,

		PerIPEnabled:   true,
		PerIPBurst:     120,
		PerIPPerSecond: 2,

		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config      *Config
	userLimiter *RateLimiter
	ipLimiter   *RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Middleware{config: config}
	if config.PerUserEnabled {
		m.userLimiter = NewRateLimiter(config.PerUserBurst, config.PerUserPerSecond, config.BucketTTL)
	}
	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPBurst, config.PerIPPerSecond, config.BucketTTL)
	}
	return m
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := getUserID(r); userID != "" {
			if m.userLimiter != nil {
				if !m.userLimiter.Allow(userID) {
					m.rateLimitExceeded(w, r, "user")
					return
				}
				if m.config.IncludeHeaders {
					w.Header().Set("X-RateLimit-Limit-User", fmt.Sprintf("%d", m.config.PerUserBurst))
				}
			}
		} else if m.ipLimiter != nil {
			if !m.ipLimiter.Allow(getClientIP(r)) {
				m.rateLimitExceeded(w, r, "ip")
				return
			}
			if m.config.IncludeHeaders {
				w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPBurst))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Stop releases the limiter goroutines
func (m *Middleware) Stop() {
	if m.userLimiter != nil {
		m.userLimiter.Stop()
	}
	if m.ipLimiter != nil {
		m.ipLimiter.Stop()
	}
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r),
		"user", getUserID(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	err := apperrors.RateLimitExceeded("60").WithDetail("type", limitType)
	w.Header().Set("Retry-After", "60")
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, map[string]interface{}{
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// getClientIP uses RemoteAddr; chi's RealIP middleware must run first behind a proxy.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// getUserID extracts the subject from the verified JWT in the request context
func getUserID(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
