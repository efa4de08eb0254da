package config

import (
	"time"

	"github.com/tendant/simple-useradmin/pkg/ratelimit"
)

// RateLimitConfig limits writes to the admin API.
type RateLimitConfig struct {
	Enabled bool `env:"RATELIMIT_ENABLED" env-default:"true"`

	PerUserEnabled   bool    `env:"RATELIMIT_PER_USER_ENABLED" env-default:"true"`
	PerUserBurst     int     `env:"RATELIMIT_PER_USER_BURST" env-default:"60"`
	PerUserPerSecond float64 `env:"RATELIMIT_PER_USER_PER_SECOND" env-default:"1"`

	PerIPEnabled   bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPBurst     int     `env:"RATELIMIT_PER_IP_BURST" env-default:"120"`
	PerIPPerSecond float64 `env:"RATELIMIT_PER_IP_PER_SECOND" env-default:"2"`

	BucketTTL      time.Duration `env:"RATELIMIT_BUCKET_TTL" env-default:"1h"`
	IncludeHeaders bool          `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}

// ToMiddlewareConfig converts the config for ratelimit.NewMiddleware
func (c RateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	return &ratelimit.Config{
		PerUserEnabled:   c.PerUserEnabled,
		PerUserBurst:     c.PerUserBurst,
		PerUserPerSecond: c.PerUserPerSecond,
		PerIPEnabled:     c.PerIPEnabled,
		PerIPBurst:       c.PerIPBurst,
		PerIPPerSecond:   c.PerIPPerSecond,
		BucketTTL:        c.BucketTTL,
		IncludeHeaders:   c.IncludeHeaders,
	}
}

func (c RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return Validate(func() ValidationErrors {
		var errs ValidationErrors
		if c.PerUserEnabled {
			errs = append(errs, CollectErrors(RequirePositive("RATELIMIT_PER_USER_BURST", c.PerUserBurst))...)
			errs = append(errs, CollectErrors(requirePositiveRate("RATELIMIT_PER_USER_PER_SECOND", c.PerUserPerSecond))...)
		}
		if c.PerIPEnabled {
			errs = append(errs, CollectErrors(RequirePositive("RATELIMIT_PER_IP_BURST", c.PerIPBurst))...)
			errs = append(errs, CollectErrors(requirePositiveRate("RATELIMIT_PER_IP_PER_SECOND", c.PerIPPerSecond))...)
		}
		errs = append(errs, CollectErrors(RequirePositiveDuration("RATELIMIT_BUCKET_TTL", c.BucketTTL))...)
		return errs
	})
}

func requirePositiveRate(field string, value float64) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}
