package config

import (
	"time"

	"github.com/sosodev/duration"
)

// DefaultJWTSecret is the placeholder shipped as JWT_SECRET's default. Validate rejects it so an
// unconfigured server never trusts tokens signed with a public value.
const DefaultJWTSecret = "very-secure-jwt-secret"

// JWTConfig holds the HS256 secret shared with the login service that issues admin console
// tokens.
type JWTConfig struct {
	Secret      string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer      string `env:"JWT_ISSUER" env-default:"simple-useradmin"`
	TokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"PT1H"`
}

// ParseTokenExpiry parses the expiry of locally minted tokens
func (j JWTConfig) ParseTokenExpiry() (time.Duration, error) {
	return parseDurationISO8601(j.TokenExpiry)
}

func (j JWTConfig) Validate() error {
	return Validate(func() ValidationErrors {
		errs := CollectErrors(
			RequireMinLength("JWT_SECRET", j.Secret, 16),
			RequireNonEmpty("JWT_ISSUER", j.Issuer),
		)
		if j.Secret == DefaultJWTSecret {
			errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "must be changed from the built-in default"})
		}
		if d, err := j.ParseTokenExpiry(); err != nil || d <= 0 {
			errs = append(errs, ValidationError{Field: "ACCESS_TOKEN_EXPIRY", Message: "must be a positive ISO8601 or Go duration"})
		}
		return errs
	})
}

// parseDurationISO8601 tries to parse duration as ISO8601 first, then Go duration
func parseDurationISO8601(s string) (time.Duration, error) {
	isoDuration, err := duration.Parse(s)
	if err == nil {
		return isoDuration.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}
