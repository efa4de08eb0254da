package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var fieldValidator = validator.New()

// ValidationError names one misconfigured environment variable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is every problem found in one configuration pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	lines := make([]string, 0, len(e)+1)
	lines = append(lines, "configuration validation failed:")
	for i := range e {
		lines = append(lines, "  - "+e[i].Error())
	}
	return strings.Join(lines, "\n")
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator checks one sub-config.
type Validator func() ValidationErrors

// Validate runs every validator and reports all failures together.
func Validate(validators ...Validator) error {
	var all ValidationErrors
	for _, v := range validators {
		all = append(all, v()...)
	}
	if all.HasErrors() {
		return all
	}
	return nil
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// checkTag runs a validator tag against a single value.
func checkTag(field string, value interface{}, tag, message string) *ValidationError {
	if err := fieldValidator.Var(value, tag); err != nil {
		return invalid(field, "%s", message)
	}
	return nil
}

func RequireNonEmpty(field, value string) *ValidationError {
	return checkTag(field, value, "required", "is required")
}

func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return invalid(field, "must be positive, got %d", value)
	}
	return nil
}

func RequireNonNegative(field string, value int) *ValidationError {
	if value < 0 {
		return invalid(field, "must be non-negative, got %d", value)
	}
	return nil
}

func RequirePositiveDuration(field string, value time.Duration) *ValidationError {
	if value <= 0 {
		return invalid(field, "must be positive, got %v", value)
	}
	return nil
}

// RequireValidURL accepts absolute URLs only; the base URL ends up in emailed links.
func RequireValidURL(field, value string) *ValidationError {
	if err := RequireNonEmpty(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil {
		return invalid(field, "invalid URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return invalid(field, "URL must have a scheme and host (https://example.com)")
	}
	return nil
}

func RequireValidEmail(field, value string) *ValidationError {
	if err := RequireNonEmpty(field, value); err != nil {
		return err
	}
	return checkTag(field, value, "email", "invalid email format")
}

func RequireValidPort(field string, value uint16) *ValidationError {
	return checkTag(field, value, "min=1", "port must be between 1 and 65535")
}

func RequireOneOf(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "must be one of %v, got %q", allowed, value)
}

func RequireMinLength(field, value string, minLength int) *ValidationError {
	if len(value) < minLength {
		return invalid(field, "must be at least %d characters, got %d", minLength, len(value))
	}
	return nil
}

func RequireGreaterThan(field string, value, threshold int) *ValidationError {
	if value <= threshold {
		return invalid(field, "must be greater than %d, got %d", threshold, value)
	}
	return nil
}

// WhenSet skips check for optional settings left empty.
func WhenSet(value string, check func() *ValidationError) *ValidationError {
	if value == "" {
		return nil
	}
	return check()
}

// CollectErrors drops the nil results. It returns nil when every check passed.
func CollectErrors(errs ...*ValidationError) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		if err != nil {
			out = append(out, *err)
		}
	}
	return out
}

// AsValidationErrors lets a sub-config's Validate error be combined with others in Validate.
func AsValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return errs
	}
	return ValidationErrors{{Field: "config", Message: err.Error()}}
}
