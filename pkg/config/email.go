package config

import (
	"time"

	"github.com/tendant/simple-useradmin/pkg/notification"
)

// EmailConfig holds SMTP configuration for "account created" notices
type EmailConfig struct {
	Enabled            bool          `env:"EMAIL_ENABLED" env-default:"false"`
	Host               string        `env:"EMAIL_HOST" env-default:"localhost"`
	Port               uint16        `env:"EMAIL_PORT" env-default:"1025"`
	Username           string        `env:"EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password           string        `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From               string        `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS                bool          `env:"EMAIL_TLS" env-default:"false"`
	InsecureSkipVerify bool          `env:"EMAIL_INSECURE_SKIP_VERIFY" env-default:"false"`
	Timeout            time.Duration `env:"EMAIL_TIMEOUT" env-default:"10s"`
	// BaseURL is the console link placed in notices
	BaseURL string `env:"EMAIL_BASE_URL" env-default:"http://localhost:3000"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:               e.Host,
		Port:               int(e.Port),
		Username:           e.Username,
		Password:           e.Password,
		From:               e.From,
		TLS:                e.TLS,
		InsecureSkipVerify: e.InsecureSkipVerify,
		Timeout:            e.Timeout,
	}
}

func (e EmailConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("EMAIL_HOST", e.Host),
			RequireValidPort("EMAIL_PORT", e.Port),
			RequireValidEmail("EMAIL_FROM", e.From),
			RequireValidURL("EMAIL_BASE_URL", e.BaseURL),
		)
	})
}
