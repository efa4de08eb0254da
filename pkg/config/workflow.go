package config

import "time"

// WorkflowConfig tunes interactive editing sessions.
type WorkflowConfig struct {
	CopyConfirmWindow time.Duration `env:"COPY_CONFIRM_WINDOW" env-default:"2s"`
}

func (w WorkflowConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(RequirePositiveDuration("COPY_CONFIRM_WINDOW", w.CopyConfirmWindow))
	})
}
