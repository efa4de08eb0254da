package config

import "github.com/tendant/simple-useradmin/pkg/quota"

// QuotaConfig sizes the per-organization seat limit.
type QuotaConfig struct {
	DefaultMaximum   int    `env:"QUOTA_DEFAULT_MAX" env-default:"10"`
	UnlimitedMaximum int    `env:"QUOTA_UNLIMITED_MAX" env-default:"1000000"`
	FlagKey          string `env:"QUOTA_FLAG_KEY" env-default:"feature_no_user_limit"`
	FlagEnabledValue string `env:"QUOTA_FLAG_VALUE" env-default:"1"`
}

func (q QuotaConfig) ToQuotaConfig() quota.Config {
	return quota.Config{
		DefaultMaximum:   q.DefaultMaximum,
		UnlimitedMaximum: q.UnlimitedMaximum,
		FlagKey:          q.FlagKey,
		FlagEnabledValue: q.FlagEnabledValue,
	}
}

func (q QuotaConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonNegative("QUOTA_DEFAULT_MAX", q.DefaultMaximum),
			RequireGreaterThan("QUOTA_UNLIMITED_MAX", q.UnlimitedMaximum, q.DefaultMaximum-1),
			WhenSet(q.FlagKey, func() *ValidationError {
				return RequireNonEmpty("QUOTA_FLAG_VALUE", q.FlagEnabledValue)
			}),
		)
	})
}
