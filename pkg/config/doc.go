// Package config holds the environment-backed configuration of the user administration
// service.
//
// Each sub-config carries `env` tags read by cleanenv and a Validate method built from the
// validation helpers in this package:
//
//	var cfg struct {
//		Database config.DatabaseConfig
//		Quota    config.QuotaConfig
//	}
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//		return err
//	}
//	if err := config.Validate(
//		func() config.ValidationErrors { return config.AsValidationErrors(cfg.Database.Validate()) },
//	); err != nil {
//		return err
//	}
//
// Durations such as ACCESS_TOKEN_EXPIRY accept ISO8601 ("PT1H") as well as Go syntax ("1h").
package config
