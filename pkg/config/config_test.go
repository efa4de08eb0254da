package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
)

type testConfig struct {
	Database    DatabaseConfig
	Persistence PersistenceConfig
	Quota       QuotaConfig
	JWT         JWTConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig
	Workflow    WorkflowConfig
}

func TestDefaultsFromEnv(t *testing.T) {
	var cfg testConfig
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.Equal(t, quota.DefaultConfig(), cfg.Quota.ToQuotaConfig())
	assert.Equal(t, PersistencePostgres, cfg.Persistence.Type)
	assert.Equal(t, 5*time.Second, cfg.Persistence.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Workflow.CopyConfirmWindow)
	assert.False(t, cfg.Email.Enabled)

	expiry, err := cfg.JWT.ParseTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, expiry)

	for _, v := range []interface{ Validate() error }{
		cfg.Database, cfg.Persistence, cfg.Quota, cfg.Email, cfg.RateLimit, cfg.Workflow,
	} {
		assert.NoError(t, v.Validate())
	}

	assert.Equal(t, DefaultJWTSecret, cfg.JWT.Secret)
	errs := AsValidationErrors(cfg.JWT.Validate())
	require.Len(t, errs, 1, "the built-in secret must be replaced")
	assert.Equal(t, "JWT_SECRET", errs[0].Field)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUOTA_DEFAULT_MAX", "25")
	t.Setenv("PERSISTENCE_TYPE", "file")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("RATELIMIT_PER_USER_BURST", "5")

	var cfg testConfig
	require.NoError(t, cleanenv.ReadEnv(&cfg))
	assert.Equal(t, 25, cfg.Quota.ToQuotaConfig().DefaultMaximum)
	assert.Equal(t, PersistenceFile, cfg.Persistence.Type)
	assert.False(t, cfg.Persistence.UsesPostgres())
	assert.Equal(t, 5, cfg.RateLimit.ToMiddlewareConfig().PerUserBurst)

	expiry, err := cfg.JWT.ParseTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, expiry)
}

func TestValidationFailures(t *testing.T) {
	err := PersistenceConfig{Type: "mongo", Timeout: 0}.Validate()
	require.Error(t, err)
	errs := AsValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "PERSISTENCE_TYPE", errs[0].Field)
	assert.Equal(t, "PERSISTENCE_TIMEOUT", errs[1].Field)

	assert.Error(t, JWTConfig{Secret: "short", TokenExpiry: "PT1H"}.Validate())
	assert.Error(t, JWTConfig{Secret: "long-enough-secret-value", Issuer: "useradmin", TokenExpiry: "soon"}.Validate())
	assert.Error(t, JWTConfig{Secret: "long-enough-secret-value", TokenExpiry: "PT1H"}.Validate())
	assert.NoError(t, JWTConfig{Secret: "long-enough-secret-value", Issuer: "useradmin", TokenExpiry: "PT1H"}.Validate())
	assert.Error(t, QuotaConfig{DefaultMaximum: 10, UnlimitedMaximum: 5}.Validate())
	assert.Error(t, EmailConfig{Enabled: true, Host: "smtp", Port: 25, From: "not-an-email", BaseURL: "http://x"}.Validate())
	assert.NoError(t, EmailConfig{Enabled: false, From: "not-an-email"}.Validate())
	assert.Error(t, RateLimitConfig{Enabled: true, PerUserEnabled: true, BucketTTL: time.Hour}.Validate())
	assert.Error(t, WorkflowConfig{}.Validate())
}

func TestValidateCombines(t *testing.T) {
	err := Validate(
		func() ValidationErrors { return AsValidationErrors(WorkflowConfig{}.Validate()) },
		func() ValidationErrors { return AsValidationErrors(DatabaseConfig{}.Validate()) },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY_CONFIRM_WINDOW")
	assert.Contains(t, err.Error(), "IDM_PG_HOST")
	assert.Nil(t, AsValidationErrors(nil))
}

func TestToDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Database: "accounts", User: "u", Password: "p", Schema: "admin"}
	assert.Equal(t, "postgres://u:p@db:5433/accounts?sslmode=disable&search_path=admin,public", d.ToDatabaseURL())
}

func TestBootstrapConfig(t *testing.T) {
	assert.NoError(t, BootstrapConfig{}.Validate(), "disabled bootstrap needs nothing")

	cfg := BootstrapConfig{OrganizationID: uuid.NewString(), AdminEmail: "root@example.com", AdminRole: "super_admin"}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Enabled())
	assert.Equal(t, role.SuperAdmin, cfg.Role())

	cfg.AdminRole = "service_account_read_write"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, role.OrgAdmin, BootstrapConfig{AdminRole: "nonsense"}.Role())

	assert.Error(t, BootstrapConfig{OrganizationID: "not-a-uuid", AdminEmail: "root@example.com", AdminRole: "org_admin"}.Validate())
	assert.Error(t, BootstrapConfig{OrganizationID: uuid.NewString(), AdminEmail: "not an email", AdminRole: "org_admin"}.Validate())
}
