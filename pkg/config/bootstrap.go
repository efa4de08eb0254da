package config

import (
	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/role"
)

// BootstrapConfig names the organization whose first administrator is created at start-up.
// Nothing is bootstrapped while OrganizationID is empty.
type BootstrapConfig struct {
	OrganizationID string `env:"BOOTSTRAP_ORG_ID" env-default:""`
	AdminEmail     string `env:"BOOTSTRAP_ADMIN_EMAIL" env-default:""`
	AdminPassword  string `env:"BOOTSTRAP_ADMIN_PASSWORD" env-default:""`
	// AdminRole is org_admin or super_admin; only a super admin can lift the account limit.
	AdminRole string `env:"BOOTSTRAP_ADMIN_ROLE" env-default:"org_admin"`
}

func (b BootstrapConfig) Enabled() bool {
	return b.OrganizationID != ""
}

// Role returns the parsed AdminRole, falling back to org_admin.
func (b BootstrapConfig) Role() role.Role {
	r, err := role.Parse(b.AdminRole)
	if err != nil {
		return role.OrgAdmin
	}
	return r
}

func (b BootstrapConfig) Validate() error {
	if !b.Enabled() {
		return nil
	}
	return Validate(func() ValidationErrors {
		errs := CollectErrors(
			RequireValidEmail("BOOTSTRAP_ADMIN_EMAIL", b.AdminEmail),
			WhenSet(b.AdminPassword, func() *ValidationError {
				return RequireMinLength("BOOTSTRAP_ADMIN_PASSWORD", b.AdminPassword, 8)
			}),
			RequireOneOf("BOOTSTRAP_ADMIN_ROLE", b.AdminRole, []string{"org_admin", "super_admin"}),
		)
		if _, err := uuid.Parse(b.OrganizationID); err != nil {
			errs = append(errs, ValidationError{Field: "BOOTSTRAP_ORG_ID", Message: "must be a UUID"})
		}
		return errs
	})
}
