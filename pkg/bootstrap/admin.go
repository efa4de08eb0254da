// Package bootstrap seeds the first administrator of an organization so the admin API has an
// actor to work with.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// OrgAdminBootstrapConfig describes the administrator to create
type OrgAdminBootstrapConfig struct {
	OrganizationID uuid.UUID
	Email          string
	// Password is generated when empty
	Password string
	// Role defaults to role.OrgAdmin
	Role role.Role

	Service *account.AccountService
}

// OrgAdminBootstrapResult contains the result of a bootstrap run
type OrgAdminBootstrapResult struct {
	AccountID      uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	Role           role.Role
	Password       string // Only populated if generated
	Created        bool   // false when the organization already had accounts

	PasswordFromEnv bool
	// PasswordStillActive means the configured password still opens the seeded account.
	PasswordStillActive bool
}

// BootstrapOrgAdmin creates the first administrator of an empty organization. Organizations
// that already have accounts are left alone.
func BootstrapOrgAdmin(ctx context.Context, cfg OrgAdminBootstrapConfig) (*OrgAdminBootstrapResult, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("invalid bootstrap configuration: account service is required")
	}

	outcome, err := cfg.Service.BootstrapAdmin(ctx, account.BootstrapParams{
		OrganizationID: cfg.OrganizationID,
		Email:          cfg.Email,
		Password:       cfg.Password,
		Role:           cfg.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap organization admin: %w", err)
	}

	result := &OrgAdminBootstrapResult{
		OrganizationID:      cfg.OrganizationID,
		PasswordFromEnv:     cfg.Password != "",
		PasswordStillActive: outcome.ConfiguredPasswordActive,
	}
	if !outcome.Created {
		slog.Info("Organization already has accounts - skipping admin bootstrap", "organization_id", cfg.OrganizationID)
		if result.PasswordStillActive {
			slog.Warn("BOOTSTRAP_ADMIN_PASSWORD still opens the admin account; change it and unset the variable",
				"organization_id", cfg.OrganizationID)
		}
		return result, nil
	}

	result.AccountID = outcome.Account.ID
	result.Email = outcome.Account.Email
	result.Role = outcome.Account.Role
	result.Password = outcome.GeneratedPassword
	result.Created = true
	return result, nil
}
