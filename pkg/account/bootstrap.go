package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/credential"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// BootstrapParams describes the first administrator of an organization.
type BootstrapParams struct {
	OrganizationID uuid.UUID
	Email          string
	// Password is generated when empty
	Password string
	// Role defaults to role.OrgAdmin
	Role role.Role
}

// BootstrapOutcome reports what BootstrapAdmin did.
type BootstrapOutcome struct {
	Account Account
	Created bool
	// GeneratedPassword is set only when the service generated the password.
	GeneratedPassword string
	// ConfiguredPasswordActive is true when the organization was already seeded and the
	// configured password still opens the admin account.
	ConfiguredPasswordActive bool
}

// BootstrapAdmin creates the first administrator of an empty organization. There is no actor,
// so organizations that already have accounts are never touched.
func (s *AccountService) BootstrapAdmin(ctx context.Context, params BootstrapParams) (outcome BootstrapOutcome, err error) {
	defer s.observe("bootstrap", time.Now(), &err)

	if params.OrganizationID == uuid.Nil {
		return BootstrapOutcome{}, apperrors.InvalidInput("organization_id", "required")
	}
	if params.Role == role.User {
		params.Role = role.OrgAdmin
	}
	if !params.Role.Valid() || role.IsServiceAccount(params.Role) || !role.CanAdminister(params.Role) {
		return BootstrapOutcome{}, apperrors.InvalidInput("role", "must be a human administrator role")
	}
	email, err := s.normalizeEmail(params.Email, params.Role)
	if err != nil {
		return BootstrapOutcome{}, err
	}

	count, err := s.repo.CountAccounts(ctx, params.OrganizationID)
	if err != nil {
		slog.Error("Failed to count accounts", "organization_id", params.OrganizationID, "err", err)
		return BootstrapOutcome{}, apperrors.InternalWrap(err, "failed to count accounts")
	}
	if count > 0 {
		outcome.ConfiguredPasswordActive = s.configuredPasswordActive(ctx, params.OrganizationID, email, params.Password)
		return outcome, nil
	}

	password := params.Password
	if password == "" {
		if password, err = s.generator.Generate(credential.DefaultLength); err != nil {
			return BootstrapOutcome{}, apperrors.InternalWrap(err, "failed to generate password")
		}
		outcome.GeneratedPassword = password
	}
	if !credential.Acceptable(password, false) {
		return BootstrapOutcome{}, apperrors.Newf(apperrors.ErrCodeInvalidCredential,
			"password must be at least %d characters", credential.MinLength(false))
	}
	hash, err := HashPassword(password)
	if err != nil {
		return BootstrapOutcome{}, err
	}
	if err := s.ensureEmailAvailable(ctx, params.OrganizationID, email, uuid.Nil); err != nil {
		return BootstrapOutcome{}, err
	}

	created, err := s.repo.CreateAccount(ctx, Account{
		OrganizationID:        params.OrganizationID,
		Email:                 email,
		Role:                  params.Role,
		RequiresPasswordSetup: true,
	})
	if err != nil {
		return BootstrapOutcome{}, s.repoError(err, uuid.Nil)
	}
	if err := s.repo.SetPassword(ctx, created.ID, hash); err != nil {
		if delErr := s.repo.DeleteAccount(ctx, created.ID); delErr != nil {
			slog.Error("Failed to roll back bootstrap account", "account_id", created.ID, "err", delErr)
		}
		return BootstrapOutcome{}, s.repoError(err, created.ID)
	}

	slog.Info("Organization admin bootstrapped", "organization_id", created.OrganizationID,
		"account_id", created.ID, "role", created.Role.String())
	outcome.Account = created
	outcome.Created = true
	return outcome, nil
}

func (s *AccountService) configuredPasswordActive(ctx context.Context, organizationID uuid.UUID, email, password string) bool {
	if password == "" {
		return false
	}
	existing, err := s.repo.FindAccountByEmail(ctx, organizationID, email)
	if err != nil {
		return false
	}
	hash, err := s.repo.GetPasswordHash(ctx, existing.ID)
	if err != nil {
		slog.Warn("Failed to read admin password hash", "account_id", existing.ID, "err", err)
		return false
	}
	return CheckPassword(hash, password)
}
