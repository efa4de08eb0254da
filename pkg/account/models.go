package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/role"
)

// Principal identifies the signed-in operator as supplied by the session boundary.
type Principal struct {
	AccountID      uuid.UUID `json:"account_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// IsZero reports whether no session identity is present.
func (p Principal) IsZero() bool {
	return p.AccountID == uuid.Nil || p.OrganizationID == uuid.Nil
}

// Actor is a Principal with its role resolved from storage.
type Actor struct {
	Principal
	Role role.Role `json:"role"`
}

// Account is a user or service account inside an organization.
type Account struct {
	ID                    uuid.UUID `json:"id"`
	OrganizationID        uuid.UUID `json:"organization_id"`
	Email                 string    `json:"email"`
	Role                  role.Role `json:"role"`
	RequiresPasswordSetup bool      `json:"requires_password_setup"`
	CreatedAt             time.Time `json:"created_at"`
	LastModifiedAt        time.Time `json:"last_modified_at"`
}

// IsNew reports whether the account has not been persisted yet.
func (a Account) IsNew() bool {
	return a.ID == uuid.Nil
}

// IsServiceAccount reports whether the account holds a service-account role.
func (a Account) IsServiceAccount() bool {
	return role.IsServiceAccount(a.Role)
}

// Username is the login name: "<orgId>_<email>" for service accounts, the email otherwise.
func (a Account) Username() string {
	if a.IsServiceAccount() {
		return a.OrganizationID.String() + "_" + a.Email
	}
	return a.Email
}

// CreateAccountParams contains parameters for creating a new account
type CreateAccountParams struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	Role           role.Role `json:"role"`
}
