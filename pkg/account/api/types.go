package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// CreateAccountRequest is the body of POST /. A missing role means role.User.
type CreateAccountRequest struct {
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
}

// UpdateAccountRequest is the body of PUT /{id}.
type UpdateAccountRequest struct {
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
}

// SetPasswordRequest is the body of PUT /{id}/password.
type SetPasswordRequest struct {
	Password string `json:"password"`
}

type AccountResponse struct {
	ID                    uuid.UUID `json:"id"`
	OrganizationID        uuid.UUID `json:"organization_id"`
	Email                 string    `json:"email"`
	Username              string    `json:"username"`
	Role                  role.Role `json:"role"`
	IsServiceAccount      bool      `json:"is_service_account"`
	RequiresPasswordSetup bool      `json:"requires_password_setup"`
	CreatedAt             time.Time `json:"created_at"`
	LastModifiedAt        time.Time `json:"last_modified_at"`
}

type RoleSelectionResponse struct {
	Choices  []role.Role `json:"choices"`
	Editable bool        `json:"editable"`
}

// AccountDetailResponse adds what the actor may do with the account's role.
type AccountDetailResponse struct {
	AccountResponse
	RoleSelection RoleSelectionResponse `json:"role_selection"`
}

type QuotaResponse struct {
	quota.Snapshot
	CanCreate bool `json:"can_create"`
	Remaining int  `json:"remaining"`
}

type SetQuotaRequest struct {
	Unlimited bool `json:"unlimited"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type GeneratedPasswordResponse struct {
	Password string `json:"password"`
	Length   int    `json:"length"`
}

type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
