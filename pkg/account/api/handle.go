package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/credential"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// Handle serves the admin user API on top of an AccountService.
type Handle struct {
	service   *account.AccountService
	generator credential.Generator
	issuer    string
}

// HandleOption configures a Handle
type HandleOption func(*Handle)

// WithGenerator replaces the password generator used by POST /generate-password
func WithGenerator(g credential.Generator) HandleOption {
	return func(h *Handle) {
		h.generator = g
	}
}

// WithIssuer makes the API reject tokens whose "iss" claim differs from issuer
func WithIssuer(issuer string) HandleOption {
	return func(h *Handle) {
		h.issuer = issuer
	}
}

func NewHandle(service *account.AccountService, opts ...HandleOption) Handle {
	h := Handle{
		service:   service,
		generator: credential.RandomGenerator{},
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Routes builds the router mounted at /api/admin/users. writeLimiter, when set, guards the
// mutating routes. It runs before the actor is resolved so requests without a valid session are
// limited per client IP.
func (h Handle) Routes(tokenAuth *jwtauth.JWTAuth, writeLimiter func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokenAuth))

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware(h.service, h.issuer))
		r.Get("/", h.ListAccounts)
		r.Get("/count", h.CountAccounts)
		r.Get("/me", h.GetMe)
		r.Get("/quota", h.GetQuota)
		r.Get("/roles", h.GetRoles)
		r.Get("/{id}", h.GetAccount)
	})

	r.Group(func(r chi.Router) {
		if writeLimiter != nil {
			r.Use(writeLimiter)
		}
		r.Use(ActorMiddleware(h.service, h.issuer))
		r.Post("/", h.CreateAccount)
		r.Post("/generate-password", h.GeneratePassword)
		r.Put("/quota", h.SetQuota)
		r.Put("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
		r.Put("/{id}/password", h.SetPassword)
	})
	return r
}

// List accounts of the actor's organization
// (GET /)
func (h Handle) ListAccounts(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	accounts, err := h.service.List(r.Context(), actor.Principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, toAccountResponse(a))
	}
	render.JSON(w, r, response)
}

// (GET /count)
func (h Handle) CountAccounts(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	count, err := h.service.Count(r.Context(), actor.Principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, CountResponse{Count: count})
}

// The actor's own account
// (GET /me)
func (h Handle) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	self, err := h.service.Load(r.Context(), actor.Principal, actor.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponse(self))
}

// (GET /quota)
func (h Handle) GetQuota(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	snapshot, err := h.service.QuotaSnapshot(r.Context(), actor.Principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, QuotaResponse{
		Snapshot:  snapshot,
		CanCreate: quota.CanCreate(snapshot),
		Remaining: quota.Remaining(snapshot),
	})
}

// Lifts or restores the organization's account limit; super admins only
// (PUT /quota)
func (h Handle) SetQuota(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	var request SetQuotaRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		writeError(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if err := h.service.SetQuotaUnlimited(r.Context(), actor, request.Unlimited); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetQuota(w, r)
}

// Roles the actor may assign; ?current=<role> reports whether that role is editable
// (GET /roles)
func (h Handle) GetRoles(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	if current := r.URL.Query().Get("current"); current != "" {
		currentRole, err := role.Parse(current)
		if err != nil {
			writeError(w, r, apperrors.InvalidInput("current", "unknown role"))
			return
		}
		render.JSON(w, r, toSelectionResponse(role.Selection(actor.Role, currentRole)))
		return
	}
	render.JSON(w, r, toSelectionResponse(role.RoleSelection{
		Choices:  role.VisibleRoleChoices(actor.Role),
		Editable: role.CanAdminister(actor.Role),
	}))
}

// (GET /{id})
func (h Handle) GetAccount(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Load(r.Context(), actor.Principal, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, AccountDetailResponse{
		AccountResponse: toAccountResponse(a),
		RoleSelection:   toSelectionResponse(role.Selection(actor.Role, a.Role)),
	})
}

// (POST /)
func (h Handle) CreateAccount(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	var request CreateAccountRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		writeError(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	var params account.CreateAccountParams
	if err := copier.Copy(&params, &request); err != nil {
		writeError(w, r, apperrors.InternalWrap(err, "failed to map request"))
		return
	}
	params.OrganizationID = actor.OrganizationID

	created, err := h.service.Create(r.Context(), actor, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAccountResponse(created))
}

// (PUT /{id})
func (h Handle) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var request UpdateAccountRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		writeError(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	next := account.Account{ID: id, OrganizationID: actor.OrganizationID}
	if err := copier.Copy(&next, &request); err != nil {
		writeError(w, r, apperrors.InternalWrap(err, "failed to map request"))
		return
	}

	updated, err := h.service.Update(r.Context(), actor, next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponse(updated))
}

// (DELETE /{id})
func (h Handle) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// (PUT /{id}/password)
func (h Handle) SetPassword(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var request SetPasswordRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		writeError(w, r, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if err := h.service.SetPassword(r.Context(), actor, id, request.Password); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// A fresh service-account credential; nothing is stored
// (POST /generate-password)
func (h Handle) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)
	if !role.CanAdminister(actor.Role) {
		writeError(w, r, apperrors.PermissionDenied("actor may not administer accounts"))
		return
	}
	password, err := h.generator.Generate(credential.ServiceAccountLength)
	if err != nil {
		writeError(w, r, apperrors.InternalWrap(err, "failed to generate password"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, GeneratedPasswordResponse{Password: password, Length: len(password)})
}

func mustActor(r *http.Request) account.Actor {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		// Routes always install ActorMiddleware.
		panic("api: handler reached without ActorMiddleware")
	}
	return actor
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperrors.InvalidInput("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func toAccountResponse(a account.Account) AccountResponse {
	var response AccountResponse
	if err := copier.Copy(&response, &a); err != nil {
		slog.Error("Failed to map account", "account_id", a.ID, "err", err)
	}
	return response
}

func toSelectionResponse(sel role.RoleSelection) RoleSelectionResponse {
	choices := sel.Choices
	if choices == nil {
		choices = []role.Role{}
	}
	return RoleSelectionResponse{Choices: choices, Editable: sel.Editable}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	response := ErrorResponse{Code: string(apperrors.ErrCodeInternal), Message: "internal error"}
	status := http.StatusInternalServerError

	if errors.As(err, &appErr) && appErr.Code != apperrors.ErrCodeInternal {
		response = ErrorResponse{Code: string(appErr.Code), Message: appErr.Message, Details: appErr.Details}
		status = appErr.HTTPStatusCode()
	} else {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, response)
}
