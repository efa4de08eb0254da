package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/credential"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/notification"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
	"github.com/tendant/simple-useradmin/pkg/settings"
)

const maxEmailLength = 254

// Notifier delivers notices about account lifecycle events.
type Notifier interface {
	Send(noticeType notification.NoticeType, data notification.NotificationData) error
}

// MetricsRecorder observes account operations.
type MetricsRecorder interface {
	RecordAccountOperation(operation, outcome string, duration time.Duration)
}

// AccountService is the only component that touches the account repository.
// It enforces role authority, the organization quota and credential rules.
type AccountService struct {
	repo        AccountRepository
	settings    settings.Repository
	quotaConfig quota.Config
	notifier    Notifier
	metrics     MetricsRecorder
	validate    *validator.Validate
	generator   credential.Generator
}

// Option configures an AccountService
type Option func(*AccountService)

// WithQuotaConfig sets the seat limits
func WithQuotaConfig(cfg quota.Config) Option {
	return func(s *AccountService) {
		s.quotaConfig = cfg
	}
}

// WithNotifier sets the notifier used for "account created" notices
func WithNotifier(n Notifier) Option {
	return func(s *AccountService) {
		s.notifier = n
	}
}

// WithMetrics sets the operation recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *AccountService) {
		s.metrics = m
	}
}

// WithValidator replaces the default validator instance
func WithValidator(v *validator.Validate) Option {
	return func(s *AccountService) {
		s.validate = v
	}
}

// WithPasswordGenerator replaces the generator used for bootstrap passwords
func WithPasswordGenerator(g credential.Generator) Option {
	return func(s *AccountService) {
		s.generator = g
	}
}

// NewAccountService creates a new account service
func NewAccountService(repo AccountRepository, settingsRepo settings.Repository, opts ...Option) *AccountService {
	s := &AccountService{
		repo:        repo,
		settings:    settingsRepo,
		quotaConfig: quota.DefaultConfig(),
		validate:    validator.New(),
		generator:   credential.RandomGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuotaConfig returns the seat limits in effect.
func (s *AccountService) QuotaConfig() quota.Config {
	return s.quotaConfig
}

// ResolveActor looks up the principal's own account to learn its role.
func (s *AccountService) ResolveActor(ctx context.Context, p Principal) (Actor, error) {
	if p.IsZero() {
		return Actor{}, apperrors.Unauthenticated("no session")
	}
	self, err := s.repo.GetAccount(ctx, p.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		return Actor{}, apperrors.Unauthenticated("session account no longer exists")
	}
	if err != nil {
		slog.Error("Failed to resolve actor", "account_id", p.AccountID, "err", err)
		return Actor{}, apperrors.InternalWrap(err, "failed to resolve actor")
	}
	if self.OrganizationID != p.OrganizationID {
		return Actor{}, apperrors.Unauthenticated("session organization mismatch")
	}
	return Actor{Principal: p, Role: self.Role}, nil
}

// Load returns one account of the principal's organization.
func (s *AccountService) Load(ctx context.Context, p Principal, id uuid.UUID) (Account, error) {
	if p.IsZero() {
		return Account{}, apperrors.Unauthenticated("no session")
	}
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, s.repoError(err, id)
	}
	if account.OrganizationID != p.OrganizationID {
		return Account{}, apperrors.PermissionDenied("account belongs to another organization")
	}
	return account, nil
}

// List returns every account of the principal's organization.
func (s *AccountService) List(ctx context.Context, p Principal) ([]Account, error) {
	if p.IsZero() {
		return nil, apperrors.Unauthenticated("no session")
	}
	accounts, err := s.repo.FindAccounts(ctx, p.OrganizationID)
	if err != nil {
		slog.Error("Failed to list accounts", "organization_id", p.OrganizationID, "err", err)
		return nil, apperrors.InternalWrap(err, "failed to list accounts")
	}
	return accounts, nil
}

// Count returns the number of accounts in the principal's organization.
func (s *AccountService) Count(ctx context.Context, p Principal) (int, error) {
	if p.IsZero() {
		return 0, apperrors.Unauthenticated("no session")
	}
	count, err := s.repo.CountAccounts(ctx, p.OrganizationID)
	if err != nil {
		slog.Error("Failed to count accounts", "organization_id", p.OrganizationID, "err", err)
		return 0, apperrors.InternalWrap(err, "failed to count accounts")
	}
	return count, nil
}

// QuotaFlag reads the organization flag that lifts the seat limit.
func (s *AccountService) QuotaFlag(ctx context.Context, p Principal) (string, error) {
	if p.IsZero() {
		return "", apperrors.Unauthenticated("no session")
	}
	value, err := s.settings.GetFlag(ctx, p.OrganizationID, s.quotaConfig.FlagKey)
	if err != nil {
		slog.Error("Failed to read quota flag", "organization_id", p.OrganizationID, "err", err)
		return "", apperrors.InternalWrap(err, "failed to read quota flag")
	}
	return value, nil
}

// SetQuotaUnlimited turns the organization's seat-limit lift on or off. Only super admins may
// change it.
func (s *AccountService) SetQuotaUnlimited(ctx context.Context, actor Actor, unlimited bool) (err error) {
	defer s.observe("set_quota_flag", time.Now(), &err)

	if actor.Role != role.SuperAdmin {
		return apperrors.PermissionDenied("only super admins may change the account limit")
	}
	value := ""
	if unlimited {
		value = s.quotaConfig.FlagEnabledValue
	}
	if err := s.settings.SetFlag(ctx, actor.OrganizationID, s.quotaConfig.FlagKey, value); err != nil {
		slog.Error("Failed to write quota flag", "organization_id", actor.OrganizationID, "err", err)
		return apperrors.InternalWrap(err, "failed to write quota flag")
	}

	slog.Info("Account limit flag changed", "organization_id", actor.OrganizationID,
		"unlimited", unlimited, "actor_id", actor.AccountID)
	return nil
}

// QuotaSnapshot computes the organization's seat usage from fresh reads.
func (s *AccountService) QuotaSnapshot(ctx context.Context, p Principal) (quota.Snapshot, error) {
	flag, err := s.QuotaFlag(ctx, p)
	if err != nil {
		return quota.Snapshot{}, err
	}
	count, err := s.Count(ctx, p)
	if err != nil {
		return quota.Snapshot{}, err
	}
	return quota.Resolve(s.quotaConfig, flag, count), nil
}

// Create adds an account to the actor's organization.
// Human accounts start with RequiresPasswordSetup and receive an "account created" notice.
func (s *AccountService) Create(ctx context.Context, actor Actor, params CreateAccountParams) (account Account, err error) {
	defer s.observe("create", time.Now(), &err)

	if !role.CanAdminister(actor.Role) {
		return Account{}, apperrors.PermissionDenied("actor may not administer accounts")
	}
	if params.OrganizationID == uuid.Nil {
		params.OrganizationID = actor.OrganizationID
	}
	if params.OrganizationID != actor.OrganizationID {
		return Account{}, apperrors.PermissionDenied("cannot create accounts in another organization")
	}
	if !params.Role.Valid() {
		return Account{}, apperrors.InvalidInput("role", "unknown role")
	}
	email, err := s.normalizeEmail(params.Email, params.Role)
	if err != nil {
		return Account{}, err
	}
	if !role.CanAssign(actor.Role, params.Role) {
		return Account{}, apperrors.PermissionDenied("role exceeds actor authority").
			WithDetail("role", params.Role.String())
	}

	snapshot, err := s.QuotaSnapshot(ctx, actor.Principal)
	if err != nil {
		return Account{}, err
	}
	if !quota.CanCreate(snapshot) {
		return Account{}, apperrors.QuotaExceeded(snapshot.CurrentCount, snapshot.Maximum)
	}

	if err := s.ensureEmailAvailable(ctx, params.OrganizationID, email, uuid.Nil); err != nil {
		return Account{}, err
	}

	account, err = s.repo.CreateAccount(ctx, Account{
		OrganizationID:        params.OrganizationID,
		Email:                 email,
		Role:                  params.Role,
		RequiresPasswordSetup: !role.IsServiceAccount(params.Role),
	})
	if err != nil {
		return Account{}, s.repoError(err, uuid.Nil)
	}

	slog.Info("Account created", "account_id", account.ID, "organization_id", account.OrganizationID,
		"role", account.Role.String(), "actor_id", actor.AccountID)

	if !account.IsServiceAccount() {
		s.notify(notification.AccountCreated, account)
	}
	return account, nil
}

// Update changes email and role of an existing account. The actor must be able to assign both
// the stored role and the new one. Quota is not consulted.
func (s *AccountService) Update(ctx context.Context, actor Actor, next Account) (account Account, err error) {
	defer s.observe("update", time.Now(), &err)

	if !role.CanAdminister(actor.Role) {
		return Account{}, apperrors.PermissionDenied("actor may not administer accounts")
	}
	if next.ID == uuid.Nil {
		return Account{}, apperrors.InvalidInput("id", "required")
	}
	if !next.Role.Valid() {
		return Account{}, apperrors.InvalidInput("role", "unknown role")
	}
	email, err := s.normalizeEmail(next.Email, next.Role)
	if err != nil {
		return Account{}, err
	}
	if !role.CanAssign(actor.Role, next.Role) {
		return Account{}, apperrors.PermissionDenied("role exceeds actor authority").
			WithDetail("role", next.Role.String())
	}

	stored, err := s.authorizedTarget(ctx, actor, next.ID)
	if err != nil {
		return Account{}, err
	}
	if err := s.ensureEmailAvailable(ctx, stored.OrganizationID, email, stored.ID); err != nil {
		return Account{}, err
	}

	stored.Email = email
	stored.Role = next.Role
	account, err = s.repo.UpdateAccount(ctx, stored)
	if err != nil {
		return Account{}, s.repoError(err, stored.ID)
	}

	slog.Info("Account updated", "account_id", account.ID, "role", account.Role.String(), "actor_id", actor.AccountID)
	return account, nil
}

// SetPassword stores a new password for an account. The minimum length depends on the
// account category.
func (s *AccountService) SetPassword(ctx context.Context, actor Actor, id uuid.UUID, plaintext string) (err error) {
	defer s.observe("set_password", time.Now(), &err)

	if !role.CanAdminister(actor.Role) {
		return apperrors.PermissionDenied("actor may not administer accounts")
	}
	stored, err := s.authorizedTarget(ctx, actor, id)
	if err != nil {
		return err
	}

	serviceAccount := stored.IsServiceAccount()
	if !credential.Acceptable(plaintext, serviceAccount) {
		return apperrors.Newf(apperrors.ErrCodeInvalidCredential,
			"password must be at least %d characters", credential.MinLength(serviceAccount)).
			WithDetail("min_length", credential.MinLength(serviceAccount))
	}

	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, hash); err != nil {
		return s.repoError(err, id)
	}

	slog.Info("Account password set", "account_id", id, "actor_id", actor.AccountID)
	if !serviceAccount && id != actor.AccountID {
		s.notify(notification.PasswordSetByAdmin, stored)
	}
	return nil
}

// Delete removes an account. Unknown ids fail with NotFound.
func (s *AccountService) Delete(ctx context.Context, actor Actor, id uuid.UUID) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if !role.CanAdminister(actor.Role) {
		return apperrors.PermissionDenied("actor may not administer accounts")
	}
	if id == actor.AccountID {
		return apperrors.PermissionDenied("cannot delete own account")
	}
	if _, err := s.authorizedTarget(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return s.repoError(err, id)
	}

	slog.Info("Account deleted", "account_id", id, "actor_id", actor.AccountID)
	return nil
}

// authorizedTarget loads an account the actor is allowed to modify.
func (s *AccountService) authorizedTarget(ctx context.Context, actor Actor, id uuid.UUID) (Account, error) {
	stored, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, s.repoError(err, id)
	}
	if stored.OrganizationID != actor.OrganizationID {
		return Account{}, apperrors.PermissionDenied("account belongs to another organization")
	}
	if !role.CanAssign(actor.Role, stored.Role) {
		return Account{}, apperrors.PermissionDenied("account role exceeds actor authority").
			WithDetail("role", stored.Role.String())
	}
	return stored, nil
}

func (s *AccountService) normalizeEmail(raw string, r role.Role) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.InvalidInput("email", "required")
	}
	if len(email) > maxEmailLength {
		return "", apperrors.InvalidInput("email", "too long")
	}
	if role.IsServiceAccount(r) {
		// Service-account identifiers are free-form but become part of the username.
		if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
			return "", apperrors.InvalidInput("email", "must not contain whitespace")
		}
		return email, nil
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", apperrors.InvalidInput("email", "must be a valid address")
	}
	return email, nil
}

func (s *AccountService) ensureEmailAvailable(ctx context.Context, organizationID uuid.UUID, email string, self uuid.UUID) error {
	existing, err := s.repo.FindAccountByEmail(ctx, organizationID, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		slog.Error("Failed to check email uniqueness", "organization_id", organizationID, "err", err)
		return apperrors.InternalWrap(err, "failed to check email")
	}
	if existing.ID != self {
		return apperrors.InvalidInput("email", "already in use")
	}
	return nil
}

func (s *AccountService) repoError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return apperrors.NotFound("account", id.String())
	case errors.Is(err, ErrDuplicateEmail):
		return apperrors.InvalidInput("email", "already in use")
	default:
		slog.Error("Account repository failure", "account_id", id, "err", err)
		return apperrors.InternalWrap(err, "account storage failure")
	}
}

// notify is best effort; delivery failures never fail the operation.
func (s *AccountService) notify(noticeType notification.NoticeType, account Account) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(noticeType, notification.NotificationData{
		To:   account.Email,
		Data: map[string]string{"Email": account.Email},
	})
	if err != nil {
		slog.Warn("Failed to send notice", "notice", noticeType, "account_id", account.ID, "err", err)
	}
}

func (s *AccountService) observe(operation string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if *err != nil {
		outcome = string(apperrors.GetCode(*err))
	}
	s.metrics.RecordAccountOperation(operation, outcome, time.Since(start))
}
