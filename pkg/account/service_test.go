package account

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-useradmin/pkg/credential"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/notification"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
	"github.com/tendant/simple-useradmin/pkg/settings"
)

type fixture struct {
	repo     *countingRepository
	settings *settings.InMemoryRepository
	service  *AccountService
	notifier *notification.MockNotifier
	metrics  *fakeMetrics
	org      uuid.UUID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManagerWithOptions("https://admin.example.com/login",
		notification.WithNotifier(notification.EmailSystem, mock),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	f := &fixture{
		repo:     newCountingRepository(NewInMemoryAccountRepository()),
		settings: settings.NewInMemoryRepository(),
		notifier: mock,
		metrics:  &fakeMetrics{},
		org:      uuid.New(),
	}
	opts = append([]Option{WithNotifier(nm), WithMetrics(f.metrics)}, opts...)
	f.service = NewAccountService(f.repo, f.settings, opts...)
	return f
}

// seed stores an account directly, bypassing the service checks.
func (f *fixture) seed(t *testing.T, org uuid.UUID, email string, r role.Role) Account {
	t.Helper()
	a, err := f.repo.AccountRepository.CreateAccount(context.Background(), Account{
		OrganizationID: org,
		Email:          email,
		Role:           r,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) actor(t *testing.T, r role.Role) Actor {
	t.Helper()
	self := f.seed(t, f.org, fmt.Sprintf("%s-%s@example.com", r, uuid.NewString()[:8]), r)
	actor, err := f.service.ResolveActor(context.Background(), Principal{AccountID: self.ID, OrganizationID: f.org})
	require.NoError(t, err)
	return actor
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.GetCode(err), "unexpected error: %v", err)
}

func TestResolveActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	self := f.seed(t, f.org, "admin@example.com", role.OrgAdmin)

	actor, err := f.service.ResolveActor(ctx, Principal{AccountID: self.ID, OrganizationID: f.org})
	require.NoError(t, err)
	assert.Equal(t, role.OrgAdmin, actor.Role)

	_, err = f.service.ResolveActor(ctx, Principal{})
	requireCode(t, err, apperrors.ErrCodeUnauthenticated)

	_, err = f.service.ResolveActor(ctx, Principal{AccountID: uuid.New(), OrganizationID: f.org})
	requireCode(t, err, apperrors.ErrCodeUnauthenticated)

	_, err = f.service.ResolveActor(ctx, Principal{AccountID: self.ID, OrganizationID: uuid.New()})
	requireCode(t, err, apperrors.ErrCodeUnauthenticated)
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)
	target := f.seed(t, f.org, "member@example.com", role.User)
	foreign := f.seed(t, uuid.New(), "other@example.com", role.User)

	got, err := f.service.Load(ctx, actor.Principal, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.Email, got.Email)

	_, err = f.service.Load(ctx, actor.Principal, uuid.New())
	requireCode(t, err, apperrors.ErrCodeNotFound)

	_, err = f.service.Load(ctx, actor.Principal, foreign.ID)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)
}

func TestCreateHumanAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.SpaceAdmin)

	created, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "  New.User@Example.com ", Role: role.User})
	require.NoError(t, err)
	assert.False(t, created.IsNew())
	assert.Equal(t, f.org, created.OrganizationID)
	assert.Equal(t, "new.user@example.com", created.Email)
	assert.True(t, created.RequiresPasswordSetup)
	assert.Equal(t, "new.user@example.com", created.Username())

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "new.user@example.com", sent[0].To)
}

func TestCreateServiceAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)

	created, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "ci-bot", Role: role.ServiceAccountReadWrite})
	require.NoError(t, err)
	assert.False(t, created.RequiresPasswordSetup)
	assert.Equal(t, f.org.String()+"_ci-bot", created.Username())
	assert.Empty(t, f.notifier.Sent(), "service accounts get no notice")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)

	tests := []struct {
		name   string
		params CreateAccountParams
		code   apperrors.ErrorCode
	}{
		{"empty email", CreateAccountParams{Email: "", Role: role.User}, apperrors.ErrCodeInvalidInput},
		{"malformed email", CreateAccountParams{Email: "not-an-email", Role: role.User}, apperrors.ErrCodeInvalidInput},
		{"service whitespace", CreateAccountParams{Email: "ci bot", Role: role.ServiceAccountReadOnly}, apperrors.ErrCodeInvalidInput},
		{"unknown role", CreateAccountParams{Email: "a@example.com", Role: role.Role(5)}, apperrors.ErrCodeInvalidInput},
		{"other org", CreateAccountParams{OrganizationID: uuid.New(), Email: "a@example.com", Role: role.User}, apperrors.ErrCodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.repo.reset()
			_, err := f.service.Create(ctx, actor, tt.params)
			requireCode(t, err, tt.code)
			assert.Zero(t, f.repo.count("CreateAccount"))
		})
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)
	f.seed(t, f.org, "taken@example.com", role.User)

	_, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "TAKEN@example.com", Role: role.User})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)

	// Same email in another organization is fine.
	f.seed(t, uuid.New(), "elsewhere@example.com", role.User)
	_, err = f.service.Create(ctx, actor, CreateAccountParams{Email: "elsewhere@example.com", Role: role.User})
	require.NoError(t, err)
}

func TestSpaceAdminCannotAssignOrgAdminBeforePersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.SpaceAdmin)
	target := f.seed(t, f.org, "member@example.com", role.User)
	f.repo.reset()

	_, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "boss@example.com", Role: role.OrgAdmin})
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	target.Role = role.OrgAdmin
	_, err = f.service.Update(ctx, actor, target)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	assert.Zero(t, f.repo.total(), "no persistence call may happen")
}

func TestCreateRoleAuthority(t *testing.T) {
	tests := []struct {
		actor  role.Role
		target role.Role
		code   apperrors.ErrorCode
	}{
		{role.User, role.User, apperrors.ErrCodePermissionDenied},
		{role.ServiceAccountReadOnly, role.User, apperrors.ErrCodePermissionDenied},
		{role.SpaceAdmin, role.ServiceAccountReadOnly, apperrors.ErrCodePermissionDenied},
		{role.OrgAdmin, role.SuperAdmin, apperrors.ErrCodePermissionDenied},
		{role.SpaceAdmin, role.SpaceAdmin, ""},
		{role.ServiceAccountReadWrite, role.OrgAdmin, ""},
		{role.SuperAdmin, role.SuperAdmin, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s assigns %s", tt.actor, tt.target), func(t *testing.T) {
			f := newFixture(t)
			actor := f.actor(t, tt.actor)
			email := "x@example.com"
			if role.IsServiceAccount(tt.target) {
				email = "x-bot"
			}
			_, err := f.service.Create(context.Background(), actor, CreateAccountParams{Email: email, Role: tt.target})
			if tt.code == "" {
				assert.NoError(t, err)
			} else {
				requireCode(t, err, tt.code)
			}
		})
	}
}

func TestCreateQuota(t *testing.T) {
	f := newFixture(t, WithQuotaConfig(quota.Config{DefaultMaximum: 3, UnlimitedMaximum: 100, FlagKey: "feature_no_user_limit", FlagEnabledValue: "1"}))
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin) // seat 1

	_, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "a@example.com", Role: role.User})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, actor, CreateAccountParams{Email: "b@example.com", Role: role.User})
	require.NoError(t, err)

	f.repo.reset()
	_, err = f.service.Create(ctx, actor, CreateAccountParams{Email: "c@example.com", Role: role.User})
	requireCode(t, err, apperrors.ErrCodeQuotaExceeded)
	assert.Equal(t, 3, apperrors.GetDetails(err)["current"])
	assert.Zero(t, f.repo.count("CreateAccount"))

	snapshot, err := f.service.QuotaSnapshot(ctx, actor.Principal)
	require.NoError(t, err)
	assert.Equal(t, quota.Snapshot{CurrentCount: 3, Maximum: 3}, snapshot)

	// Edits are never blocked by the quota.
	accounts, err := f.service.List(ctx, actor.Principal)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	member := accounts[1]
	member.Email = "renamed@example.com"
	_, err = f.service.Update(ctx, actor, member)
	require.NoError(t, err)

	// The flag lifts the limit.
	require.NoError(t, f.settings.SetFlag(ctx, f.org, "feature_no_user_limit", "1"))
	_, err = f.service.Create(ctx, actor, CreateAccountParams{Email: "c@example.com", Role: role.User})
	require.NoError(t, err)

	snapshot, err = f.service.QuotaSnapshot(ctx, actor.Principal)
	require.NoError(t, err)
	assert.True(t, snapshot.Unlimited)
	assert.Equal(t, 100, snapshot.Maximum)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)
	target := f.seed(t, f.org, "member@example.com", role.User)

	target.Email = "changed@example.com"
	target.Role = role.SpaceAdmin
	target.RequiresPasswordSetup = true // ignored
	f.repo.reset()

	updated, err := f.service.Update(ctx, actor, target)
	require.NoError(t, err)
	assert.Equal(t, "changed@example.com", updated.Email)
	assert.Equal(t, role.SpaceAdmin, updated.Role)
	assert.False(t, updated.RequiresPasswordSetup)
	assert.Equal(t, 1, f.repo.count("UpdateAccount"))
	assert.Zero(t, f.repo.count("SetPassword"))
	assert.Zero(t, f.repo.count("CountAccounts"), "updates do not consult the quota")
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	spaceAdmin := f.actor(t, role.SpaceAdmin)
	superAdmin := f.seed(t, f.org, "root@example.com", role.SuperAdmin)
	other := f.seed(t, f.org, "other@example.com", role.User)
	foreign := f.seed(t, uuid.New(), "foreign@example.com", role.User)

	// Display-only: a SpaceAdmin may not touch a SuperAdmin record even without changing the role.
	superAdmin.Email = "root2@example.com"
	superAdmin.Role = role.User
	_, err := f.service.Update(ctx, spaceAdmin, superAdmin)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	_, err = f.service.Update(ctx, spaceAdmin, Account{ID: uuid.New(), Email: "x@example.com", Role: role.User})
	requireCode(t, err, apperrors.ErrCodeNotFound)

	_, err = f.service.Update(ctx, spaceAdmin, Account{Email: "x@example.com", Role: role.User})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)

	foreign.Email = "f2@example.com"
	_, err = f.service.Update(ctx, spaceAdmin, foreign)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	other.Email = "root@example.com"
	_, err = f.service.Update(ctx, spaceAdmin, other)
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)
	human := f.seed(t, f.org, "human@example.com", role.User)
	bot := f.seed(t, f.org, "bot", role.ServiceAccountReadOnly)

	err := f.service.SetPassword(ctx, actor, human.ID, "short")
	requireCode(t, err, apperrors.ErrCodeInvalidCredential)

	require.NoError(t, f.service.SetPassword(ctx, actor, human.ID, "longenough"))
	hash, err := f.repo.GetPasswordHash(ctx, human.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "longenough", hash)
	assert.True(t, CheckPassword(hash, "longenough"))
	sent := f.notifier.Sent()
	require.Len(t, sent, 1, "human holders are told about admin password changes")
	assert.Equal(t, "human@example.com", sent[0].To)

	err = f.service.SetPassword(ctx, actor, bot.ID, "longenough")
	requireCode(t, err, apperrors.ErrCodeInvalidCredential)
	assert.Equal(t, credential.ServiceAccountLength, apperrors.GetDetails(err)["min_length"])

	generated, err := credential.Generate(credential.ServiceAccountLength)
	require.NoError(t, err)
	require.NoError(t, f.service.SetPassword(ctx, actor, bot.ID, generated))
	assert.Len(t, f.notifier.Sent(), 1, "service accounts get no notice")

	err = f.service.SetPassword(ctx, actor, uuid.New(), generated)
	requireCode(t, err, apperrors.ErrCodeNotFound)

	spaceAdmin := f.actor(t, role.SpaceAdmin)
	err = f.service.SetPassword(ctx, spaceAdmin, bot.ID, generated)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)
	target := f.seed(t, f.org, "member@example.com", role.User)
	super := f.seed(t, f.org, "root@example.com", role.SuperAdmin)

	require.NoError(t, f.service.Delete(ctx, actor, target.ID))
	_, err := f.service.Load(ctx, actor.Principal, target.ID)
	requireCode(t, err, apperrors.ErrCodeNotFound)

	err = f.service.Delete(ctx, actor, target.ID)
	requireCode(t, err, apperrors.ErrCodeNotFound)

	err = f.service.Delete(ctx, actor, super.ID)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	err = f.service.Delete(ctx, actor, actor.AccountID)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)
}

func TestNotifierFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.notifier.Err = errors.New("smtp down")
	actor := f.actor(t, role.OrgAdmin)

	_, err := f.service.Create(context.Background(), actor, CreateAccountParams{Email: "a@example.com", Role: role.User})
	assert.NoError(t, err)
}

func TestMetricsOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.actor(t, role.OrgAdmin)

	_, err := f.service.Create(ctx, actor, CreateAccountParams{Email: "a@example.com", Role: role.User})
	require.NoError(t, err)
	_ = f.service.Delete(ctx, actor, uuid.New())

	assert.Equal(t, []recordedOperation{
		{"create", "ok"},
		{"delete", string(apperrors.ErrCodeNotFound)},
	}, f.metrics.ops)
}

func TestSetQuotaUnlimited(t *testing.T) {
	f := newFixture(t, WithQuotaConfig(quota.Config{DefaultMaximum: 2, UnlimitedMaximum: 50, FlagKey: "feature_no_user_limit", FlagEnabledValue: "1"}))
	ctx := context.Background()
	super := f.actor(t, role.SuperAdmin)
	orgAdmin := f.actor(t, role.OrgAdmin)

	_, err := f.service.Create(ctx, super, CreateAccountParams{Email: "third@example.com", Role: role.User})
	requireCode(t, err, apperrors.ErrCodeQuotaExceeded)

	err = f.service.SetQuotaUnlimited(ctx, orgAdmin, true)
	requireCode(t, err, apperrors.ErrCodePermissionDenied)

	require.NoError(t, f.service.SetQuotaUnlimited(ctx, super, true))
	flag, err := f.settings.GetFlag(ctx, f.org, "feature_no_user_limit")
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
	_, err = f.service.Create(ctx, super, CreateAccountParams{Email: "third@example.com", Role: role.User})
	require.NoError(t, err)

	require.NoError(t, f.service.SetQuotaUnlimited(ctx, super, false))
	snapshot, err := f.service.QuotaSnapshot(ctx, super.Principal)
	require.NoError(t, err)
	assert.False(t, snapshot.Unlimited)
	assert.Equal(t, quota.Snapshot{CurrentCount: 3, Maximum: 2}, snapshot)
}

func TestBootstrapAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.BootstrapAdmin(ctx, BootstrapParams{OrganizationID: f.org, Email: "not an email"})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
	count, err := f.repo.CountAccounts(ctx, f.org)
	require.NoError(t, err)
	assert.Zero(t, count)

	outcome, err := f.service.BootstrapAdmin(ctx, BootstrapParams{OrganizationID: f.org, Email: "Root@Example.com", Password: "configured-secret"})
	require.NoError(t, err)
	require.True(t, outcome.Created)
	assert.Empty(t, outcome.GeneratedPassword)
	assert.Equal(t, "root@example.com", outcome.Account.Email)
	assert.Equal(t, role.OrgAdmin, outcome.Account.Role)
	assert.True(t, outcome.Account.RequiresPasswordSetup)
	assert.Empty(t, f.notifier.Sent(), "bootstrap sends no notices")

	again, err := f.service.BootstrapAdmin(ctx, BootstrapParams{OrganizationID: f.org, Email: "root@example.com", Password: "configured-secret"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.True(t, again.ConfiguredPasswordActive)

	_, err = f.service.BootstrapAdmin(ctx, BootstrapParams{OrganizationID: uuid.New(), Email: "a@example.com", Role: role.ServiceAccountReadWrite})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
	_, err = f.service.BootstrapAdmin(ctx, BootstrapParams{Email: "a@example.com"})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
}
