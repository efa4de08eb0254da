package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/ratelimit"
	"github.com/tendant/simple-useradmin/pkg/role"
	"github.com/tendant/simple-useradmin/pkg/settings"
	"github.com/tendant/simple-useradmin/pkg/tokengenerator"
)

const (
	testSecret = "test-secret-0123456789"
	testIssuer = "test"
)

type apiFixture struct {
	repo      *account.InMemoryAccountRepository
	settings  *settings.InMemoryRepository
	tokenAuth *jwtauth.JWTAuth
	server    http.Handler
	org       uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWithLimiter(t, nil)
}

func newAPIFixtureWithLimiter(t *testing.T, writeLimiter func(http.Handler) http.Handler) *apiFixture {
	t.Helper()
	f := &apiFixture{
		repo:      account.NewInMemoryAccountRepository(),
		settings:  settings.NewInMemoryRepository(),
		tokenAuth: jwtauth.New("HS256", []byte(testSecret), nil),
		org:       uuid.New(),
	}
	svc := account.NewAccountService(f.repo, f.settings,
		account.WithQuotaConfig(quota.Config{DefaultMaximum: 3, UnlimitedMaximum: 1000, FlagKey: "feature_no_user_limit", FlagEnabledValue: "1"}))
	f.server = NewHandle(svc, WithIssuer(testIssuer)).Routes(f.tokenAuth, writeLimiter)
	return f
}

func (f *apiFixture) seed(t *testing.T, email string, r role.Role) account.Account {
	t.Helper()
	a, err := f.repo.CreateAccount(context.Background(), account.Account{OrganizationID: f.org, Email: email, Role: r})
	require.NoError(t, err)
	return a
}

func (f *apiFixture) token(t *testing.T, a account.Account) string {
	t.Helper()
	_, token, err := f.tokenAuth.Encode(map[string]interface{}{
		ClaimSubject:        a.ID.String(),
		ClaimOrganizationID: a.OrganizationID.String(),
		ClaimIssuer:         testIssuer,
	})
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUnauthenticated(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "", http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode[ErrorResponse](t, rec).Code)

	ghost := account.Account{ID: uuid.New(), OrganizationID: f.org}
	rec = f.do(t, f.token(t, ghost), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "not-a-jwt", http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndReadAccounts(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	token := f.token(t, admin)

	rec := f.do(t, token, http.MethodPost, "/", map[string]string{"email": "bot", "role": "service_account_read_write"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[AccountResponse](t, rec)
	assert.Equal(t, role.ServiceAccountReadWrite, created.Role)
	assert.True(t, created.IsServiceAccount)
	assert.Equal(t, f.org.String()+"_bot", created.Username)

	rec = f.do(t, token, http.MethodGet, "/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[AccountDetailResponse](t, rec)
	assert.True(t, detail.RoleSelection.Editable)
	assert.Contains(t, detail.RoleSelection.Choices, role.ServiceAccountReadOnly)

	rec = f.do(t, token, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AccountResponse](t, rec), 2)

	rec = f.do(t, token, http.MethodGet, "/count", nil)
	assert.Equal(t, 2, decode[CountResponse](t, rec).Count)

	rec = f.do(t, token, http.MethodGet, "/me", nil)
	assert.Equal(t, "admin@example.com", decode[AccountResponse](t, rec).Email)

	rec = f.do(t, token, http.MethodGet, "/quota", nil)
	q := decode[QuotaResponse](t, rec)
	assert.Equal(t, 2, q.CurrentCount)
	assert.Equal(t, 3, q.Maximum)
	assert.True(t, q.CanCreate)
	assert.Equal(t, 1, q.Remaining)
}

func TestQuotaExceededMapsTo402(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	f.seed(t, "a@example.com", role.User)
	f.seed(t, "b@example.com", role.User)

	rec := f.do(t, f.token(t, admin), http.MethodPost, "/", map[string]string{"email": "c@example.com", "role": "user"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "QUOTA_EXCEEDED", body.Code)
	assert.EqualValues(t, 3, body.Details["maximum"])
}

func TestRoleEnforcement(t *testing.T) {
	f := newAPIFixture(t)
	spaceAdmin := f.seed(t, "space@example.com", role.SpaceAdmin)
	super := f.seed(t, "root@example.com", role.SuperAdmin)
	token := f.token(t, spaceAdmin)

	rec := f.do(t, token, http.MethodPost, "/", map[string]string{"email": "boss@example.com", "role": "org_admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, token, http.MethodGet, "/"+super.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[AccountDetailResponse](t, rec)
	assert.False(t, detail.RoleSelection.Editable)
	assert.Equal(t, []role.Role{role.SuperAdmin}, detail.RoleSelection.Choices)

	rec = f.do(t, token, http.MethodPut, "/"+super.ID.String(), map[string]string{"email": "root@example.com", "role": "user"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, token, http.MethodGet, "/roles", nil)
	sel := decode[RoleSelectionResponse](t, rec)
	assert.Equal(t, []role.Role{role.User, role.SpaceAdmin}, sel.Choices)

	rec = f.do(t, token, http.MethodGet, "/roles?current=super_admin", nil)
	assert.False(t, decode[RoleSelectionResponse](t, rec).Editable)

	rec = f.do(t, token, http.MethodGet, "/roles?current=owner", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePasswordAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	member := f.seed(t, "member@example.com", role.User)
	token := f.token(t, admin)
	path := "/" + member.ID.String()

	rec := f.do(t, token, http.MethodPut, path, map[string]string{"email": "renamed@example.com", "role": "space_admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, role.SpaceAdmin, decode[AccountResponse](t, rec).Role)

	rec = f.do(t, token, http.MethodPut, path+"/password", map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIAL", decode[ErrorResponse](t, rec).Code)

	rec = f.do(t, token, http.MethodPut, path+"/password", map[string]string{"password": "long-enough"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	hash, err := f.repo.GetPasswordHash(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, account.CheckPassword(hash, "long-enough"))

	rec = f.do(t, token, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, token, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, token, http.MethodDelete, "/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, token, http.MethodPost, "/", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePassword(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	user := f.seed(t, "user@example.com", role.User)

	rec := f.do(t, f.token(t, admin), http.MethodPost, "/generate-password", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[GeneratedPasswordResponse](t, rec)
	assert.Len(t, generated.Password, 32)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = f.do(t, f.token(t, user), http.MethodPost, "/generate-password", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConsoleTokensAccepted(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	principal := account.Principal{AccountID: admin.ID, OrganizationID: admin.OrganizationID}

	token, _, err := tokengenerator.NewJwtTokenGenerator(testSecret, testIssuer).GenerateToken(principal, time.Minute)
	require.NoError(t, err)
	rec := f.do(t, token, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, admin.ID, decode[AccountResponse](t, rec).ID)

	forged, _, err := tokengenerator.NewJwtTokenGenerator("some-other-secret-value", testIssuer).GenerateToken(principal, time.Minute)
	require.NoError(t, err)
	rec = f.do(t, forged, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, _, err := tokengenerator.NewJwtTokenGenerator(testSecret, "another-service").GenerateToken(principal, time.Minute)
	require.NoError(t, err)
	rec = f.do(t, foreign, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "tokens from another issuer are rejected")

	_, unissued, err := f.tokenAuth.Encode(map[string]interface{}{
		ClaimSubject:        admin.ID.String(),
		ClaimOrganizationID: admin.OrganizationID.String(),
	})
	require.NoError(t, err)
	rec = f.do(t, unissued, http.MethodPost, "/", map[string]string{"email": "x@example.com", "role": "user"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	otherOrg := account.Principal{AccountID: admin.ID, OrganizationID: uuid.New()}
	token, _, err = tokengenerator.NewJwtTokenGenerator(testSecret, testIssuer).GenerateToken(otherOrg, time.Minute)
	require.NoError(t, err)
	rec = f.do(t, token, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetQuotaRoute(t *testing.T) {
	f := newAPIFixture(t)
	super := f.seed(t, "root@example.com", role.SuperAdmin)
	admin := f.seed(t, "admin@example.com", role.OrgAdmin)

	rec := f.do(t, f.token(t, admin), http.MethodPut, "/quota", map[string]bool{"unlimited": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, f.token(t, super), http.MethodPut, "/quota", map[string]bool{"unlimited": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[QuotaResponse](t, rec)
	assert.True(t, body.Unlimited)
	assert.Equal(t, 1000, body.Maximum)
	assert.True(t, body.CanCreate)

	flag, err := f.settings.GetFlag(context.Background(), f.org, "feature_no_user_limit")
	require.NoError(t, err)
	assert.Equal(t, "1", flag)

	rec = f.do(t, f.token(t, super), http.MethodPut, "/quota", map[string]bool{"unlimited": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[QuotaResponse](t, rec).Unlimited)
}

func TestWriteLimiterRunsBeforeActorResolution(t *testing.T) {
	limiter := ratelimit.NewMiddleware(&ratelimit.Config{
		PerUserEnabled: true, PerUserBurst: 1, PerUserPerSecond: 0.001,
		PerIPEnabled: true, PerIPBurst: 1, PerIPPerSecond: 0.001,
		BucketTTL: time.Hour,
	})
	t.Cleanup(limiter.Stop)
	f := newAPIFixtureWithLimiter(t, limiter.Handler)
	body := map[string]string{"email": "x@example.com", "role": "user"}

	rec := f.do(t, "", http.MethodPost, "/", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, "", http.MethodPost, "/", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "anonymous writes are limited per client IP")

	admin := f.seed(t, "admin@example.com", role.OrgAdmin)
	rec = f.do(t, f.token(t, admin), http.MethodPost, "/", body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, f.token(t, admin), http.MethodPost, "/", map[string]string{"email": "y@example.com", "role": "user"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = f.do(t, f.token(t, admin), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
}
