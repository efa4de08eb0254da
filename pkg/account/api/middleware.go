package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/account"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
)

type contextKey struct {
	name string
}

var actorCtxKey = &contextKey{"actor"}

// Claim names carried by admin console tokens.
const (
	ClaimSubject        = "sub"
	ClaimOrganizationID = "org_id"
	ClaimIssuer         = "iss"
)

// PrincipalFromClaims reads the session identity out of verified JWT claims.
func PrincipalFromClaims(claims map[string]interface{}) (account.Principal, error) {
	sub, _ := claims[ClaimSubject].(string)
	org, _ := claims[ClaimOrganizationID].(string)

	accountID, err := uuid.Parse(sub)
	if err != nil {
		return account.Principal{}, apperrors.Unauthenticated("token subject is not an account id")
	}
	organizationID, err := uuid.Parse(org)
	if err != nil {
		return account.Principal{}, apperrors.Unauthenticated("token has no organization")
	}
	return account.Principal{AccountID: accountID, OrganizationID: organizationID}, nil
}

// ActorMiddleware resolves the verified token into an Actor. It must run after jwtauth.Verifier.
// Requests without a usable session get 401. A non-empty issuer must match the token's "iss".
func ActorMiddleware(service *account.AccountService, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				slog.Debug("Unauthenticated request to admin resource", "err", err)
				writeError(w, r, apperrors.Unauthenticated("missing or invalid token"))
				return
			}

			if iss, _ := claims[ClaimIssuer].(string); issuer != "" && iss != issuer {
				slog.Debug("Rejected token from unexpected issuer", "iss", iss)
				writeError(w, r, apperrors.Unauthenticated("token issuer not accepted"))
				return
			}

			principal, err := PrincipalFromClaims(claims)
			if err != nil {
				writeError(w, r, err)
				return
			}

			actor, err := service.ResolveActor(r.Context(), principal)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), actorCtxKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the Actor stored by ActorMiddleware.
func ActorFromContext(ctx context.Context) (account.Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey).(account.Actor)
	return actor, ok
}
