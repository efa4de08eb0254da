// Package tokengenerator mints and parses the HS256 tokens the admin console presents to the
// user administration API.
package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-useradmin/pkg/account"
)

// DefaultExpiry is used when GenerateToken is given a non-positive expiry.
const DefaultExpiry = time.Hour

// Claims carried by console tokens. Subject is the account id.
type Claims struct {
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator signs console tokens with a shared secret
type JwtTokenGenerator struct {
	Secret string
	Issuer string
	now    func() time.Time
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret: secret,
		Issuer: issuer,
		now:    time.Now,
	}
}

// GenerateToken creates a token for the principal that expires after expiry
func (g *JwtTokenGenerator) GenerateToken(p account.Principal, expiry time.Duration) (string, time.Time, error) {
	if p.IsZero() {
		return "", time.Time{}, fmt.Errorf("principal is required")
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	now := g.now().UTC()
	claims := Claims{
		OrganizationID: p.OrganizationID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   p.AccountID.String(),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign console token", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken validates a token and returns the principal it names
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (account.Principal, *Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil {
		return account.Principal{}, nil, fmt.Errorf("failed to parse token: %w", err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return account.Principal{}, nil, fmt.Errorf("token subject is not an account id: %w", err)
	}
	organizationID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return account.Principal{}, nil, fmt.Errorf("token has no organization: %w", err)
	}
	return account.Principal{AccountID: accountID, OrganizationID: organizationID}, claims, nil
}
