package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/config"
	"github.com/tendant/simple-useradmin/pkg/tokengenerator"
)

func main() {
	jwtConfig := config.JWTConfig{}
	if err := cleanenv.ReadEnv(&jwtConfig); err != nil {
		slog.Error("Failed to read JWT configuration", "err", err)
		os.Exit(1)
	}
	defaultExpiry, err := jwtConfig.ParseTokenExpiry()
	if err != nil {
		defaultExpiry = tokengenerator.DefaultExpiry
	}

	secret := flag.String("secret", jwtConfig.Secret, "HS256 signing secret shared with useradmin (JWT_SECRET)")
	issuer := flag.String("issuer", jwtConfig.Issuer, "iss claim")
	subject := flag.String("subject", "", "account id the console acts as")
	organization := flag.String("org", "", "organization id of that account")
	expiry := flag.Duration("expiry", defaultExpiry, "token lifetime (defaults to ACCESS_TOKEN_EXPIRY)")
	outputFormat := flag.String("format", "compact", "compact, full or debug")
	flag.Parse()

	principal, err := parsePrincipal(*subject, *organization)
	if err != nil {
		fail("%v", err)
	}

	generator := tokengenerator.NewJwtTokenGenerator(*secret, *issuer)
	token, expiresAt, err := generator.GenerateToken(principal, *expiry)
	if err != nil {
		fail("failed to sign console token: %v", err)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(token)
	case "full":
		fmt.Printf("account:      %s\norganization: %s\nexpires:      %s\ntoken:        %s\n",
			principal.AccountID, principal.OrganizationID, expiresAt.Format(time.RFC3339), token)
	case "debug":
		_, claims, err := generator.ParseToken(token)
		if err != nil {
			fail("signed token does not verify: %v", err)
		}
		out, _ := json.MarshalIndent(map[string]interface{}{
			"token":      token,
			"claims":     claims,
			"expires_at": expiresAt.Format(time.RFC3339),
		}, "", "  ")
		fmt.Println(string(out))
	default:
		fail("unknown -format %q (compact, full, debug)", *outputFormat)
	}
}

func parsePrincipal(subject, organization string) (account.Principal, error) {
	accountID, err := uuid.Parse(subject)
	if err != nil {
		return account.Principal{}, fmt.Errorf("-subject must be an account id: %w", err)
	}
	organizationID, err := uuid.Parse(organization)
	if err != nil {
		return account.Principal{}, fmt.Errorf("-org must be an organization id: %w", err)
	}
	return account.Principal{AccountID: accountID, OrganizationID: organizationID}, nil
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "tokengen: "+format+"\n", args...)
	os.Exit(1)
}
