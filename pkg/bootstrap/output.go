package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintBootstrapResult displays the created administrator, including a generated password,
// exactly once.
func PrintBootstrapResult(w io.Writer, result *OrgAdminBootstrapResult) {
	if result == nil || !result.Created {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nADMIN BOOTSTRAP COMPLETED\n%s\n", border, border)
	fmt.Fprintf(w, "  Organization: %s\n", result.OrganizationID)
	fmt.Fprintf(w, "  Account ID:   %s\n", result.AccountID)
	fmt.Fprintf(w, "  Email:        %s\n", result.Email)
	fmt.Fprintf(w, "  Role:         %s\n", result.Role)

	if result.PasswordFromEnv {
		fmt.Fprintf(w, "  Password:     (configured via BOOTSTRAP_ADMIN_PASSWORD)\n")
		fmt.Fprintln(w, "\n  Remove BOOTSTRAP_ADMIN_PASSWORD from the environment after first login.")
	} else {
		fmt.Fprintf(w, "  Password:     %s\n", result.Password)
		fmt.Fprintln(w, "\n  THIS PASSWORD WILL NOT BE DISPLAYED AGAIN - SAVE IT NOW!")
	}
	fmt.Fprintf(w, "%s\n\n", border)
}

// LogBootstrapSummary logs the result without the password
func LogBootstrapSummary(result *OrgAdminBootstrapResult) {
	if result == nil {
		return
	}
	slog.Info("Admin bootstrap summary",
		"organization_id", result.OrganizationID,
		"created", result.Created,
		"account_id", result.AccountID,
		"role", result.Role.String(),
		"password_from_env", result.PasswordFromEnv,
		"password_still_active", result.PasswordStillActive,
	)
}
