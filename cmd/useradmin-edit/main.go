package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/config"
	"github.com/tendant/simple-useradmin/pkg/role"
	"github.com/tendant/simple-useradmin/pkg/settings"
	"github.com/tendant/simple-useradmin/pkg/workflow"
)

type Config struct {
	Database    config.DatabaseConfig
	Persistence config.PersistenceConfig
	Quota       config.QuotaConfig
	Workflow    config.WorkflowConfig
}

func (c Config) Validate() error {
	return config.Validate(
		func() config.ValidationErrors { return config.AsValidationErrors(c.Persistence.Validate()) },
		func() config.ValidationErrors {
			if !c.Persistence.UsesPostgres() {
				return nil
			}
			return config.AsValidationErrors(c.Database.Validate())
		},
		func() config.ValidationErrors { return config.AsValidationErrors(c.Quota.Validate()) },
		func() config.ValidationErrors { return config.AsValidationErrors(c.Workflow.Validate()) },
	)
}

const usage = `commands:
  show                     print the form
  email <address>          set the email
  role <name>              set the role (user, space_admin, org_admin,
                           service_account_read_only, service_account_read_write, super_admin)
  password <value>         set the pending password
  change-password on|off   set the password on submit
  generate                 generate a password
  submit                   save the account
  delete                   delete the account
  copy-user | copy-pass    copy to the clipboard
  quit`

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before the process exits.
func run() int {
	actorID := flag.String("actor", "", "Account id of the operator")
	orgID := flag.String("org", "", "Organization id of the operator")
	target := flag.String("target", "", "Account id to edit (empty creates a new account)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	// Same .env as the service; a missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fail("failed to read .env: %v", err)
	}

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return fail("failed to read configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fail("invalid configuration: %v", err)
	}

	principal, targetID, err := parseIDs(*actorID, *orgID, *target)
	if err != nil {
		return fail("%v", err)
	}

	service, cleanup, err := newService(cfg)
	if err != nil {
		return fail("%v", err)
	}
	defer cleanup()

	session := workflow.NewSession(service, principal, targetID,
		workflow.WithClipboard(workflow.TerminalClipboard{Out: os.Stdout}),
		workflow.WithCopyConfirmWindow(cfg.Workflow.CopyConfirmWindow),
	)
	defer session.Close()

	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		printView(os.Stdout, session.View())
		if session.View().State == workflow.Redirect {
			return fail("session is not valid, log in again at %s", workflow.LoginPath)
		}
		return 1
	}
	printView(os.Stdout, session.View())
	fmt.Println(usage)

	in := bufio.NewReader(os.Stdin)
	confirm := workflow.ConfirmFunc(func(key string) bool {
		fmt.Printf("%s [y/N] ", workflow.English(key, nil))
		answer, _ := in.ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	})

	for {
		fmt.Print("> ")
		line, err := in.ReadString('\n')
		if err != nil {
			return 0
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return 0
		case "show":
		case "email":
			err = session.SetEmail(arg)
		case "role":
			var r role.Role
			if r, err = role.Parse(arg); err == nil {
				err = session.ChangeRole(r)
			}
		case "password":
			err = session.SetPassword(arg)
		case "change-password":
			err = session.SetChangePassword(arg == "on")
		case "generate":
			err = session.GeneratePassword()
		case "submit":
			err = session.Submit(ctx)
		case "delete":
			err = session.Delete(ctx, confirm)
		case "copy-user":
			err = session.CopyUsername()
		case "copy-pass":
			err = session.CopyPassword()
		default:
			fmt.Println(usage)
			continue
		}
		if err != nil {
			fmt.Println("error:", err)
		}

		v := session.View()
		printView(os.Stdout, v)
		if v.State.Terminal() {
			return 0
		}
	}
}

func parseIDs(actor, org, target string) (account.Principal, uuid.UUID, error) {
	accountID, err := uuid.Parse(actor)
	if err != nil {
		return account.Principal{}, uuid.Nil, fmt.Errorf("-actor must be an account id: %w", err)
	}
	organizationID, err := uuid.Parse(org)
	if err != nil {
		return account.Principal{}, uuid.Nil, fmt.Errorf("-org must be an organization id: %w", err)
	}
	targetID := uuid.Nil
	if target != "" {
		if targetID, err = uuid.Parse(target); err != nil {
			return account.Principal{}, uuid.Nil, fmt.Errorf("-target must be an account id: %w", err)
		}
	}
	return account.Principal{AccountID: accountID, OrganizationID: organizationID}, targetID, nil
}

func newService(cfg Config) (*account.AccountService, func(), error) {
	repoConfig := account.RepositoryConfig{
		Timeout: cfg.Persistence.Timeout,
		DataDir: cfg.Persistence.DataDir,
	}
	cleanup := func() {}

	if cfg.Persistence.UsesPostgres() {
		pool, err := pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repoConfig.Pool = pool
		cleanup = pool.Close
	}

	repo, err := account.NewAccountRepository(cfg.Persistence.Type, repoConfig)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	settingsRepo, err := settings.NewRepository(cfg.Persistence.Type, settings.RepositoryConfig{
		Pool:    repoConfig.Pool,
		Timeout: repoConfig.Timeout,
		DataDir: repoConfig.DataDir,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return account.NewAccountService(repo, settingsRepo, account.WithQuotaConfig(cfg.Quota.ToQuotaConfig())), cleanup, nil
}

func printView(w io.Writer, v workflow.View) {
	mode := "edit"
	if v.CreateMode {
		mode = "create"
	}
	fmt.Fprintf(w, "[%s] %s\n", v.State, mode)
	if v.State == workflow.Redirect {
		fmt.Fprintf(w, "  redirect: %s\n", v.RedirectTo)
	}
	if v.State != workflow.Loading && v.State != workflow.Redirect && v.LoadErr == nil {
		fmt.Fprintf(w, "  email:    %s\n", v.Account.Email)
		fmt.Fprintf(w, "  username: %s\n", v.Username)
		editable := ""
		if !v.RoleSelection.Editable {
			editable = " (read only)"
		}
		fmt.Fprintf(w, "  role:     %s%s\n", v.Account.Role, editable)
		if v.Credential.PendingPassword != "" {
			fmt.Fprintf(w, "  password: %s\n", displayPassword(v))
		}
		fmt.Fprintf(w, "  set password on submit: %t\n", v.Credential.ConfirmChangePassword)
		if v.Quota.Unlimited {
			fmt.Fprintf(w, "  users:    %d (unlimited)\n", v.Quota.CurrentCount)
		} else {
			fmt.Fprintf(w, "  users:    %d of %d\n", v.Quota.CurrentCount, v.Quota.Maximum)
		}
	}
	for _, hint := range v.Hints(workflow.English) {
		fmt.Fprintf(w, "  ! %s\n", hint)
	}
}

// displayPassword shows service-account passwords in plain text so they can be handed to the
// consuming system. Human passwords stay masked.
func displayPassword(v workflow.View) string {
	if role.IsServiceAccount(v.Account.Role) {
		return v.Credential.PendingPassword
	}
	return strings.Repeat("*", len(v.Credential.PendingPassword))
}

func fail(format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "useradmin-edit: "+format+"\n", args...)
	return 1
}
