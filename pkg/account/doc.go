// Package account administers the member accounts of an organization.
//
// AccountService is the single point of truth for account CRUD. Every mutating call takes the
// acting operator (Actor) and enforces, in order: administration rights, input validity, role
// authority (role.CanAssign), the organization seat quota for creations, and email uniqueness.
// Failures are *errors.Error values carrying one of the codes from pkg/errors.
//
// Storage goes through AccountRepository, with in-memory, JSON file and PostgreSQL
// implementations selected by NewAccountRepository. Passwords are stored as bcrypt hashes.
//
// # Basic Usage
//
//	repo, _ := account.NewAccountRepository("inmem", account.RepositoryConfig{})
//	svc := account.NewAccountService(repo, settings.NewInMemoryRepository(),
//		account.WithQuotaConfig(quota.DefaultConfig()),
//	)
//
//	actor, err := svc.ResolveActor(ctx, account.Principal{AccountID: me, OrganizationID: org})
//	created, err := svc.Create(ctx, actor, account.CreateAccountParams{
//		Email: "bot@example.com",
//		Role:  role.ServiceAccountReadWrite,
//	})
//	err = svc.SetPassword(ctx, actor, created.ID, generated)
package account
