// Package workflow drives one create-or-edit session of the user administration form.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-useradmin/pkg/account"
	"github.com/tendant/simple-useradmin/pkg/credential"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// DefaultCopyConfirmWindow is how long a copy confirmation stays visible.
const DefaultCopyConfirmWindow = 2 * time.Second

var (
	ErrSessionClosed = errors.New("workflow: session closed")
	ErrNotReady      = errors.New("workflow: session is not ready for changes")
	ErrNotEditMode   = errors.New("workflow: no persisted account in this session")
)

// Backend is what a Session needs from the account service. *account.AccountService
// satisfies it.
type Backend interface {
	ResolveActor(ctx context.Context, p account.Principal) (account.Actor, error)
	Load(ctx context.Context, p account.Principal, id uuid.UUID) (account.Account, error)
	Count(ctx context.Context, p account.Principal) (int, error)
	QuotaFlag(ctx context.Context, p account.Principal) (string, error)
	QuotaConfig() quota.Config
	Create(ctx context.Context, actor account.Actor, params account.CreateAccountParams) (account.Account, error)
	Update(ctx context.Context, actor account.Actor, next account.Account) (account.Account, error)
	SetPassword(ctx context.Context, actor account.Actor, id uuid.UUID, plaintext string) error
	Delete(ctx context.Context, actor account.Actor, id uuid.UUID) error
}

// Confirmer asks the operator to approve a destructive action. key is a message key for
// Translate.
type Confirmer interface {
	Confirm(key string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(key string) bool

func (f ConfirmFunc) Confirm(key string) bool {
	return f(key)
}

type copyTarget int

const (
	copyUsername copyTarget = iota
	copyPassword
)

// Session is one operator editing one account, or creating a new one when the target id is
// uuid.Nil. All methods are safe for concurrent use.
type Session struct {
	backend    Backend
	principal  account.Principal
	generator  credential.Generator
	clipboard  Clipboard
	copyWindow time.Duration
	observer   func(View)

	mu         sync.Mutex
	closed     bool
	state      State
	targetID   uuid.UUID
	actor      account.Actor
	form       account.Account
	snapshot   quota.Snapshot
	credential CredentialState
	outcome    Outcome
	loadErr    error
	timers     map[copyTarget]*time.Timer
	timerSeq   map[copyTarget]uint64
}

// Option configures a Session
type Option func(*Session)

// WithGenerator replaces the password generator
func WithGenerator(g credential.Generator) Option {
	return func(s *Session) {
		s.generator = g
	}
}

// WithClipboard sets where copy actions write to
func WithClipboard(c Clipboard) Option {
	return func(s *Session) {
		s.clipboard = c
	}
}

// WithCopyConfirmWindow sets how long copy confirmations stay visible
func WithCopyConfirmWindow(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.copyWindow = d
		}
	}
}

// WithObserver registers a callback that receives a View after every state change, including
// changes made by the copy confirmation timer. It is called without the session lock held.
func WithObserver(fn func(View)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// NewSession prepares a session. Call Open before anything else.
func NewSession(backend Backend, principal account.Principal, targetID uuid.UUID, opts ...Option) *Session {
	s := &Session{
		backend:    backend,
		principal:  principal,
		targetID:   targetID,
		generator:  credential.RandomGenerator{},
		clipboard:  noClipboard{},
		copyWindow: DefaultCopyConfirmWindow,
		state:      Loading,
		timers:     make(map[copyTarget]*time.Timer),
		timerSeq:   make(map[copyTarget]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads everything the form needs. The quota flag, the account count, the operator's own
// account and, in edit mode, the target account are fetched concurrently. Failing to load the
// prerequisites means the session is no longer valid and the session moves to Redirect. A target
// that cannot be shown moves it to Failed.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != Loading {
		s.mu.Unlock()
		return ErrNotReady
	}
	targetID := s.targetID
	s.mu.Unlock()

	if s.principal.IsZero() {
		s.finishLoad(apperrors.Unauthenticated("no session"), nil, loaded{})
		return apperrors.Unauthenticated("no session")
	}

	var (
		res       loaded
		targetErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		flag, err := s.backend.QuotaFlag(gctx, s.principal)
		res.flag = flag
		return err
	})
	g.Go(func() error {
		count, err := s.backend.Count(gctx, s.principal)
		res.count = count
		return err
	})
	g.Go(func() error {
		actor, err := s.backend.ResolveActor(gctx, s.principal)
		res.actor = actor
		return err
	})
	if targetID != uuid.Nil {
		g.Go(func() error {
			target, err := s.backend.Load(gctx, s.principal, targetID)
			res.target = target
			targetErr = err
			return nil
		})
	}
	err := g.Wait()

	s.finishLoad(err, targetErr, res)
	if err != nil {
		return err
	}
	return targetErr
}

type loaded struct {
	flag   string
	count  int
	actor  account.Actor
	target account.Account
}

func (s *Session) finishLoad(prereqErr, targetErr error, res loaded) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch {
	case prereqErr != nil:
		slog.Warn("Failed to load user administration session", "account_id", s.principal.AccountID, "err", prereqErr)
		s.state = Redirect
	case apperrors.IsCode(targetErr, apperrors.ErrCodeUnauthenticated):
		s.state = Redirect
	case targetErr != nil:
		slog.Info("Failed to load account for editing", "account_id", s.targetID, "err", targetErr)
		s.loadErr = targetErr
		s.state = Failed
	default:
		s.actor = res.actor
		s.snapshot = quota.Resolve(s.backend.QuotaConfig(), res.flag, res.count)
		if s.targetID == uuid.Nil {
			s.form = account.Account{OrganizationID: s.principal.OrganizationID, Role: role.User}
		} else {
			s.form = res.target
		}
		s.state = Ready
	}
	s.mu.Unlock()
	s.publish()
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		State:      s.state,
		CreateMode: s.targetID == uuid.Nil,
		Actor:      s.actor,
		Account:    s.form,
		Username:   s.form.Username(),
		Quota:      s.snapshot,
		Credential: s.credential,
		Outcome:    s.outcome,
		LoadErr:    s.loadErr,
	}
	if s.state == Redirect {
		v.RedirectTo = LoginPath
	}
	if s.state != Loading && s.state != Redirect && s.loadErr == nil {
		v.RoleSelection = role.Selection(s.actor.Role, s.form.Role)
		v.QuotaBlocked = v.CreateMode && !quota.CanCreate(s.snapshot)
	}
	return v
}

// SetEmail edits the email field.
func (s *Session) SetEmail(email string) error {
	return s.edit(func() error {
		s.form.Email = email
		return nil
	})
}

// ChangeRole edits the role field. Selecting a service-account role generates a credential and
// marks the password for change; leaving one keeps whatever password was entered.
func (s *Session) ChangeRole(r role.Role) error {
	return s.edit(func() error {
		s.form.Role = r
		if !role.IsServiceAccount(r) {
			return nil
		}
		password, err := s.generator.Generate(credential.ServiceAccountLength)
		if err != nil {
			return apperrors.InternalWrap(err, "failed to generate password")
		}
		s.credential.PendingPassword = password
		s.credential.ConfirmChangePassword = true
		return nil
	})
}

// SetPassword edits the pending password.
func (s *Session) SetPassword(plaintext string) error {
	return s.edit(func() error {
		s.credential.PendingPassword = plaintext
		return nil
	})
}

// SetChangePassword toggles whether Submit also sets the pending password.
func (s *Session) SetChangePassword(confirm bool) error {
	return s.edit(func() error {
		s.credential.ConfirmChangePassword = confirm
		return nil
	})
}

// GeneratePassword replaces the pending password with a generated one and marks it for change.
func (s *Session) GeneratePassword() error {
	return s.edit(func() error {
		password, err := s.generator.Generate(credential.DefaultLength)
		if err != nil {
			return apperrors.InternalWrap(err, "failed to generate password")
		}
		s.credential.PendingPassword = password
		s.credential.ConfirmChangePassword = true
		return nil
	})
}

func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	err := fn()
	if err == nil && (s.state == Saved || s.state == Failed) {
		s.state = Ready
	}
	s.mu.Unlock()
	s.publish()
	return err
}

func (s *Session) mutableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.loadErr != nil {
		return s.loadErr
	}
	switch s.state {
	case Ready, Saved, Failed:
		return nil
	}
	return ErrNotReady
}

// Submit creates or updates the account and then, when the password is marked for change, sets
// it. A new service account always gets a credential, generated here if none was entered. The
// form keeps its values when anything fails so the operator can correct and retry.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	creating := s.form.IsNew()
	if creating && !quota.CanCreate(s.snapshot) {
		err := apperrors.QuotaExceeded(s.snapshot.CurrentCount, s.snapshot.Maximum)
		s.outcome = Outcome{SaveErr: err}
		s.state = Failed
		s.mu.Unlock()
		s.publish()
		return err
	}
	if creating && role.IsServiceAccount(s.form.Role) {
		s.credential.ConfirmChangePassword = true
	}
	if s.credential.ConfirmChangePassword && s.credential.PendingPassword == "" && role.IsServiceAccount(s.form.Role) {
		password, err := s.generator.Generate(credential.ServiceAccountLength)
		if err != nil {
			s.mu.Unlock()
			return apperrors.InternalWrap(err, "failed to generate password")
		}
		s.credential.PendingPassword = password
	}
	actor := s.actor
	form := s.form
	changePassword := s.credential.ConfirmChangePassword
	password := s.credential.PendingPassword
	s.outcome = Outcome{}
	s.state = Submitting
	s.mu.Unlock()
	s.publish()

	var (
		saved account.Account
		err   error
	)
	if creating {
		saved, err = s.backend.Create(ctx, actor, account.CreateAccountParams{
			OrganizationID: form.OrganizationID,
			Email:          form.Email,
			Role:           form.Role,
		})
	} else {
		saved, err = s.backend.Update(ctx, actor, form)
	}
	if err != nil {
		s.failSubmit(Outcome{SaveErr: err}, err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.form = saved
	s.targetID = saved.ID
	if creating {
		s.snapshot.CurrentCount++
	}
	s.outcome.Saved = true
	s.mu.Unlock()

	if !changePassword {
		s.finishSubmit(Saved)
		return nil
	}

	err = s.backend.SetPassword(ctx, actor, saved.ID, password)
	if err != nil {
		s.failSubmit(Outcome{Saved: true, PasswordAttempted: true, PasswordErr: err}, err)
		return err
	}
	s.mu.Lock()
	s.outcome.PasswordAttempted = true
	s.outcome.PasswordChanged = true
	s.credential.ConfirmChangePassword = false
	s.mu.Unlock()
	s.finishSubmit(Saved)
	return nil
}

func (s *Session) failSubmit(outcome Outcome, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.outcome = outcome
	if apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated) {
		s.state = Redirect
	} else {
		s.state = Failed
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Session) finishSubmit(state State) {
	s.mu.Lock()
	if !s.closed {
		s.state = state
	}
	s.mu.Unlock()
	s.publish()
}

// Delete removes the persisted account after c approves it. A nil c skips the question. When
// the operator declines nothing happens and nil is returned. A failed delete leaves the session
// Ready with the error in the outcome.
func (s *Session) Delete(ctx context.Context, c Confirmer) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.targetID == uuid.Nil {
		s.mu.Unlock()
		return ErrNotEditMode
	}
	s.mu.Unlock()

	if c != nil && !c.Confirm(MsgConfirmDeleteUser) {
		return nil
	}

	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	actor := s.actor
	id := s.targetID
	s.outcome = Outcome{}
	s.state = Deleting
	s.mu.Unlock()
	s.publish()

	err := s.backend.Delete(ctx, actor, id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	switch {
	case err == nil:
		s.state = Deleted
	case apperrors.IsCode(err, apperrors.ErrCodeUnauthenticated):
		s.state = Redirect
	default:
		s.outcome.DeleteErr = err
		s.state = Ready
	}
	s.mu.Unlock()
	s.publish()
	return err
}

// CopyUsername writes the login name to the clipboard and shows a confirmation for the copy
// window.
func (s *Session) CopyUsername() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	username := s.form.Username()
	s.mu.Unlock()
	if username == "" {
		return apperrors.InvalidInput("email", "nothing to copy")
	}
	return s.copy(copyUsername, username)
}

// CopyPassword writes the pending password to the clipboard and shows a confirmation for the
// copy window.
func (s *Session) CopyPassword() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	password := s.credential.PendingPassword
	s.mu.Unlock()
	if password == "" {
		return apperrors.InvalidInput("password", "nothing to copy")
	}
	return s.copy(copyPassword, password)
}

func (s *Session) copy(target copyTarget, text string) error {
	if err := s.clipboard.WriteText(text); err != nil {
		return apperrors.InternalWrap(err, "failed to write clipboard")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.setRevealedLocked(target, true)
	if t := s.timers[target]; t != nil {
		t.Stop()
	}
	s.timerSeq[target]++
	seq := s.timerSeq[target]
	s.timers[target] = time.AfterFunc(s.copyWindow, func() {
		s.expireCopy(target, seq)
	})
	s.mu.Unlock()
	s.publish()
	return nil
}

// expireCopy hides the confirmation unless the session was closed or a newer copy replaced it.
func (s *Session) expireCopy(target copyTarget, seq uint64) {
	s.mu.Lock()
	if s.closed || s.timerSeq[target] != seq {
		s.mu.Unlock()
		return
	}
	s.setRevealedLocked(target, false)
	delete(s.timers, target)
	s.mu.Unlock()
	s.publish()
}

func (s *Session) setRevealedLocked(target copyTarget, revealed bool) {
	switch target {
	case copyUsername:
		s.credential.UsernameRevealed = revealed
	case copyPassword:
		s.credential.PasswordRevealed = revealed
	}
}

// Close tears the session down. Pending copy confirmations are cancelled and every later intent
// returns ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for target, t := range s.timers {
		t.Stop()
		delete(s.timers, target)
	}
	s.credential = CredentialState{}
}

func (s *Session) publish() {
	if s.observer == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	v := s.viewLocked()
	s.mu.Unlock()
	s.observer(v)
}
