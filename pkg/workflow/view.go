package workflow

import (
	"strconv"
	"strings"

	"github.com/tendant/simple-useradmin/pkg/account"
	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/quota"
	"github.com/tendant/simple-useradmin/pkg/role"
)

// CredentialState is the password part of the form. It lives only as long as the session.
type CredentialState struct {
	PendingPassword       string
	ConfirmChangePassword bool
	PasswordRevealed      bool
	UsernameRevealed      bool
}

// Outcome reports the last submit or delete. Saving the account and changing its password are
// separate calls, so each carries its own result.
type Outcome struct {
	Saved             bool
	SaveErr           error
	PasswordAttempted bool
	PasswordChanged   bool
	PasswordErr       error
	DeleteErr         error
}

// View is a snapshot of a Session for the presentation layer.
type View struct {
	State         State
	CreateMode    bool
	Actor         account.Actor
	Account       account.Account
	Username      string
	Quota         quota.Snapshot
	QuotaBlocked  bool
	RoleSelection role.RoleSelection
	Credential    CredentialState
	Outcome       Outcome
	LoadErr       error
	RedirectTo    string
}

// Message keys understood by Translate.
const (
	MsgEntryUpdated           = "entryUpdated"
	MsgErrorSave              = "errorSave"
	MsgErrorSubscriptionLimit = "errorSubscriptionLimit"
	MsgErrorPasswordChange    = "errorPasswordChange"
	MsgErrorPasswordTooShort  = "errorPasswordTooShort"
	MsgErrorInvalidInput      = "errorInvalidInput"
	MsgErrorPermission        = "errorPermission"
	MsgErrorNotFound          = "errorNotFound"
	MsgErrorDelete            = "errorDelete"
	MsgErrorLoad              = "errorLoad"
	MsgConfirmDeleteUser      = "confirmDeleteUser"
	MsgCopied                 = "copied"
)

// Translate turns a message key into display text. Params fill {name} placeholders.
type Translate func(key string, params map[string]string) string

// EnglishMessages is the default catalogue.
var EnglishMessages = map[string]string{
	MsgEntryUpdated:           "The entry has been updated.",
	MsgErrorSave:              "The entry could not be saved.",
	MsgErrorSubscriptionLimit: "Your subscription does not allow more than {max} users.",
	MsgErrorPasswordChange:    "The password could not be changed.",
	MsgErrorPasswordTooShort:  "The password is too short.",
	MsgErrorInvalidInput:      "Please check the entered data.",
	MsgErrorPermission:        "You are not allowed to do this.",
	MsgErrorNotFound:          "The user does not exist.",
	MsgErrorDelete:            "The user could not be deleted.",
	MsgErrorLoad:              "The user could not be loaded.",
	MsgConfirmDeleteUser:      "Do you really want to delete this user?",
	MsgCopied:                 "Copied!",
}

// English looks keys up in EnglishMessages and falls back to the key itself.
func English(key string, params map[string]string) string {
	msg, ok := EnglishMessages[key]
	if !ok {
		return key
	}
	if len(params) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params))
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// HintKeys returns the message keys the presentation should show for this view.
func (v View) HintKeys() []string {
	var keys []string
	if v.LoadErr != nil {
		keys = append(keys, MsgErrorLoad, errorKey(v.LoadErr, MsgErrorLoad))
	}
	if v.QuotaBlocked && v.Outcome.SaveErr == nil {
		keys = append(keys, MsgErrorSubscriptionLimit)
	}
	switch {
	case v.Outcome.SaveErr != nil:
		keys = append(keys, errorKey(v.Outcome.SaveErr, MsgErrorSave))
	case v.Outcome.Saved:
		keys = append(keys, MsgEntryUpdated)
	}
	if v.Outcome.PasswordErr != nil {
		keys = append(keys, MsgErrorPasswordChange)
		if apperrors.IsCode(v.Outcome.PasswordErr, apperrors.ErrCodeInvalidCredential) {
			keys = append(keys, MsgErrorPasswordTooShort)
		}
	}
	if v.Outcome.DeleteErr != nil {
		keys = append(keys, errorKey(v.Outcome.DeleteErr, MsgErrorDelete))
	}
	if v.Credential.UsernameRevealed || v.Credential.PasswordRevealed {
		keys = append(keys, MsgCopied)
	}
	return dedupe(keys)
}

// Hints renders HintKeys with t. A nil t uses English.
func (v View) Hints(t Translate) []string {
	if t == nil {
		t = English
	}
	keys := v.HintKeys()
	hints := make([]string, 0, len(keys))
	for _, key := range keys {
		hints = append(hints, t(key, v.hintParams(key)))
	}
	return hints
}

func (v View) hintParams(key string) map[string]string {
	if key == MsgErrorSubscriptionLimit {
		return map[string]string{"max": strconv.Itoa(v.Quota.Maximum)}
	}
	return nil
}

func errorKey(err error, fallback string) string {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeQuotaExceeded:
		return MsgErrorSubscriptionLimit
	case apperrors.ErrCodePermissionDenied:
		return MsgErrorPermission
	case apperrors.ErrCodeNotFound:
		return MsgErrorNotFound
	case apperrors.ErrCodeInvalidInput:
		return MsgErrorInvalidInput
	case apperrors.ErrCodeInvalidCredential:
		return MsgErrorPasswordTooShort
	}
	return fallback
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
