package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
	"github.com/tendant/simple-useradmin/pkg/quota"
)

func TestHintKeys(t *testing.T) {
	tests := []struct {
		name string
		view View
		want []string
	}{
		{"idle", View{State: Ready}, nil},
		{"saved", View{Outcome: Outcome{Saved: true}}, []string{MsgEntryUpdated}},
		{"quota blocked", View{QuotaBlocked: true}, []string{MsgErrorSubscriptionLimit}},
		{
			"quota rejected on submit",
			View{QuotaBlocked: true, Outcome: Outcome{SaveErr: apperrors.QuotaExceeded(10, 10)}},
			[]string{MsgErrorSubscriptionLimit},
		},
		{
			"generic save failure",
			View{Outcome: Outcome{SaveErr: apperrors.InternalWrap(assert.AnError, "boom")}},
			[]string{MsgErrorSave},
		},
		{
			"invalid email",
			View{Outcome: Outcome{SaveErr: apperrors.InvalidInput("email", "malformed")}},
			[]string{MsgErrorInvalidInput},
		},
		{
			"password change failed",
			View{Outcome: Outcome{Saved: true, PasswordErr: apperrors.InternalWrap(assert.AnError, "boom")}},
			[]string{MsgEntryUpdated, MsgErrorPasswordChange},
		},
		{
			"delete failed",
			View{Outcome: Outcome{DeleteErr: apperrors.PermissionDenied("no")}},
			[]string{MsgErrorPermission},
		},
		{
			"load failed",
			View{LoadErr: apperrors.NotFound("account", "x")},
			[]string{MsgErrorLoad, MsgErrorNotFound},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.HintKeys())
		})
	}
}

func TestHintsTranslate(t *testing.T) {
	v := View{Outcome: Outcome{Saved: true}}
	assert.Equal(t, []string{"The entry has been updated."}, v.Hints(nil))

	german := map[string]string{MsgEntryUpdated: "Der Eintrag wurde aktualisiert."}
	assert.Equal(t, []string{"Der Eintrag wurde aktualisiert."}, v.Hints(func(key string, _ map[string]string) string {
		return german[key]
	}))
	assert.Equal(t, "unknownKey", English("unknownKey", nil))

	blocked := View{QuotaBlocked: true, Quota: quota.Snapshot{CurrentCount: 10, Maximum: 10}}
	assert.Equal(t, []string{"Your subscription does not allow more than 10 users."}, blocked.Hints(nil))
}
