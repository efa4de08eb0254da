package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager("")

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{"text and html", AccountCreated, EmailSystem, NoticeTemplate{Subject: "Example", Text: "hi", Html: "<p>hi</p>"}, false},
		{"text only", AccountCreated, EmailSystem, NoticeTemplate{Subject: "Example", Text: "hi"}, false},
		{"empty type", "", EmailSystem, NoticeTemplate{Text: "hi"}, true},
		{"empty system", AccountCreated, "", NoticeTemplate{Text: "hi"}, true},
		{"no body", AccountCreated, EmailSystem, NoticeTemplate{Subject: "Example"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendRoutesToNotifier(t *testing.T) {
	mock := &MockNotifier{}
	nm, err := NewNotificationManagerWithOptions("https://admin.example.com/login",
		WithNotifier(EmailSystem, mock),
		WithDefaultTemplates(),
	)
	require.NoError(t, err)

	err = nm.Send(AccountCreated, NotificationData{
		To:   "alice@example.com",
		Data: map[string]string{"Email": "alice@example.com"},
	})
	require.NoError(t, err)

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, "https://admin.example.com/login", sent[0].Data["Link"])
}

func TestSendErrors(t *testing.T) {
	nm := NewNotificationManager("")
	assert.Error(t, nm.Send(AccountCreated, NotificationData{To: "a@example.com"}))

	require.NoError(t, nm.RegisterNotification(AccountCreated, EmailSystem, NoticeTemplate{Text: "x"}))
	assert.Error(t, nm.Send(AccountCreated, NotificationData{To: "a@example.com"}), "no notifier registered")

	failing := &MockNotifier{Err: errors.New("smtp down")}
	nm.RegisterNotifier(EmailSystem, failing)
	assert.EqualError(t, nm.Send(AccountCreated, NotificationData{To: "a@example.com"}), "smtp down")
}

func TestEmailNotifierBuildMessage(t *testing.T) {
	n, err := NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@example.com"})
	require.NoError(t, err)

	msg, err := n.buildMessage(NotificationData{
		To:   "bob@example.com",
		Data: map[string]string{"Email": "bob@example.com", "Link": "https://x"},
	}, NoticeTemplate{Subject: "Hello", Text: "Hi {{.Email}}", Html: "<p>{{.Link}}</p>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, msg.GetGenHeader("Subject"))

	_, err = n.buildMessage(NotificationData{}, NoticeTemplate{Text: "x"})
	assert.Error(t, err)

	_, err = NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 25})
	assert.Error(t, err)
}
