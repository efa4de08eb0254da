package notification

// NoticeType identifies a kind of notice, e.g. "account_created".
type NoticeType string

// NotificationSystem represents a delivery channel.
type NotificationSystem string

const (
	EmailSystem NotificationSystem = "email"

	AccountCreated     NoticeType = "account_created"
	PasswordSetByAdmin NoticeType = "password_set_by_admin"
)

type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address)
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: raw content when no template applies
	Data    map[string]string // Template values
}

// NoticeTemplate holds the subject and the text/HTML bodies of a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
