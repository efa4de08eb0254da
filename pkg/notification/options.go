package notification

import (
	"embed"
	"fmt"
)

//go:embed templates/*
var templateFiles embed.FS

// NotificationManagerOption configures a NotificationManager.
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP delivers email notices through an SMTP server.
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers any notifier, e.g. a MockNotifier in tests.
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// emailTemplate registers an email notice whose HTML body lives under templates/email.
func emailTemplate(noticeType NoticeType, subject, text, htmlFile string) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		html, err := templateFiles.ReadFile("templates/email/" + htmlFile)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", htmlFile, err)
		}
		return nm.RegisterNotification(noticeType, EmailSystem, NoticeTemplate{
			Subject: subject,
			Text:    text,
			Html:    string(html),
		})
	}
}

// WithAccountCreatedTemplate tells a new human account holder to sign in and pick a password.
func WithAccountCreatedTemplate() NotificationManagerOption {
	return emailTemplate(AccountCreated,
		"Your account has been created",
		"An account has been created for {{.Email}}. Sign in at {{.Link}} to choose your password.",
		"account_created.html")
}

// WithPasswordSetTemplate warns a human account holder that an administrator replaced their password.
func WithPasswordSetTemplate() NotificationManagerOption {
	return emailTemplate(PasswordSetByAdmin,
		"Your password has been changed",
		"An administrator has set a new password for {{.Email}}. Sign in at {{.Link}}.",
		"password_set.html")
}

func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		for _, opt := range []NotificationManagerOption{
			WithAccountCreatedTemplate(),
			WithPasswordSetTemplate(),
		} {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions builds a manager and applies opts in order.
func NewNotificationManagerWithOptions(baseUrl string, opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := NewNotificationManager(baseUrl)
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}
