// Package notification sends notices (currently "account created") over registered channels.
//
// A NotificationManager maps notice types to per-system templates and routes each Send to the
// notifiers registered for those systems. Email delivery uses SMTP through go-mail.
//
// # Basic Usage
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//		"https://admin.example.com/login",
//		notification.WithSMTP(notification.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}),
//		notification.WithDefaultTemplates(),
//	)
//
//	err = nm.Send(notification.AccountCreated, notification.NotificationData{
//		To:   "alice@example.com",
//		Data: map[string]string{"Email": "alice@example.com"},
//	})
//
// Tests register a MockNotifier with WithNotifier and inspect Sent().
package notification
