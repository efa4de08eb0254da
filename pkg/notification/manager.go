package notification

import (
	"fmt"
	"sync"
)

// NotificationManager routes notices to the notifiers registered for them.
type NotificationManager struct {
	mu                   sync.RWMutex
	baseUrl              string
	notifiers            map[NotificationSystem]Notifier
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
// baseUrl is exposed to templates as the "Link" value when the caller does not set one.
func NewNotificationManager(baseUrl string) *NotificationManager {
	return &NotificationManager{
		baseUrl:              baseUrl,
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a template for a notice type on one system.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid input: template needs a text or html body")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers a notice on every system that has both a template and a notifier.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	nm.mu.RLock()
	systemTemplates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		nm.mu.RUnlock()
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}
	type delivery struct {
		notifier Notifier
		template NoticeTemplate
	}
	var deliveries []delivery
	for system, template := range systemTemplates {
		if notifier, ok := nm.notifiers[system]; ok {
			deliveries = append(deliveries, delivery{notifier: notifier, template: template})
		}
	}
	nm.mu.RUnlock()

	if len(deliveries) == 0 {
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}

	if notification.Data == nil {
		notification.Data = map[string]string{}
	}
	if _, ok := notification.Data["Link"]; !ok && nm.baseUrl != "" {
		notification.Data["Link"] = nm.baseUrl
	}

	for _, d := range deliveries {
		template := d.template
		if notification.Subject != "" {
			template.Subject = notification.Subject
		}
		if err := d.notifier.Send(noticeType, notification, template); err != nil {
			return err
		}
	}
	return nil
}
