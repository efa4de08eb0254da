package notification

import "sync"

type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	Err               error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	return nil
}

// Sent returns a copy of the notifications delivered so far.
func (m *MockNotifier) Sent() []NotificationData {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotificationData, len(m.SentNotifications))
	copy(out, m.SentNotifications)
	return out
}
