package domain

import "time"

// Webhook is a subscriber's registration for one notification kind.
type Webhook struct {
	WebhookID  string
	Subscriber string
	Event      NotificationKind
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
