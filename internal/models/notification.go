package models

import "time"

// NotificationChannel selects the sender used by the outbox dispatcher.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// NotificationStatus tracks outbox delivery.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row awaiting at-least-once delivery.
type Notification struct {
	NextAttemptAt time.Time           `db:"next_attempt_at" json:"next_attempt_at"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	SentAt        *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	Channel       NotificationChannel `db:"channel" json:"channel"`
	Recipient     string              `db:"recipient" json:"recipient"`
	Subject       string              `db:"subject" json:"subject"`
	Body          string              `db:"body" json:"body"`
	Status        NotificationStatus  `db:"status" json:"status"`
	LastError     string              `db:"last_error" json:"last_error,omitempty"`
	ID            int64               `db:"id" json:"id"`
	Attempts      int                 `db:"attempts" json:"attempts"`
}
