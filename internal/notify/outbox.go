// Package notify delivers email and SMS notifications through a database
// outbox so that delivery never blocks or undoes the mutation that caused it.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// ErrDisabled marks a channel that has no credentials configured. Rows that
// fail with it are not retried.
var ErrDisabled = errors.New("disabled")

// Outbox queues notifications for the dispatcher.
type Outbox struct {
	repo repository.NotificationRepository
}

// NewOutbox creates an outbox backed by repo.
func NewOutbox(repo repository.NotificationRepository) *Outbox {
	return &Outbox{repo: repo}
}

// Email queues an email.
func (o *Outbox) Email(ctx context.Context, to, subject, body string) error {
	return o.repo.Enqueue(ctx, &models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: strings.TrimSpace(to),
		Subject:   subject,
		Body:      body,
	})
}

// SMS queues a text message.
func (o *Outbox) SMS(ctx context.Context, to, body string) error {
	return o.repo.Enqueue(ctx, &models.Notification{
		Channel:   models.ChannelSMS,
		Recipient: strings.TrimSpace(to),
		Body:      body,
	})
}
