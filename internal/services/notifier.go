package services

import (
	"context"

	"github.com/labang-online/portal/internal/logger"
)

// Notifier queues outbound messages for asynchronous delivery.
type Notifier interface {
	Email(ctx context.Context, to, subject, body string) error
	SMS(ctx context.Context, to, body string) error
}

// notifyEmail queues an email and logs a failure. The caller's mutation has
// already committed and is never undone.
func notifyEmail(ctx context.Context, n Notifier, log *logger.Logger, to, subject, body string) {
	if n == nil || to == "" {
		return
	}
	if err := n.Email(ctx, to, subject, body); err != nil {
		log.Error("Failed to queue email notification", err, map[string]interface{}{
			"subject": subject,
		})
	}
}

func notifySMS(ctx context.Context, n Notifier, log *logger.Logger, to, body string) {
	if n == nil || to == "" {
		return
	}
	if err := n.SMS(ctx, to, body); err != nil {
		log.Error("Failed to queue SMS notification", err, nil)
	}
}
