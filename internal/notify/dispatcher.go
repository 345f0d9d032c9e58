package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labang-online/portal/internal/config"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

const (
	baseBackoff = 30 * time.Second
	maxBackoff  = time.Hour
	claimLease  = 5 * time.Minute
	sendTimeout = 30 * time.Second
)

// EmailTransport delivers one email.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSTransport delivers one text message.
type SMSTransport interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher drains the outbox.
type Dispatcher struct {
	repo        repository.NotificationRepository
	email       EmailTransport
	sms         SMSTransport
	log         *logger.Logger
	now         func() time.Time
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewDispatcher creates a dispatcher from outbox configuration.
func NewDispatcher(repo repository.NotificationRepository, email EmailTransport, sms SMSTransport, cfg config.OutboxConfig, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		repo:        repo,
		email:       email,
		sms:         sms,
		log:         log.Component("outbox"),
		now:         time.Now,
		interval:    cfg.PollInterval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
	}
	if d.interval <= 0 {
		d.interval = 5 * time.Second
	}
	if d.batchSize <= 0 {
		d.batchSize = 20
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 5
	}
	return d
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("Notification dispatcher started", map[string]interface{}{
		"interval":     d.interval.String(),
		"batch_size":   d.batchSize,
		"max_attempts": d.maxAttempts,
	})

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("Outbox poll failed", err, nil)
		}

		select {
		case <-ctx.Done():
			d.log.Info("Notification dispatcher stopped", nil)
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due notifications and attempts each of them.
// It returns the number of rows processed.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	batch, err := d.repo.ClaimDue(ctx, d.now(), claimLease, d.batchSize)
	if err != nil {
		return 0, err
	}
	for _, n := range batch {
		d.deliver(ctx, n)
	}
	return len(batch), nil
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err := d.send(sendCtx, n)
	cancel()

	attempts := n.Attempts + 1
	fields := map[string]interface{}{
		"notification_id": n.ID,
		"channel":         n.Channel,
		"attempts":        attempts,
	}

	if err == nil {
		if markErr := d.repo.MarkSent(ctx, n.ID, d.now()); markErr != nil {
			d.log.Error("Failed to mark notification sent", markErr, fields)
		}
		d.log.Debug("Notification sent", fields)
		return
	}

	if errors.Is(err, ErrDisabled) || attempts >= d.maxAttempts {
		if markErr := d.repo.MarkFailed(ctx, n.ID, attempts, err.Error()); markErr != nil {
			d.log.Error("Failed to mark notification failed", markErr, fields)
		}
		d.log.Warn("Notification delivery gave up", merge(fields, "error", err.Error()))
		return
	}

	next := d.now().Add(Backoff(attempts))
	if markErr := d.repo.MarkRetry(ctx, n.ID, attempts, next, err.Error()); markErr != nil {
		d.log.Error("Failed to reschedule notification", markErr, fields)
	}
	d.log.Warn("Notification delivery failed, will retry", merge(fields, "error", err.Error()))
}

func (d *Dispatcher) send(ctx context.Context, n models.Notification) error {
	switch n.Channel {
	case models.ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("email %w", ErrDisabled)
		}
		return d.email.Send(ctx, n.Recipient, n.Subject, n.Body)
	case models.ChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("sms %w", ErrDisabled)
		}
		return d.sms.Send(ctx, n.Recipient, n.Body)
	default:
		return fmt.Errorf("channel %q %w", n.Channel, ErrDisabled)
	}
}

// Backoff returns the delay before the next attempt after the given number
// of failed attempts: 30s, 1m, 2m, ... capped at one hour.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func merge(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
