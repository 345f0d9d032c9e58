package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/models"
)

// NotificationRepository is the notification outbox.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *models.Notification) error

	// ClaimDue leases up to limit pending notifications whose next attempt is
	// due, pushing their next_attempt_at to now+lease so concurrent
	// dispatchers skip them.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error)

	MarkSent(ctx context.Context, id int64, at time.Time) error

	// MarkRetry records a failed attempt and schedules the next one.
	MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error

	// MarkFailed records the final failed attempt.
	MarkFailed(ctx context.Context, id int64, attempts int, lastErr string) error
}

type notificationRepository struct {
	db *database.Database
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *database.Database) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Enqueue(ctx context.Context, n *models.Notification) error {
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	query := `
		INSERT INTO notifications (channel, recipient, subject, body, status, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, next_attempt_at, created_at`

	var next *time.Time
	if !n.NextAttemptAt.IsZero() {
		next = &n.NextAttemptAt
	}

	err := r.db.Pool.QueryRow(ctx, query, n.Channel, n.Recipient, n.Subject, n.Body, n.Status, next).
		Scan(&n.ID, &n.NextAttemptAt, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", n.Channel, err)
	}
	return nil
}

func (r *notificationRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error) {
	var claimed []models.Notification

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE notifications SET next_attempt_at = $2
			WHERE id IN (
				SELECT id FROM notifications
				WHERE status = 'pending' AND next_attempt_at <= $1
				ORDER BY next_attempt_at, id
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, channel, recipient, subject, body, status, attempts, last_error, next_attempt_at, created_at, sent_at`

		rows, err := tx.Query(ctx, query, now, now.Add(lease), limit)
		if err != nil {
			return fmt.Errorf("failed to claim notifications: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var n models.Notification
			if err := rows.Scan(
				&n.ID,
				&n.Channel,
				&n.Recipient,
				&n.Subject,
				&n.Body,
				&n.Status,
				&n.Attempts,
				&n.LastError,
				&n.NextAttemptAt,
				&n.CreatedAt,
				&n.SentAt,
			); err != nil {
				return fmt.Errorf("failed to scan notification: %w", err)
			}
			claimed = append(claimed, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE notifications SET status = 'sent', attempts = attempts + 1, sent_at = $2, last_error = '' WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d sent: %w", id, err)
	}
	return nil
}

func (r *notificationRepository) MarkRetry(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE notifications SET attempts = $2, next_attempt_at = $3, last_error = $4 WHERE id = $1`,
		id, attempts, next, lastErr)
	if err != nil {
		return fmt.Errorf("failed to reschedule notification %d: %w", id, err)
	}
	return nil
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE notifications SET status = 'failed', attempts = $2, last_error = $3 WHERE id = $1`,
		id, attempts, lastErr)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d failed: %w", id, err)
	}
	return nil
}
