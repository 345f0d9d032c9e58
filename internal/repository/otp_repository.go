package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/models"
)

// OTPRepository defines data access for one-time codes.
type OTPRepository interface {
	// Replace marks every unused code for (account, purpose) used and inserts
	// code in the same transaction, filling in its ID and CreatedAt.
	Replace(ctx context.Context, code *models.OneTimeCode) error

	// ConsumeLatest locks the most recent unused code for (account, purpose)
	// and passes it to check (nil when there is none). When check returns nil
	// the code is marked used before the transaction commits; otherwise the
	// check error is returned and the code is left untouched.
	ConsumeLatest(ctx context.Context, accountID int64, purpose models.CodePurpose, check func(*models.OneTimeCode) error) error
}

type otpRepository struct {
	db *database.Database
}

// NewOTPRepository creates a new instance of OTPRepository.
func NewOTPRepository(db *database.Database) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Replace(ctx context.Context, code *models.OneTimeCode) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := invalidateCodes(ctx, tx, code.AccountID, code.Purpose); err != nil {
			return err
		}

		query := `
			INSERT INTO one_time_codes (account_id, purpose, code, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`
		err := tx.QueryRow(ctx, query, code.AccountID, code.Purpose, code.Code, code.ExpiresAt).
			Scan(&code.ID, &code.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert %s code for account %d: %w", code.Purpose, code.AccountID, err)
		}
		return nil
	})
}

func invalidateCodes(ctx context.Context, q querier, accountID int64, purpose models.CodePurpose) error {
	_, err := q.Exec(ctx,
		`UPDATE one_time_codes SET used = TRUE WHERE account_id = $1 AND purpose = $2 AND used = FALSE`,
		accountID, purpose)
	if err != nil {
		return fmt.Errorf("failed to invalidate %s codes for account %d: %w", purpose, accountID, err)
	}
	return nil
}

func (r *otpRepository) ConsumeLatest(ctx context.Context, accountID int64, purpose models.CodePurpose, check func(*models.OneTimeCode) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT id, account_id, purpose, code, created_at, expires_at, used
			FROM one_time_codes
			WHERE account_id = $1 AND purpose = $2 AND used = FALSE
			ORDER BY created_at DESC, id DESC
			LIMIT 1
			FOR UPDATE`

		var code models.OneTimeCode
		err := tx.QueryRow(ctx, query, accountID, purpose).Scan(
			&code.ID,
			&code.AccountID,
			&code.Purpose,
			&code.Code,
			&code.CreatedAt,
			&code.ExpiresAt,
			&code.Used,
		)

		var current *models.OneTimeCode
		switch {
		case err == nil:
			current = &code
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return fmt.Errorf("failed to load %s code for account %d: %w", purpose, accountID, err)
		}

		if err := check(current); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE one_time_codes SET used = TRUE WHERE id = $1`, code.ID); err != nil {
			return fmt.Errorf("failed to mark code %d used: %w", code.ID, err)
		}
		return nil
	})
}
