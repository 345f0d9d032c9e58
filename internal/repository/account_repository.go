package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/models"
)

// AccountRepository defines data access for portal accounts.
type AccountRepository interface {
	// Create inserts a new account and fills in its ID and timestamps.
	// Returns ErrDuplicateUsername or ErrDuplicateEmail on unique violations.
	Create(ctx context.Context, account *models.Account) error

	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// UpdateProfile writes the resident-editable profile fields and the
	// phone verification flag, which a changed number resets.
	UpdateProfile(ctx context.Context, account *models.Account) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	SetEmailVerified(ctx context.Context, id int64) error
	SetPhoneVerified(ctx context.Context, id int64) error

	// SetResidentConfirmation, SetActive and SetRole return the updated
	// account, or nil when no account has the given ID.
	SetResidentConfirmation(ctx context.Context, id int64, confirmed bool) (*models.Account, error)
	SetActive(ctx context.Context, id int64, active bool) (*models.Account, error)
	SetRole(ctx context.Context, id int64, role models.Role) (*models.Account, error)

	// TouchAnnouncementsSeen moves the unread-announcement marker forward.
	TouchAnnouncementsSeen(ctx context.Context, id int64, at time.Time) error

	// List returns one page of accounts and the total matching count.
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error)
}

type accountRepository struct {
	db *database.Database
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *database.Database) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `
	id, username, email, password_hash, full_name, contact_number, date_of_birth,
	civil_status, address_line, barangay, city, province, postal_code,
	profile_photo_url, resident_id_photo_url, role, is_active, email_verified,
	phone_verified, resident_confirmation, announcements_seen_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.FullName,
		&a.ContactNumber,
		&a.DateOfBirth,
		&a.CivilStatus,
		&a.AddressLine,
		&a.Barangay,
		&a.City,
		&a.Province,
		&a.PostalCode,
		&a.ProfilePhotoURL,
		&a.ResidentIDPhotoURL,
		&a.Role,
		&a.IsActive,
		&a.EmailVerified,
		&a.PhoneVerified,
		&a.ResidentConfirmation,
		&a.AnnouncementsSeenAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (
			username, email, password_hash, full_name, contact_number, date_of_birth,
			civil_status, address_line, barangay, city, province, postal_code,
			profile_photo_url, resident_id_photo_url, role, is_active,
			email_verified, phone_verified, resident_confirmation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		a.Username, a.Email, a.PasswordHash, a.FullName, a.ContactNumber, a.DateOfBirth,
		a.CivilStatus, a.AddressLine, a.Barangay, a.City, a.Province, a.PostalCode,
		a.ProfilePhotoURL, a.ResidentIDPhotoURL, a.Role, a.IsActive,
		a.EmailVerified, a.PhoneVerified, a.ResidentConfirmation,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, "accounts_username_key"):
		return ErrDuplicateUsername
	case database.IsUniqueViolation(err, "accounts_email_key"):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("failed to insert account %q: %w", a.Username, err)
	}
}

func (r *accountRepository) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	account, err := scanAccount(r.db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, "username = $1", username)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *accountRepository) UpdateProfile(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts SET
			full_name = $2, contact_number = $3, date_of_birth = $4, civil_status = $5,
			address_line = $6, city = $7, province = $8, postal_code = $9,
			profile_photo_url = $10, resident_id_photo_url = $11, phone_verified = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		a.ID, a.FullName, a.ContactNumber, a.DateOfBirth, a.CivilStatus,
		a.AddressLine, a.City, a.Province, a.PostalCode,
		a.ProfilePhotoURL, a.ResidentIDPhotoURL, a.PhoneVerified,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update profile for account %d: %w", a.ID, err)
	}
	return nil
}

func (r *accountRepository) exec(ctx context.Context, what string, query string, args ...any) error {
	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, "update password",
		`UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

func (r *accountRepository) SetEmailVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark email verified",
		`UPDATE accounts SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *accountRepository) SetPhoneVerified(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark phone verified",
		`UPDATE accounts SET phone_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *accountRepository) TouchAnnouncementsSeen(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, "update announcement marker",
		`UPDATE accounts SET announcements_seen_at = GREATEST(COALESCE(announcements_seen_at, $2), $2) WHERE id = $1`, id, at)
}

func (r *accountRepository) updateReturning(ctx context.Context, set string, id int64, value any) (*models.Account, error) {
	query := `UPDATE accounts SET ` + set + ` = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + accountColumns
	account, err := scanAccount(r.db.Pool.QueryRow(ctx, query, id, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update %s for account %d: %w", set, id, err)
	}
	return account, nil
}

func (r *accountRepository) SetResidentConfirmation(ctx context.Context, id int64, confirmed bool) (*models.Account, error) {
	return r.updateReturning(ctx, "resident_confirmation", id, confirmed)
}

func (r *accountRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	return r.updateReturning(ctx, "is_active", id, active)
}

func (r *accountRepository) SetRole(ctx context.Context, id int64, role models.Role) (*models.Account, error) {
	return r.updateReturning(ctx, "role", id, role)
}

func (r *accountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	var where whereClause
	if filter.Role != nil {
		where.add("role = ?", *filter.Role)
	}
	if filter.Confirmed != nil {
		where.add("resident_confirmation = ?", *filter.Confirmed)
	}
	if filter.Active != nil {
		where.add("is_active = ?", *filter.Active)
	}
	if filter.Search != "" {
		where.add("(username ILIKE ? OR email ILIKE ? OR full_name ILIKE ?)",
			likePattern(filter.Search), likePattern(filter.Search), likePattern(filter.Search))
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	limitClause, args := where.page(filter.Limit, filter.Offset)
	query := `SELECT ` + accountColumns + ` FROM accounts` + where.String() + ` ORDER BY created_at DESC, id DESC` + limitClause

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, total, nil
}
