package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/models"
)

const requestIDConstraint = "certificate_requests_request_id_key"

// CertificateRepository defines data access for certificate requests.
type CertificateRepository interface {
	// Insert stores a new request under req.RequestID. A taken identifier is
	// reported as identifier.ErrCollision so the allocator can retry.
	Insert(ctx context.Context, req *models.CertificateRequest) error

	// MaxRequestSequence returns the highest NNNN issued for the year, or 0.
	MaxRequestSequence(ctx context.Context, year int) (int, error)

	FindByRequestID(ctx context.Context, requestID string) (*models.CertificateRequest, error)

	// Update writes every mutable field if the stored version still equals
	// req.Version, then increments req.Version. Returns ErrStaleVersion when
	// the row changed or vanished in between.
	Update(ctx context.Context, req *models.CertificateRequest) error

	// DeleteUnpaid removes the owner's request only while it is unpaid.
	DeleteUnpaid(ctx context.Context, requestID string, accountID int64) (bool, error)

	// Delete removes a request regardless of status.
	Delete(ctx context.Context, requestID string) (bool, error)

	List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error)
}

type certificateRepository struct {
	db *database.Database
}

// NewCertificateRepository creates a new instance of CertificateRepository.
func NewCertificateRepository(db *database.Database) CertificateRepository {
	return &certificateRepository{db: db}
}

const certificateColumns = `
	id, request_id, account_id, certificate_type, purpose, business_name,
	business_type, business_nature, business_address, employee_count,
	proof_image_url, payment_status, payment_mode, payment_reference,
	payment_amount, claim_status, version, created_at, updated_at, paid_at, claimed_at`

func scanCertificate(row pgx.Row) (*models.CertificateRequest, error) {
	var c models.CertificateRequest
	err := row.Scan(
		&c.ID,
		&c.RequestID,
		&c.AccountID,
		&c.CertificateType,
		&c.Purpose,
		&c.BusinessName,
		&c.BusinessType,
		&c.BusinessNature,
		&c.BusinessAddress,
		&c.EmployeeCount,
		&c.ProofImageURL,
		&c.PaymentStatus,
		&c.PaymentMode,
		&c.PaymentReference,
		&c.PaymentAmount,
		&c.ClaimStatus,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.PaidAt,
		&c.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *certificateRepository) Insert(ctx context.Context, c *models.CertificateRequest) error {
	query := `
		INSERT INTO certificate_requests (
			request_id, account_id, certificate_type, purpose, business_name,
			business_type, business_nature, business_address, employee_count,
			proof_image_url, payment_status, payment_mode, payment_reference,
			payment_amount, claim_status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`

	err := r.db.Pool.QueryRow(ctx, query,
		c.RequestID, c.AccountID, c.CertificateType, c.Purpose, c.BusinessName,
		c.BusinessType, c.BusinessNature, c.BusinessAddress, c.EmployeeCount,
		c.ProofImageURL, c.PaymentStatus, c.PaymentMode, c.PaymentReference,
		c.PaymentAmount, c.ClaimStatus, c.Version, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)

	if err != nil {
		if database.IsUniqueViolation(err, requestIDConstraint) {
			return fmt.Errorf("request id %s: %w", c.RequestID, identifier.ErrCollision)
		}
		return fmt.Errorf("failed to insert certificate request %s: %w", c.RequestID, err)
	}
	return nil
}

func (r *certificateRepository) MaxRequestSequence(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("%s-%04d-", identifier.RequestPrefix, year)
	query := `
		SELECT COALESCE(MAX(CAST(split_part(request_id, '-', 3) AS INTEGER)), 0)
		FROM certificate_requests
		WHERE request_id LIKE $1::text AND split_part(request_id, '-', 3) ~ '^[0-9]+$'`

	var maxSeq int
	if err := r.db.Pool.QueryRow(ctx, query, prefix+"%").Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("failed to read max request sequence for %d: %w", year, err)
	}
	return maxSeq, nil
}

func (r *certificateRepository) FindByRequestID(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificate_requests WHERE request_id = $1`
	req, err := scanCertificate(r.db.Pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query certificate request %s: %w", requestID, err)
	}
	return req, nil
}

func (r *certificateRepository) Update(ctx context.Context, c *models.CertificateRequest) error {
	query := `
		UPDATE certificate_requests SET
			payment_status = $3, payment_mode = $4, payment_reference = $5,
			claim_status = $6, paid_at = $7, claimed_at = $8, updated_at = $9,
			version = version + 1
		WHERE request_id = $1 AND version = $2`

	tag, err := r.db.Pool.Exec(ctx, query,
		c.RequestID, c.Version,
		c.PaymentStatus, c.PaymentMode, c.PaymentReference,
		c.ClaimStatus, c.PaidAt, c.ClaimedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate request %s: %w", c.RequestID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVersion
	}
	c.Version++
	return nil
}

func (r *certificateRepository) DeleteUnpaid(ctx context.Context, requestID string, accountID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM certificate_requests WHERE request_id = $1 AND account_id = $2 AND payment_status = $3`,
		requestID, accountID, models.PaymentUnpaid)
	if err != nil {
		return false, fmt.Errorf("failed to delete certificate request %s: %w", requestID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *certificateRepository) Delete(ctx context.Context, requestID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM certificate_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return false, fmt.Errorf("failed to delete certificate request %s: %w", requestID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *certificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	var where whereClause
	if filter.AccountID != nil {
		where.add("account_id = ?", *filter.AccountID)
	}
	if filter.CertificateType != nil {
		where.add("certificate_type = ?", *filter.CertificateType)
	}
	if filter.PaymentStatus != nil {
		where.add("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.ClaimStatus != nil {
		where.add("claim_status = ?", *filter.ClaimStatus)
	}
	if filter.PaymentMode != nil {
		where.add("payment_mode = ?", *filter.PaymentMode)
	}
	if filter.Search != "" {
		where.add("(request_id ILIKE ? OR purpose ILIKE ? OR payment_reference ILIKE ?)",
			likePattern(filter.Search), likePattern(filter.Search), likePattern(filter.Search))
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM certificate_requests`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count certificate requests: %w", err)
	}

	limitClause, args := where.page(filter.Limit, filter.Offset)
	query := `SELECT ` + certificateColumns + ` FROM certificate_requests` + where.String() +
		` ORDER BY created_at DESC, id DESC` + limitClause

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list certificate requests: %w", err)
	}
	defer rows.Close()

	requests := []models.CertificateRequest{}
	for rows.Next() {
		req, err := scanCertificate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan certificate request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating certificate requests: %w", err)
	}

	return requests, total, nil
}
