package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

var (
	// ErrCodeInvalid covers a missing, mismatched or already used code.
	ErrCodeInvalid = errors.New("invalid verification code")
	ErrCodeExpired = errors.New("verification code has expired")
)

// OTPService issues and validates one-time codes. The same rules apply to
// email verification, phone verification and password reset.
type OTPService interface {
	// Issue invalidates earlier unused codes for (account, purpose) and
	// returns a fresh code.
	Issue(ctx context.Context, accountID int64, purpose models.CodePurpose) (*models.OneTimeCode, error)

	// Validate consumes the latest unused code when it matches and is unexpired.
	// Returns ErrCodeInvalid or ErrCodeExpired otherwise.
	Validate(ctx context.Context, accountID int64, purpose models.CodePurpose, code string) error
}

type otpService struct {
	repo     repository.OTPRepository
	log      *logger.Logger
	now      func() time.Time
	generate func() (string, error)
	ttl      time.Duration
}

// OTPOption configures the OTP service.
type OTPOption func(*otpService)

// WithOTPClock replaces time.Now.
func WithOTPClock(now func() time.Time) OTPOption {
	return func(s *otpService) { s.now = now }
}

// WithCodeGenerator replaces the crypto/rand code source.
func WithCodeGenerator(generate func() (string, error)) OTPOption {
	return func(s *otpService) { s.generate = generate }
}

// NewOTPService creates a new instance of OTPService.
func NewOTPService(repo repository.OTPRepository, ttl time.Duration, log *logger.Logger, opts ...OTPOption) OTPService {
	s := &otpService{
		repo:     repo,
		log:      log.Component("otp"),
		now:      time.Now,
		generate: func() (string, error) { return auth.GenerateCode(CodeLength) },
		ttl:      ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *otpService) Issue(ctx context.Context, accountID int64, purpose models.CodePurpose) (*models.OneTimeCode, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: unknown code purpose %q", ErrValidation, purpose)
	}

	value, err := s.generate()
	if err != nil {
		return nil, err
	}

	code := &models.OneTimeCode{
		AccountID: accountID,
		Purpose:   purpose,
		Code:      value,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.Replace(ctx, code); err != nil {
		s.log.Error("Failed to store one-time code", err, map[string]interface{}{
			"account_id": accountID,
			"purpose":    purpose,
		})
		return nil, fmt.Errorf("failed to issue code: %w", err)
	}

	s.log.Info("One-time code issued", map[string]interface{}{
		"account_id": accountID,
		"purpose":    purpose,
		"expires_at": code.ExpiresAt,
	})
	return code, nil
}

func (s *otpService) Validate(ctx context.Context, accountID int64, purpose models.CodePurpose, code string) error {
	if len(code) != CodeLength {
		return ErrCodeInvalid
	}

	now := s.now()
	err := s.repo.ConsumeLatest(ctx, accountID, purpose, func(current *models.OneTimeCode) error {
		if current == nil || current.Used {
			return ErrCodeInvalid
		}
		if subtle.ConstantTimeCompare([]byte(current.Code), []byte(code)) != 1 {
			return ErrCodeInvalid
		}
		if current.IsExpiredAt(now) {
			return ErrCodeExpired
		}
		return nil
	})

	switch {
	case err == nil:
		s.log.Info("One-time code accepted", map[string]interface{}{
			"account_id": accountID,
			"purpose":    purpose,
		})
		return nil
	case errors.Is(err, ErrCodeInvalid), errors.Is(err, ErrCodeExpired):
		s.log.Warn("One-time code rejected", map[string]interface{}{
			"account_id": accountID,
			"purpose":    purpose,
			"reason":     err.Error(),
		})
		return err
	default:
		return fmt.Errorf("failed to validate code: %w", err)
	}
}
