package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// ServedBarangay is the only barangay whose residents may register.
const ServedBarangay = "Labangon"

// Registration defaults
const (
	DefaultCity       = "Cebu City"
	DefaultProvince   = "Cebu"
	DefaultPostalCode = "6000"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrVerificationPending = errors.New("your account is pending verification by barangay staff")
	ErrAccountDeactivated  = errors.New("this account has been deactivated")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrEmailTaken          = errors.New("an account with this email already exists")
	ErrBarangayNotServed   = errors.New("registration is only open to residents of Barangay " + ServedBarangay)
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrInvalidResetToken   = errors.New("password reset link is invalid or has already been used")
)

// TokenIssuer signs and verifies session and reset tokens.
type TokenIssuer interface {
	IssueSession(account *models.Account) (auth.IssuedToken, error)
	IssueReset(accountID int64) (auth.IssuedToken, error)
	Parse(token string, kind auth.TokenKind) (*auth.Claims, error)
}

// ResetTokenStore makes reset tokens single-use.
type ResetTokenStore interface {
	Remember(ctx context.Context, jti string, accountID int64, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (int64, error)
}

// RegisterInput is the resident sign-up form.
type RegisterInput struct {
	DateOfBirth     *time.Time
	Username        string
	Email           string
	FullName        string
	ContactNumber   string
	AddressLine     string
	Barangay        string
	City            string
	Province        string
	PostalCode      string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Account   *models.Account
	ExpiresAt time.Time
	Token     string
}

// AuthService handles registration, login, verification and password reset.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// ForgotPassword issues a reset code when the email is known. It returns
	// nil for unknown emails so callers answer both cases the same way.
	ForgotPassword(ctx context.Context, email string) (*models.Account, error)
	ResendResetCode(ctx context.Context, accountID int64) error

	// VerifyResetCode consumes a reset code and returns a single-use reset token.
	VerifyResetCode(ctx context.Context, accountID int64, code string) (auth.IssuedToken, error)
	ResetPassword(ctx context.Context, token, password, confirm string) error

	// SendVerification issues an email or phone verification code.
	SendVerification(ctx context.Context, accountID int64, purpose models.CodePurpose) error
	ConfirmVerification(ctx context.Context, accountID int64, purpose models.CodePurpose, code string) (*models.Account, error)
}

type authService struct {
	accounts repository.AccountRepository
	otp      OTPService
	tokens   TokenIssuer
	resets   ResetTokenStore
	notifier Notifier
	log      *logger.Logger
	resetTTL time.Duration
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(
	accounts repository.AccountRepository,
	otp OTPService,
	tokens TokenIssuer,
	resets ResetTokenStore,
	notifier Notifier,
	resetTTL time.Duration,
	log *logger.Logger,
) AuthService {
	return &authService{
		accounts: accounts,
		otp:      otp,
		tokens:   tokens,
		resets:   resets,
		notifier: notifier,
		log:      log.Component("auth"),
		resetTTL: resetTTL,
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if !strings.EqualFold(strings.TrimSpace(in.Barangay), ServedBarangay) {
		return nil, ErrBarangayNotServed
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	account := &models.Account{
		Username:      strings.TrimSpace(in.Username),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(in.FullName),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		DateOfBirth:   in.DateOfBirth,
		AddressLine:   strings.TrimSpace(in.AddressLine),
		Barangay:      ServedBarangay,
		City:          orDefault(in.City, DefaultCity),
		Province:      orDefault(in.Province, DefaultProvince),
		PostalCode:    orDefault(in.PostalCode, DefaultPostalCode),
		Role:          models.RoleResident,
		IsActive:      true,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		s.log.Error("Failed to create account", err, map[string]interface{}{"username": account.Username})
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info("Account registered", map[string]interface{}{
		"account_id": account.ID,
		"username":   account.Username,
	})

	notifyEmail(ctx, s.notifier, s.log, account.Email,
		"Welcome to Labang Online",
		fmt.Sprintf("Hi %s,\n\nYour registration was received. Barangay staff will verify your residency before you can sign in.", account.FullName))

	return account, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil || !auth.CheckPassword(account.PasswordHash, password) {
		s.log.Warn("Login failed", map[string]interface{}{"username": username})
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}
	if !account.CanAccessPortal() && !account.CanAccessAdmin() {
		return nil, ErrVerificationPending
	}

	issued, err := s.tokens.IssueSession(account)
	if err != nil {
		return nil, err
	}

	s.log.Info("Login succeeded", map[string]interface{}{
		"account_id": account.ID,
		"role":       account.Role,
	})
	return &LoginResult{Account: account, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil || !account.IsActive {
		s.log.Info("Password reset requested for unknown email", nil)
		return nil, nil
	}

	if err := s.sendResetCode(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *authService) ResendResetCode(ctx context.Context, accountID int64) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return s.sendResetCode(ctx, account)
}

func (s *authService) sendResetCode(ctx context.Context, account *models.Account) error {
	code, err := s.otp.Issue(ctx, account.ID, models.PurposePasswordReset)
	if err != nil {
		return err
	}
	notifyEmail(ctx, s.notifier, s.log, account.Email,
		"Labang Online password reset code",
		fmt.Sprintf("Your password reset code is %s. It expires at %s.", code.Code, code.ExpiresAt.Format(time.Kitchen)))
	return nil
}

func (s *authService) VerifyResetCode(ctx context.Context, accountID int64, code string) (auth.IssuedToken, error) {
	if _, err := s.loadAccount(ctx, accountID); err != nil {
		return auth.IssuedToken{}, err
	}
	if err := s.otp.Validate(ctx, accountID, models.PurposePasswordReset, strings.TrimSpace(code)); err != nil {
		return auth.IssuedToken{}, err
	}

	issued, err := s.tokens.IssueReset(accountID)
	if err != nil {
		return auth.IssuedToken{}, err
	}
	if err := s.resets.Remember(ctx, issued.ID, accountID, s.resetTTL); err != nil {
		return auth.IssuedToken{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return issued, nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	claims, err := s.tokens.Parse(token, auth.KindPasswordReset)
	if err != nil {
		return ErrInvalidResetToken
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return err
	}

	owner, err := s.resets.Consume(ctx, claims.ID)
	if err != nil || owner != claims.AccountID {
		return ErrInvalidResetToken
	}

	account, err := s.loadAccount(ctx, claims.AccountID)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log.Info("Password reset", map[string]interface{}{"account_id": account.ID})
	notifyEmail(ctx, s.notifier, s.log, account.Email,
		"Your Labang Online password was changed",
		"Your password was just reset. If this wasn't you, contact the barangay office immediately.")
	return nil
}

func verificationPurpose(purpose models.CodePurpose) error {
	if purpose != models.PurposeEmail && purpose != models.PurposePhone {
		return fmt.Errorf("%w: verification must be email or phone", ErrValidation)
	}
	return nil
}

func (s *authService) SendVerification(ctx context.Context, accountID int64, purpose models.CodePurpose) error {
	if err := verificationPurpose(purpose); err != nil {
		return err
	}
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	code, err := s.otp.Issue(ctx, accountID, purpose)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your Labang Online verification code is %s.", code.Code)
	if purpose == models.PurposePhone {
		notifySMS(ctx, s.notifier, s.log, account.ContactNumber, message)
	} else {
		notifyEmail(ctx, s.notifier, s.log, account.Email, "Verify your email address", message)
	}
	return nil
}

func (s *authService) ConfirmVerification(ctx context.Context, accountID int64, purpose models.CodePurpose, code string) (*models.Account, error) {
	if err := verificationPurpose(purpose); err != nil {
		return nil, err
	}
	if err := s.otp.Validate(ctx, accountID, purpose, strings.TrimSpace(code)); err != nil {
		return nil, err
	}

	var err error
	if purpose == models.PurposePhone {
		err = s.accounts.SetPhoneVerified(ctx, accountID)
	} else {
		err = s.accounts.SetEmailVerified(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	return s.loadAccount(ctx, accountID)
}

func (s *authService) loadAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}
