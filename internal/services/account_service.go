package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// ErrSelfModification blocks staff from deactivating or demoting themselves.
var ErrSelfModification = errors.New("you cannot change the status or role of your own account")

// ProfileUpdate carries the fields a resident may edit. Nil fields are left as is.
type ProfileUpdate struct {
	FullName           *string
	ContactNumber      *string
	DateOfBirth        *time.Time
	CivilStatus        *string
	AddressLine        *string
	City               *string
	Province           *string
	PostalCode         *string
	ProfilePhotoURL    *string
	ResidentIDPhotoURL *string
}

// AccountService covers profile self-service and staff user management.
type AccountService interface {
	GetProfile(ctx context.Context, accountID int64) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID int64, update ProfileUpdate) (*models.Account, error)

	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error)
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
	VerifyResident(ctx context.Context, actor *models.Account, accountID int64) (*models.Account, error)
	SetActive(ctx context.Context, actor *models.Account, accountID int64, active bool) (*models.Account, error)

	// ChangeRole is restricted to admins.
	ChangeRole(ctx context.Context, actor *models.Account, accountID int64, role models.Role) (*models.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	notifier Notifier
	log      *logger.Logger
}

// NewAccountService creates a new instance of AccountService.
func NewAccountService(accounts repository.AccountRepository, notifier Notifier, log *logger.Logger) AccountService {
	return &accountService{
		accounts: accounts,
		notifier: notifier,
		log:      log.Component("accounts"),
	}
}

func (s *accountService) GetProfile(ctx context.Context, accountID int64) (*models.Account, error) {
	return s.GetAccount(ctx, accountID)
}

func (s *accountService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func applyString(dst *string, src *string, field string, required bool) error {
	if src == nil {
		return nil
	}
	value := strings.TrimSpace(*src)
	if required && value == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidation, field)
	}
	*dst = value
	return nil
}

func (s *accountService) UpdateProfile(ctx context.Context, accountID int64, u ProfileUpdate) (*models.Account, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	previousContact := account.ContactNumber
	steps := []struct {
		dst      *string
		src      *string
		field    string
		required bool
	}{
		{&account.FullName, u.FullName, "full_name", true},
		{&account.ContactNumber, u.ContactNumber, "contact_number", true},
		{&account.CivilStatus, u.CivilStatus, "civil_status", false},
		{&account.AddressLine, u.AddressLine, "address_line", true},
		{&account.City, u.City, "city", true},
		{&account.Province, u.Province, "province", true},
		{&account.PostalCode, u.PostalCode, "postal_code", true},
		{&account.ProfilePhotoURL, u.ProfilePhotoURL, "profile_photo_url", false},
		{&account.ResidentIDPhotoURL, u.ResidentIDPhotoURL, "resident_id_photo_url", false},
	}
	for _, step := range steps {
		if err := applyString(step.dst, step.src, step.field, step.required); err != nil {
			return nil, err
		}
	}

	// A changed number has to be verified again.
	if account.ContactNumber != previousContact {
		account.PhoneVerified = false
	}
	if u.DateOfBirth != nil {
		if u.DateOfBirth.After(time.Now()) {
			return nil, fmt.Errorf("%w: date_of_birth cannot be in the future", ErrValidation)
		}
		account.DateOfBirth = u.DateOfBirth
	}

	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.log.Info("Profile updated", map[string]interface{}{"account_id": accountID})
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrValidation, *filter.Role)
	}
	return s.accounts.List(ctx, filter)
}

func (s *accountService) VerifyResident(ctx context.Context, actor *models.Account, accountID int64) (*models.Account, error) {
	account, err := s.accounts.SetResidentConfirmation(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	s.log.Info("Resident verified", map[string]interface{}{
		"account_id": accountID,
		"actor_id":   actor.ID,
	})
	notifyEmail(ctx, s.notifier, s.log, account.Email,
		"Your Labang Online account is verified",
		fmt.Sprintf("Hi %s,\n\nBarangay staff verified your residency. You can now sign in and request certificates.", account.FullName))
	return account, nil
}

func (s *accountService) SetActive(ctx context.Context, actor *models.Account, accountID int64, active bool) (*models.Account, error) {
	if actor.ID == accountID && !active {
		return nil, ErrSelfModification
	}
	target, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	account, err := s.accounts.SetActive(ctx, accountID, active)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	s.log.Info("Account active flag changed", map[string]interface{}{
		"account_id": accountID,
		"actor_id":   actor.ID,
		"active":     active,
	})
	return account, nil
}

func (s *accountService) ChangeRole(ctx context.Context, actor *models.Account, accountID int64, role models.Role) (*models.Account, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be resident, staff or admin", ErrValidation)
	}
	if actor.ID == accountID {
		return nil, ErrSelfModification
	}

	account, err := s.accounts.SetRole(ctx, accountID, role)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	s.log.Info("Account role changed", map[string]interface{}{
		"account_id": accountID,
		"actor_id":   actor.ID,
		"role":       role,
	})
	return account, nil
}
