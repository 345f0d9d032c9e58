package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// exportLimit caps how many rows a single spreadsheet export reads.
const exportLimit = 200

// CertificateExporter renders certificate requests as a downloadable file.
type CertificateExporter interface {
	Certificates(requests []models.CertificateRequest) ([]byte, error)
}

// CertificateService runs the certificate request lifecycle for residents and staff.
type CertificateService interface {
	// Create validates the form and stores the request under a freshly
	// allocated REQ-YYYY-NNNN identifier.
	Create(ctx context.Context, accountID int64, in lifecycle.CertificateInput) (*models.CertificateRequest, error)

	ListForAccount(ctx context.Context, accountID int64, filter models.CertificateFilter) ([]models.CertificateRequest, int, error)

	// GetForAccount returns ErrForbidden when the request belongs to someone else.
	GetForAccount(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error)
	SelectPaymentMode(ctx context.Context, accountID int64, requestID string, mode models.PaymentMode) (*models.CertificateRequest, error)
	SubmitGCashReference(ctx context.Context, accountID int64, requestID, reference string) (*models.CertificateRequest, error)
	ConfirmCounterPayment(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error)

	// Cancel hard-deletes the owner's request while it is still unpaid.
	Cancel(ctx context.Context, accountID int64, requestID string) error

	List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error)
	Get(ctx context.Context, requestID string) (*models.CertificateRequest, error)
	VerifyPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error)
	RejectPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error)
	UpdateClaimStatus(ctx context.Context, requestID string, status models.ClaimStatus) (*models.CertificateRequest, error)
	Delete(ctx context.Context, requestID string) error
	Export(ctx context.Context, filter models.CertificateFilter) ([]byte, error)
}

type certificateService struct {
	repo      repository.CertificateRepository
	accounts  repository.AccountRepository
	allocator *identifier.Allocator
	exporter  CertificateExporter
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
}

// NewCertificateService creates a new instance of CertificateService.
func NewCertificateService(
	repo repository.CertificateRepository,
	accounts repository.AccountRepository,
	allocator *identifier.Allocator,
	exporter CertificateExporter,
	notifier Notifier,
	log *logger.Logger,
) CertificateService {
	return &certificateService{
		repo:      repo,
		accounts:  accounts,
		allocator: allocator,
		exporter:  exporter,
		notifier:  notifier,
		log:       log.Component("certificates"),
		now:       time.Now,
	}
}

func (s *certificateService) Create(ctx context.Context, accountID int64, in lifecycle.CertificateInput) (*models.CertificateRequest, error) {
	req, err := lifecycle.NewCertificateRequest(accountID, in, s.now())
	if err != nil {
		s.log.Warn("Rejected certificate request", map[string]interface{}{
			"account_id": accountID,
			"type":       in.Type,
			"reason":     err.Error(),
		})
		return nil, err
	}

	requestID, err := s.allocator.AllocateRequestID(ctx, func(ctx context.Context, id string) error {
		req.RequestID = id
		return s.repo.Insert(ctx, &req)
	})
	if err != nil {
		if errors.Is(err, identifier.ErrExhausted) {
			s.log.Error("Request identifier space exhausted", err, map[string]interface{}{"account_id": accountID})
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}

	s.log.Info("Certificate request created", map[string]interface{}{
		"request_id": requestID,
		"account_id": accountID,
		"type":       req.CertificateType,
		"amount":     models.FormatAmount(req.PaymentAmount),
	})
	return &req, nil
}

func (s *certificateService) ListForAccount(ctx context.Context, accountID int64, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	filter.AccountID = &accountID
	return s.List(ctx, filter)
}

func (s *certificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	if filter.CertificateType != nil && !filter.CertificateType.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown certificate type %q", ErrValidation, *filter.CertificateType)
	}
	if filter.PaymentStatus != nil && !filter.PaymentStatus.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown payment status %q", ErrValidation, *filter.PaymentStatus)
	}
	if filter.ClaimStatus != nil && !filter.ClaimStatus.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown claim status %q", ErrValidation, *filter.ClaimStatus)
	}
	if filter.PaymentMode != nil && !filter.PaymentMode.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown payment mode %q", ErrValidation, *filter.PaymentMode)
	}
	return s.repo.List(ctx, filter)
}

func (s *certificateService) Get(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	req, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *certificateService) GetForAccount(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != accountID {
		s.log.Warn("Access to another account's request denied", map[string]interface{}{
			"request_id": requestID,
			"account_id": accountID,
		})
		return nil, ErrForbidden
	}
	return req, nil
}

type transition func(models.CertificateRequest, time.Time) (models.CertificateRequest, error)

// apply runs one transition and persists it with a version check.
func (s *certificateService) apply(ctx context.Context, current *models.CertificateRequest, action string, fn transition) (*models.CertificateRequest, error) {
	next, err := fn(*current, s.now())
	if err != nil {
		s.log.Warn("Certificate transition rejected", map[string]interface{}{
			"request_id":     current.RequestID,
			"action":         action,
			"payment_status": current.PaymentStatus,
			"claim_status":   current.ClaimStatus,
			"reason":         err.Error(),
		})
		return nil, err
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}

	s.log.Info("Certificate request updated", map[string]interface{}{
		"request_id":     next.RequestID,
		"action":         action,
		"payment_status": next.PaymentStatus,
		"claim_status":   next.ClaimStatus,
	})
	return &next, nil
}

func (s *certificateService) SelectPaymentMode(ctx context.Context, accountID int64, requestID string, mode models.PaymentMode) (*models.CertificateRequest, error) {
	req, err := s.GetForAccount(ctx, accountID, requestID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, req, "select payment mode", func(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
		return lifecycle.SelectPaymentMode(r, mode, now)
	})
}

func (s *certificateService) SubmitGCashReference(ctx context.Context, accountID int64, requestID, reference string) (*models.CertificateRequest, error) {
	req, err := s.GetForAccount(ctx, accountID, requestID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, req, "submit gcash reference", func(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
		return lifecycle.SubmitGCashReference(r, reference, now)
	})
}

func (s *certificateService) ConfirmCounterPayment(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error) {
	req, err := s.GetForAccount(ctx, accountID, requestID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, req, "confirm counter payment", lifecycle.ConfirmCounterPayment)
}

func (s *certificateService) Cancel(ctx context.Context, accountID int64, requestID string) error {
	req, err := s.GetForAccount(ctx, accountID, requestID)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckCancellable(*req); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteUnpaid(ctx, requestID, accountID)
	if err != nil {
		return fmt.Errorf("failed to cancel certificate request: %w", err)
	}
	if !deleted {
		// Payment started between the read and the delete.
		return lifecycle.ErrNotCancellable
	}

	s.log.Info("Certificate request cancelled", map[string]interface{}{
		"request_id": requestID,
		"account_id": accountID,
	})
	return nil
}

func (s *certificateService) VerifyPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	next, err := s.apply(ctx, req, "verify payment", lifecycle.VerifyPayment)
	if err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, next, "Payment verified",
		fmt.Sprintf("Your payment of PHP %s for %s (%s) was verified. We will let you know when it is ready for pickup.",
			models.FormatAmount(next.PaymentAmount), next.CertificateType.Label(), next.RequestID), false)
	return next, nil
}

func (s *certificateService) RejectPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	next, err := s.apply(ctx, req, "reject payment", lifecycle.RejectPayment)
	if err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, next, "Payment could not be verified",
		fmt.Sprintf("We could not verify the payment for %s (%s). Please submit your payment again.",
			next.CertificateType.Label(), next.RequestID), false)
	return next, nil
}

func (s *certificateService) UpdateClaimStatus(ctx context.Context, requestID string, status models.ClaimStatus) (*models.CertificateRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	previous := req.ClaimStatus
	next, err := s.apply(ctx, req, "update claim status", func(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
		return lifecycle.SetClaimStatus(r, status, now)
	})
	if err != nil {
		return nil, err
	}

	if status == models.ClaimReady && previous != models.ClaimReady {
		s.notifyOwner(ctx, next, "Your certificate is ready",
			fmt.Sprintf("Your %s (%s) is ready for pickup at the barangay hall.", next.CertificateType.Label(), next.RequestID), true)
	}
	return next, nil
}

func (s *certificateService) Delete(ctx context.Context, requestID string) error {
	deleted, err := s.repo.Delete(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to delete certificate request: %w", err)
	}
	if !deleted {
		return ErrRequestNotFound
	}
	s.log.Info("Certificate request deleted by staff", map[string]interface{}{"request_id": requestID})
	return nil
}

func (s *certificateService) Export(ctx context.Context, filter models.CertificateFilter) ([]byte, error) {
	filter.Offset = 0
	var all []models.CertificateRequest
	for {
		filter.Limit = exportLimit
		page, total, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportLimit || len(all) >= total {
			break
		}
		filter.Offset += len(page)
	}

	data, err := s.exporter.Certificates(all)
	if err != nil {
		return nil, fmt.Errorf("failed to export certificate requests: %w", err)
	}
	s.log.Info("Certificate requests exported", map[string]interface{}{"count": len(all)})
	return data, nil
}

func (s *certificateService) notifyOwner(ctx context.Context, req *models.CertificateRequest, subject, body string, sms bool) {
	owner, err := s.accounts.FindByID(ctx, req.AccountID)
	if err != nil || owner == nil {
		s.log.Warn("Could not load request owner for notification", map[string]interface{}{
			"request_id": req.RequestID,
		})
		return
	}
	notifyEmail(ctx, s.notifier, s.log, owner.Email, subject, body)
	if sms {
		notifySMS(ctx, s.notifier, s.log, owner.ContactNumber, body)
	}
}
