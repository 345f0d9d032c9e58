// Package lifecycle holds the certificate request and incident report state
// machines. Every transition takes the current record by value and returns
// the next record, so callers can persist the result with a version check.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/models"
)

const (
	MinPurposeLength   = 10
	MinReferenceLength = 10

	// CounterReferencePrefix marks references generated for counter payments.
	CounterReferencePrefix = "COUNTER-"
)

// Guard violations. None of them mutate the request.
var (
	ErrAlreadyPaid          = errors.New("request is already paid")
	ErrPaymentInProgress    = errors.New("payment is already awaiting verification")
	ErrWrongPaymentMode     = errors.New("payment mode does not allow this action")
	ErrPaymentNotPending    = errors.New("payment is not awaiting verification")
	ErrNotCancellable       = errors.New("only unpaid requests can be cancelled; payments are non-refundable")
	ErrInvalidClaimStatus   = errors.New("claim status must be processing, ready or claimed")
	ErrClaimRequiresPayment = errors.New("request must be paid before it can be marked ready or claimed")
	ErrInvalidPaymentMode   = errors.New("payment mode must be gcash or counter")
)

// ErrInvalidInput wraps creation-time validation failures.
var ErrInvalidInput = errors.New("invalid certificate request")

// CertificateInput carries the resident-supplied fields of a new request.
type CertificateInput struct {
	EmployeeCount   *int
	Type            models.CertificateType
	Purpose         string
	BusinessName    string
	BusinessType    string
	BusinessNature  string
	BusinessAddress string
	ProofImageURL   string
}

// NewCertificateRequest validates input and builds an unpaid, processing
// request owned by accountID. The identifier is assigned at insert time.
func NewCertificateRequest(accountID int64, in CertificateInput, now time.Time) (models.CertificateRequest, error) {
	if !in.Type.Valid() {
		return models.CertificateRequest{}, fmt.Errorf("%w: unknown certificate type %q", ErrInvalidInput, in.Type)
	}

	purpose := strings.TrimSpace(in.Purpose)
	if len([]rune(purpose)) < MinPurposeLength {
		return models.CertificateRequest{}, fmt.Errorf("%w: purpose must be at least %d characters", ErrInvalidInput, MinPurposeLength)
	}

	req := models.CertificateRequest{
		AccountID:       accountID,
		CertificateType: in.Type,
		Purpose:         purpose,
		PaymentStatus:   models.PaymentUnpaid,
		ClaimStatus:     models.ClaimProcessing,
		PaymentAmount:   in.Type.Fee(),
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	switch in.Type {
	case models.CertBusinessClearance:
		fields := map[string]string{
			"business_name":    in.BusinessName,
			"business_type":    in.BusinessType,
			"business_nature":  in.BusinessNature,
			"business_address": in.BusinessAddress,
		}
		for _, name := range []string{"business_name", "business_type", "business_nature", "business_address"} {
			if strings.TrimSpace(fields[name]) == "" {
				return models.CertificateRequest{}, fmt.Errorf("%w: %s is required for business clearance", ErrInvalidInput, name)
			}
		}
		if in.EmployeeCount == nil || *in.EmployeeCount < 0 {
			return models.CertificateRequest{}, fmt.Errorf("%w: employee_count must be zero or more", ErrInvalidInput)
		}
		count := *in.EmployeeCount
		req.BusinessName = strings.TrimSpace(in.BusinessName)
		req.BusinessType = strings.TrimSpace(in.BusinessType)
		req.BusinessNature = strings.TrimSpace(in.BusinessNature)
		req.BusinessAddress = strings.TrimSpace(in.BusinessAddress)
		req.EmployeeCount = &count
	case models.CertIndigency:
		if strings.TrimSpace(in.ProofImageURL) == "" {
			return models.CertificateRequest{}, fmt.Errorf("%w: proof of indigency image is required", ErrInvalidInput)
		}
		req.ProofImageURL = strings.TrimSpace(in.ProofImageURL)
	}

	return req, nil
}

// SelectPaymentMode records the resident's chosen payment mode.
func SelectPaymentMode(r models.CertificateRequest, mode models.PaymentMode, now time.Time) (models.CertificateRequest, error) {
	if !mode.Valid() {
		return r, ErrInvalidPaymentMode
	}
	if r.PaymentStatus == models.PaymentPaid {
		return r, ErrAlreadyPaid
	}
	r.PaymentMode = &mode
	r.UpdatedAt = now
	return r, nil
}

// SubmitGCashReference moves an unpaid or failed gcash request to pending.
func SubmitGCashReference(r models.CertificateRequest, reference string, now time.Time) (models.CertificateRequest, error) {
	if err := payable(r); err != nil {
		return r, err
	}
	if r.PaymentMode == nil || *r.PaymentMode != models.PaymentModeGCash {
		return r, ErrWrongPaymentMode
	}
	reference = strings.TrimSpace(reference)
	if len(reference) < MinReferenceLength {
		return r, fmt.Errorf("%w: reference number must be at least %d characters", ErrInvalidInput, MinReferenceLength)
	}

	r.PaymentReference = reference
	r.PaymentStatus = models.PaymentPending
	r.UpdatedAt = now
	return r, nil
}

// ConfirmCounterPayment records the resident's intent to pay at the counter.
// An unset mode becomes counter; a gcash request must switch modes first.
// A synthetic reference is stored.
func ConfirmCounterPayment(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
	if err := payable(r); err != nil {
		return r, err
	}
	if r.PaymentMode != nil && *r.PaymentMode != models.PaymentModeCounter {
		return r, ErrWrongPaymentMode
	}

	mode := models.PaymentModeCounter
	r.PaymentMode = &mode
	r.PaymentReference = CounterReferencePrefix + r.RequestID
	r.PaymentStatus = models.PaymentPending
	r.UpdatedAt = now
	return r, nil
}

// VerifyPayment is the staff confirmation of a pending payment.
func VerifyPayment(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
	if r.PaymentStatus != models.PaymentPending {
		return r, ErrPaymentNotPending
	}
	paidAt := now
	r.PaymentStatus = models.PaymentPaid
	r.PaidAt = &paidAt
	r.UpdatedAt = now
	return r, nil
}

// RejectPayment is the staff rejection of a pending payment. paid_at stays nil.
func RejectPayment(r models.CertificateRequest, now time.Time) (models.CertificateRequest, error) {
	if r.PaymentStatus != models.PaymentPending {
		return r, ErrPaymentNotPending
	}
	r.PaymentStatus = models.PaymentFailed
	r.PaidAt = nil
	r.UpdatedAt = now
	return r, nil
}

// SetClaimStatus is the staff update of the claim axis. Staff may move the
// status in either direction; ready and claimed require a paid request.
func SetClaimStatus(r models.CertificateRequest, status models.ClaimStatus, now time.Time) (models.CertificateRequest, error) {
	if !status.Valid() {
		return r, ErrInvalidClaimStatus
	}
	if status != models.ClaimProcessing && r.PaymentStatus != models.PaymentPaid {
		return r, ErrClaimRequiresPayment
	}

	r.ClaimStatus = status
	switch status {
	case models.ClaimClaimed:
		if r.ClaimedAt == nil {
			claimedAt := now
			r.ClaimedAt = &claimedAt
		}
	default:
		r.ClaimedAt = nil
	}
	r.UpdatedAt = now
	return r, nil
}

// CheckCancellable reports whether the owner may delete the request.
func CheckCancellable(r models.CertificateRequest) error {
	if r.PaymentStatus != models.PaymentUnpaid {
		return ErrNotCancellable
	}
	return nil
}

// payable rejects resident payment submissions outside unpaid and failed.
func payable(r models.CertificateRequest) error {
	switch r.PaymentStatus {
	case models.PaymentUnpaid, models.PaymentFailed:
		return nil
	case models.PaymentPending:
		return ErrPaymentInProgress
	default:
		return ErrAlreadyPaid
	}
}
