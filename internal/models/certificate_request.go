package models

import (
	"fmt"
	"time"
)

// CertificateType enumerates the documents the barangay issues.
type CertificateType string

const (
	CertBarangayClearance CertificateType = "barangay_clearance"
	CertResidency         CertificateType = "residency"
	CertIndigency         CertificateType = "indigency"
	CertGoodMoral         CertificateType = "good_moral"
	CertBusinessClearance CertificateType = "business_clearance"
)

// Fees in centavos.
var certificateFees = map[CertificateType]int64{
	CertBarangayClearance: 5000,
	CertResidency:         3000,
	CertIndigency:         2000,
	CertGoodMoral:         4000,
	CertBusinessClearance: 20000,
}

var certificateLabels = map[CertificateType]string{
	CertBarangayClearance: "Barangay Clearance",
	CertResidency:         "Certificate of Residency",
	CertIndigency:         "Certificate of Indigency",
	CertGoodMoral:         "Certificate of Good Moral Character",
	CertBusinessClearance: "Barangay Business Clearance",
}

// CertificateTypes lists every certificate type in display order.
func CertificateTypes() []CertificateType {
	return []CertificateType{
		CertBarangayClearance, CertResidency, CertIndigency, CertGoodMoral, CertBusinessClearance,
	}
}

// Valid reports whether t is a known certificate type.
func (t CertificateType) Valid() bool {
	_, ok := certificateFees[t]
	return ok
}

// Fee returns the fixed fee for the certificate type in centavos.
func (t CertificateType) Fee() int64 {
	return certificateFees[t]
}

// Label returns the human-readable document name.
func (t CertificateType) Label() string {
	if label, ok := certificateLabels[t]; ok {
		return label
	}
	return string(t)
}

// PaymentStatus is the payment axis of a certificate request.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// PaymentMode is how the resident pays.
type PaymentMode string

const (
	PaymentModeGCash   PaymentMode = "gcash"
	PaymentModeCounter PaymentMode = "counter"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	return m == PaymentModeGCash || m == PaymentModeCounter
}

// ClaimStatus is the pickup axis of a certificate request.
type ClaimStatus string

const (
	ClaimProcessing ClaimStatus = "processing"
	ClaimReady      ClaimStatus = "ready"
	ClaimClaimed    ClaimStatus = "claimed"
)

// Valid reports whether s is one of the three claim statuses.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimProcessing, ClaimReady, ClaimClaimed:
		return true
	}
	return false
}

// CertificateRequest is a resident's application for one document.
type CertificateRequest struct {
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	ClaimedAt        *time.Time      `db:"claimed_at" json:"claimed_at,omitempty"`
	PaymentMode      *PaymentMode    `db:"payment_mode" json:"payment_mode,omitempty"`
	EmployeeCount    *int            `db:"employee_count" json:"employee_count,omitempty"`
	RequestID        string          `db:"request_id" json:"request_id"`
	CertificateType  CertificateType `db:"certificate_type" json:"certificate_type"`
	Purpose          string          `db:"purpose" json:"purpose"`
	BusinessName     string          `db:"business_name" json:"business_name,omitempty"`
	BusinessType     string          `db:"business_type" json:"business_type,omitempty"`
	BusinessNature   string          `db:"business_nature" json:"business_nature,omitempty"`
	BusinessAddress  string          `db:"business_address" json:"business_address,omitempty"`
	ProofImageURL    string          `db:"proof_image_url" json:"proof_image_url,omitempty"`
	PaymentStatus    PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference,omitempty"`
	ClaimStatus      ClaimStatus     `db:"claim_status" json:"claim_status"`
	ID               int64           `db:"id" json:"-"`
	AccountID        int64           `db:"account_id" json:"account_id"`
	PaymentAmount    int64           `db:"payment_amount" json:"-"`
	Version          int             `db:"version" json:"-"`
}

// CertificateFilter narrows certificate request listings.
type CertificateFilter struct {
	AccountID       *int64
	CertificateType *CertificateType
	PaymentStatus   *PaymentStatus
	ClaimStatus     *ClaimStatus
	PaymentMode     *PaymentMode
	Search          string
	Limit           int
	Offset          int
}

// FormatAmount renders centavos as a peso amount with two decimals, e.g. "30.00".
func FormatAmount(centavos int64) string {
	sign := ""
	if centavos < 0 {
		sign = "-"
		centavos = -centavos
	}
	return fmt.Sprintf("%s%d.%02d", sign, centavos/100, centavos%100)
}
