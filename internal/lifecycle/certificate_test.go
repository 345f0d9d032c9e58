package lifecycle

import (
	"testing"
	"time"

	"github.com/labang-online/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)

func unpaidRequest(t *testing.T) models.CertificateRequest {
	t.Helper()
	req, err := NewCertificateRequest(7, CertificateInput{
		Type:    models.CertResidency,
		Purpose: "Need this for school enrollment",
	}, testNow)
	require.NoError(t, err)
	req.RequestID = "REQ-2025-0001"
	return req
}

func modePtr(m models.PaymentMode) *models.PaymentMode { return &m }

func TestNewCertificateRequest_Residency(t *testing.T) {
	req := unpaidRequest(t)

	assert.Equal(t, models.PaymentUnpaid, req.PaymentStatus)
	assert.Equal(t, models.ClaimProcessing, req.ClaimStatus)
	assert.Equal(t, int64(3000), req.PaymentAmount)
	assert.Equal(t, "30.00", models.FormatAmount(req.PaymentAmount))
	assert.Nil(t, req.PaymentMode)
	assert.Nil(t, req.PaidAt)
	assert.Equal(t, int64(7), req.AccountID)
}

func TestNewCertificateRequest_Validation(t *testing.T) {
	employees := 4
	negative := -1

	tests := []struct {
		name    string
		input   CertificateInput
		wantErr bool
	}{
		{name: "short purpose", input: CertificateInput{Type: models.CertGoodMoral, Purpose: "job"}, wantErr: true},
		{name: "purpose padded with spaces", input: CertificateInput{Type: models.CertGoodMoral, Purpose: "   too short   "}, wantErr: true},
		{name: "unknown type", input: CertificateInput{Type: "passport", Purpose: "Travelling abroad soon"}, wantErr: true},
		{name: "indigency without proof", input: CertificateInput{Type: models.CertIndigency, Purpose: "Medical assistance request"}, wantErr: true},
		{name: "indigency with proof", input: CertificateInput{Type: models.CertIndigency, Purpose: "Medical assistance request", ProofImageURL: "https://cdn/proof.jpg"}},
		{name: "business missing name", input: CertificateInput{
			Type: models.CertBusinessClearance, Purpose: "Permit renewal 2025",
			BusinessType: "Retail", BusinessNature: "Sari-sari store", BusinessAddress: "Purok 3", EmployeeCount: &employees,
		}, wantErr: true},
		{name: "business negative employees", input: CertificateInput{
			Type: models.CertBusinessClearance, Purpose: "Permit renewal 2025", BusinessName: "Aling Nena",
			BusinessType: "Retail", BusinessNature: "Sari-sari store", BusinessAddress: "Purok 3", EmployeeCount: &negative,
		}, wantErr: true},
		{name: "business complete", input: CertificateInput{
			Type: models.CertBusinessClearance, Purpose: "Permit renewal 2025", BusinessName: "Aling Nena",
			BusinessType: "Retail", BusinessNature: "Sari-sari store", BusinessAddress: "Purok 3", EmployeeCount: &employees,
		}},
		{name: "clearance", input: CertificateInput{Type: models.CertBarangayClearance, Purpose: "Employment requirement"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCertificateRequest(1, tt.input, testNow)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectPaymentMode(t *testing.T) {
	req := unpaidRequest(t)

	next, err := SelectPaymentMode(req, models.PaymentModeGCash, testNow)
	require.NoError(t, err)
	require.NotNil(t, next.PaymentMode)
	assert.Equal(t, models.PaymentModeGCash, *next.PaymentMode)
	assert.Equal(t, models.PaymentUnpaid, next.PaymentStatus)

	_, err = SelectPaymentMode(req, "cash", testNow)
	assert.ErrorIs(t, err, ErrInvalidPaymentMode)

	req.PaymentStatus = models.PaymentPaid
	_, err = SelectPaymentMode(req, models.PaymentModeCounter, testNow)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestSubmitGCashReference(t *testing.T) {
	req := unpaidRequest(t)
	req.PaymentMode = modePtr(models.PaymentModeGCash)

	next, err := SubmitGCashReference(req, "GC1234567890", testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, next.PaymentStatus)
	assert.Equal(t, "GC1234567890", next.PaymentReference)

	// Original value is untouched
	assert.Equal(t, models.PaymentUnpaid, req.PaymentStatus)
}

func TestSubmitGCashReference_Guards(t *testing.T) {
	base := unpaidRequest(t)

	t.Run("no mode selected", func(t *testing.T) {
		_, err := SubmitGCashReference(base, "GC1234567890", testNow)
		assert.ErrorIs(t, err, ErrWrongPaymentMode)
	})

	t.Run("counter mode", func(t *testing.T) {
		r := base
		r.PaymentMode = modePtr(models.PaymentModeCounter)
		_, err := SubmitGCashReference(r, "GC1234567890", testNow)
		assert.ErrorIs(t, err, ErrWrongPaymentMode)
	})

	t.Run("short reference", func(t *testing.T) {
		r := base
		r.PaymentMode = modePtr(models.PaymentModeGCash)
		_, err := SubmitGCashReference(r, "GC123", testNow)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("already pending", func(t *testing.T) {
		r := base
		r.PaymentMode = modePtr(models.PaymentModeGCash)
		r.PaymentStatus = models.PaymentPending
		_, err := SubmitGCashReference(r, "GC1234567890", testNow)
		assert.ErrorIs(t, err, ErrPaymentInProgress)
	})

	t.Run("already paid", func(t *testing.T) {
		r := base
		r.PaymentMode = modePtr(models.PaymentModeGCash)
		r.PaymentStatus = models.PaymentPaid
		_, err := SubmitGCashReference(r, "GC1234567890", testNow)
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("failed can resubmit", func(t *testing.T) {
		r := base
		r.PaymentMode = modePtr(models.PaymentModeGCash)
		r.PaymentStatus = models.PaymentFailed
		r.PaymentReference = "OLDREF000001"
		next, err := SubmitGCashReference(r, "NEWREF000002", testNow)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, next.PaymentStatus)
		assert.Equal(t, "NEWREF000002", next.PaymentReference)
	})
}

func TestConfirmCounterPayment(t *testing.T) {
	req := unpaidRequest(t)

	next, err := ConfirmCounterPayment(req, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, next.PaymentStatus)
	assert.Equal(t, "COUNTER-REQ-2025-0001", next.PaymentReference)
	require.NotNil(t, next.PaymentMode)
	assert.Equal(t, models.PaymentModeCounter, *next.PaymentMode)

	_, err = ConfirmCounterPayment(next, testNow)
	assert.ErrorIs(t, err, ErrPaymentInProgress)
}

func TestConfirmCounterPayment_RespectsChosenMode(t *testing.T) {
	gcash := unpaidRequest(t)
	gcash.PaymentMode = modePtr(models.PaymentModeGCash)

	unchanged, err := ConfirmCounterPayment(gcash, testNow)
	assert.ErrorIs(t, err, ErrWrongPaymentMode)
	assert.Equal(t, models.PaymentUnpaid, unchanged.PaymentStatus)
	assert.Equal(t, models.PaymentModeGCash, *unchanged.PaymentMode)

	counter := unpaidRequest(t)
	counter.PaymentMode = modePtr(models.PaymentModeCounter)
	next, err := ConfirmCounterPayment(counter, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, next.PaymentStatus)

	// Switching back to counter is allowed while unpaid
	switched, err := SelectPaymentMode(gcash, models.PaymentModeCounter, testNow)
	require.NoError(t, err)
	_, err = ConfirmCounterPayment(switched, testNow)
	assert.NoError(t, err)
}

func TestVerifyAndRejectPayment(t *testing.T) {
	req := unpaidRequest(t)
	req.PaymentMode = modePtr(models.PaymentModeGCash)
	pending, err := SubmitGCashReference(req, "GC1234567890", testNow)
	require.NoError(t, err)

	rejected, err := RejectPayment(pending, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, rejected.PaymentStatus)
	assert.Nil(t, rejected.PaidAt)

	paid, err := VerifyPayment(pending, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, testNow, *paid.PaidAt)
}

func TestVerifyPayment_OnlyFromPending(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentUnpaid, models.PaymentPaid, models.PaymentFailed} {
		req := unpaidRequest(t)
		req.PaymentStatus = status

		next, err := VerifyPayment(req, testNow)
		assert.ErrorIs(t, err, ErrPaymentNotPending, status)
		assert.Equal(t, req, next, "request must be unchanged for %s", status)

		_, err = RejectPayment(req, testNow)
		assert.ErrorIs(t, err, ErrPaymentNotPending, status)
	}
}

func TestSetClaimStatus(t *testing.T) {
	req := unpaidRequest(t)

	_, err := SetClaimStatus(req, models.ClaimReady, testNow)
	assert.ErrorIs(t, err, ErrClaimRequiresPayment)

	_, err = SetClaimStatus(req, "lost", testNow)
	assert.ErrorIs(t, err, ErrInvalidClaimStatus)

	req.PaymentStatus = models.PaymentPaid
	ready, err := SetClaimStatus(req, models.ClaimReady, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimReady, ready.ClaimStatus)
	assert.Nil(t, ready.ClaimedAt)

	claimed, err := SetClaimStatus(ready, models.ClaimClaimed, testNow.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, claimed.ClaimedAt)
	assert.Equal(t, testNow.Add(time.Hour), *claimed.ClaimedAt)

	// Staff may move backwards; claimed_at is cleared
	back, err := SetClaimStatus(claimed, models.ClaimProcessing, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimProcessing, back.ClaimStatus)
	assert.Nil(t, back.ClaimedAt)
}

func TestCheckCancellable(t *testing.T) {
	req := unpaidRequest(t)
	assert.NoError(t, CheckCancellable(req))

	for _, status := range []models.PaymentStatus{models.PaymentPending, models.PaymentPaid, models.PaymentFailed} {
		req.PaymentStatus = status
		assert.ErrorIs(t, CheckCancellable(req), ErrNotCancellable, status)
	}
}
