package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CertificateHandler serves certificate requests for residents and staff.
type CertificateHandler struct {
	service services.CertificateService
	now     func() time.Time
}

// NewCertificateHandler creates a new CertificateHandler instance.
func NewCertificateHandler(service services.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: service, now: time.Now}
}

// CertificateRequestBody is the resident application form. The business
// fields apply to business clearances only.
type CertificateRequestBody struct {
	Purpose         string `json:"purpose" binding:"required,max=500"`
	ProofImageURL   string `json:"proof_image_url" binding:"omitempty,url"`
	BusinessName    string `json:"business_name" binding:"omitempty,max=200"`
	BusinessType    string `json:"business_type" binding:"omitempty,max=100"`
	BusinessNature  string `json:"business_nature" binding:"omitempty,max=200"`
	BusinessAddress string `json:"business_address" binding:"omitempty,max=255"`
	EmployeeCount   *int   `json:"employee_count" binding:"omitempty,gte=0"`
}

// CertificateListQuery filters certificate listings.
type CertificateListQuery struct {
	PageQuery
	CertificateType string `form:"certificate_type"`
	PaymentStatus   string `form:"payment_status"`
	ClaimStatus     string `form:"claim_status"`
	PaymentMode     string `form:"payment_mode"`
	Search          string `form:"search" binding:"omitempty,max=100"`
}

func (q CertificateListQuery) filter() models.CertificateFilter {
	filter := models.CertificateFilter{
		Search: q.Search,
		Limit:  q.limit(),
		Offset: q.Offset,
	}
	if q.CertificateType != "" {
		v := models.CertificateType(q.CertificateType)
		filter.CertificateType = &v
	}
	if q.PaymentStatus != "" {
		v := models.PaymentStatus(q.PaymentStatus)
		filter.PaymentStatus = &v
	}
	if q.ClaimStatus != "" {
		v := models.ClaimStatus(q.ClaimStatus)
		filter.ClaimStatus = &v
	}
	if q.PaymentMode != "" {
		v := models.PaymentMode(q.PaymentMode)
		filter.PaymentMode = &v
	}
	return filter
}

// PaymentModeRequest selects how the resident pays.
type PaymentModeRequest struct {
	PaymentMode string `json:"payment_mode" binding:"required"`
}

// GCashPaymentRequest submits a GCash transaction reference.
type GCashPaymentRequest struct {
	ReferenceNumber string `json:"reference_number" binding:"required,max=50"`
}

// ClaimStatusRequest moves a request along the pickup axis.
type ClaimStatusRequest struct {
	ClaimStatus string `json:"claim_status" binding:"required"`
}

// CertificateResponse adds the display label and peso amount.
type CertificateResponse struct {
	models.CertificateRequest
	CertificateLabel string `json:"certificate_label"`
	Amount           string `json:"amount"`
}

func toCertificateResponse(req *models.CertificateRequest) CertificateResponse {
	return CertificateResponse{
		CertificateRequest: *req,
		CertificateLabel:   req.CertificateType.Label(),
		Amount:             models.FormatAmount(req.PaymentAmount),
	}
}

func toCertificateResponses(reqs []models.CertificateRequest) []CertificateResponse {
	out := make([]CertificateResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, toCertificateResponse(&reqs[i]))
	}
	return out
}

func (h *CertificateHandler) respond(c *gin.Context, status int, req *models.CertificateRequest, err error, fallback string) {
	if err != nil {
		handleServiceError(c, err, fallback)
		return
	}
	c.JSON(status, toCertificateResponse(req))
}

// Create returns the handler for POST /api/v1/brgy_* for one certificate type.
func (h *CertificateHandler) Create(certType models.CertificateType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body CertificateRequestBody
		if !bindJSON(c, &body) {
			return
		}

		req, err := h.service.Create(c.Request.Context(), currentAccountID(c), lifecycle.CertificateInput{
			Type:            certType,
			Purpose:         body.Purpose,
			ProofImageURL:   body.ProofImageURL,
			BusinessName:    body.BusinessName,
			BusinessType:    body.BusinessType,
			BusinessNature:  body.BusinessNature,
			BusinessAddress: body.BusinessAddress,
			EmployeeCount:   body.EmployeeCount,
		})
		h.respond(c, http.StatusCreated, req, err, "Failed to create certificate request")
	}
}

// ListMine handles GET /api/v1/certificate_requests.
func (h *CertificateHandler) ListMine(c *gin.Context) {
	var query CertificateListQuery
	if !bindQuery(c, &query) {
		return
	}
	filter := query.filter()

	reqs, total, err := h.service.ListForAccount(c.Request.Context(), currentAccountID(c), filter)
	if err != nil {
		handleServiceError(c, err, "Failed to list certificate requests")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: toCertificateResponses(reqs), Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Detail handles GET /api/v1/request-detail/:request_id.
func (h *CertificateHandler) Detail(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.service.GetForAccount(c.Request.Context(), currentAccountID(c), requestID)
	h.respond(c, http.StatusOK, req, err, "Failed to load certificate request")
}

// SelectPaymentMode handles POST /api/v1/payment/mode-selection/:request_id.
func (h *CertificateHandler) SelectPaymentMode(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	var body PaymentModeRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := h.service.SelectPaymentMode(c.Request.Context(), currentAccountID(c), requestID, models.PaymentMode(body.PaymentMode))
	h.respond(c, http.StatusOK, req, err, "Failed to select payment mode")
}

// SubmitGCash handles POST /api/v1/gcash-payment/:request_id.
func (h *CertificateHandler) SubmitGCash(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	var body GCashPaymentRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := h.service.SubmitGCashReference(c.Request.Context(), currentAccountID(c), requestID, body.ReferenceNumber)
	h.respond(c, http.StatusOK, req, err, "Failed to submit GCash payment")
}

// ConfirmCounter handles POST /api/v1/counter_payment/:request_id.
func (h *CertificateHandler) ConfirmCounter(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.service.ConfirmCounterPayment(c.Request.Context(), currentAccountID(c), requestID)
	h.respond(c, http.StatusOK, req, err, "Failed to confirm counter payment")
}

// Cancel handles DELETE /api/v1/certificate_requests/:request_id.
func (h *CertificateHandler) Cancel(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), currentAccountID(c), requestID); err != nil {
		handleServiceError(c, err, "Failed to cancel certificate request")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Certificate request cancelled"})
}

// List handles GET /api/v1/admin/certificates.
func (h *CertificateHandler) List(c *gin.Context) {
	var query CertificateListQuery
	if !bindQuery(c, &query) {
		return
	}
	filter := query.filter()

	reqs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err, "Failed to list certificate requests")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: toCertificateResponses(reqs), Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /api/v1/admin/certificates/:request_id.
func (h *CertificateHandler) Get(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), requestID)
	h.respond(c, http.StatusOK, req, err, "Failed to load certificate request")
}

// VerifyPayment handles POST /api/v1/admin/certificates/:request_id/verify-payment.
func (h *CertificateHandler) VerifyPayment(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.service.VerifyPayment(c.Request.Context(), requestID)
	h.respond(c, http.StatusOK, req, err, "Failed to verify payment")
}

// RejectPayment handles POST /api/v1/admin/certificates/:request_id/reject-payment.
func (h *CertificateHandler) RejectPayment(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	req, err := h.service.RejectPayment(c.Request.Context(), requestID)
	h.respond(c, http.StatusOK, req, err, "Failed to reject payment")
}

// UpdateClaim handles POST /api/v1/admin/certificates/:request_id/update-claim.
func (h *CertificateHandler) UpdateClaim(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	var body ClaimStatusRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := h.service.UpdateClaimStatus(c.Request.Context(), requestID, models.ClaimStatus(body.ClaimStatus))
	h.respond(c, http.StatusOK, req, err, "Failed to update claim status")
}

// Delete handles DELETE /api/v1/admin/certificates/:request_id.
func (h *CertificateHandler) Delete(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), requestID); err != nil {
		handleServiceError(c, err, "Failed to delete certificate request")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Certificate request deleted"})
}

// Export handles GET /api/v1/admin/certificates/export and streams an xlsx workbook.
func (h *CertificateHandler) Export(c *gin.Context) {
	var query CertificateListQuery
	if !bindQuery(c, &query) {
		return
	}

	data, err := h.service.Export(c.Request.Context(), query.filter())
	if err != nil {
		handleServiceError(c, err, "Failed to export certificate requests")
		return
	}

	filename := fmt.Sprintf("certificate-requests-%s.xlsx", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
