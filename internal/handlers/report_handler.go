package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/services"
)

// ReportHandler serves incident reports.
type ReportHandler struct {
	service services.ReportService
}

// NewReportHandler creates a new ReportHandler instance.
func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// FileReportRequest is the resident complaint form.
type FileReportRequest struct {
	IncidentType string `json:"incident_type" binding:"required"`
	Location     string `json:"location" binding:"required,max=255"`
	Description  string `json:"description" binding:"required,max=5000"`
}

// ReportListQuery filters the staff report listing.
type ReportListQuery struct {
	PageQuery
	Status       string `form:"status"`
	IncidentType string `form:"incident_type"`
}

// ReportStatusRequest sets a report's status.
type ReportStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// File handles POST /api/v1/file_report.
func (h *ReportHandler) File(c *gin.Context) {
	var req FileReportRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.service.File(c.Request.Context(), currentAccountID(c), lifecycle.ReportInput{
		Type:        models.IncidentType(req.IncidentType),
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to file report")
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ListMine handles GET /api/v1/report_records.
func (h *ReportHandler) ListMine(c *gin.Context) {
	var query PageQuery
	if !bindQuery(c, &query) {
		return
	}

	reports, total, err := h.service.ListForAccount(c.Request.Context(), currentAccountID(c), query.limit(), query.Offset)
	if err != nil {
		handleServiceError(c, err, "Failed to list reports")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: reports, Total: total, Limit: query.limit(), Offset: query.Offset})
}

// List handles GET /api/v1/admin/reports.
func (h *ReportHandler) List(c *gin.Context) {
	var query ReportListQuery
	if !bindQuery(c, &query) {
		return
	}

	filter := models.ReportFilter{Limit: query.limit(), Offset: query.Offset}
	if query.Status != "" {
		status := models.ReportStatus(query.Status)
		filter.Status = &status
	}
	if query.IncidentType != "" {
		incidentType := models.IncidentType(query.IncidentType)
		filter.IncidentType = &incidentType
	}

	reports, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err, "Failed to list reports")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: reports, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /api/v1/admin/reports/:report_id.
func (h *ReportHandler) Get(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	report, err := h.service.Get(c.Request.Context(), reportID)
	if err != nil {
		handleServiceError(c, err, "Failed to load report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateStatus handles POST /api/v1/admin/reports/:report_id/update-status.
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	var req ReportStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.service.UpdateStatus(c.Request.Context(), reportID, models.ReportStatus(req.Status))
	if err != nil {
		handleServiceError(c, err, "Failed to update report status")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Delete handles DELETE /api/v1/admin/reports/:report_id.
func (h *ReportHandler) Delete(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), reportID); err != nil {
		handleServiceError(c, err, "Failed to delete report")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Report deleted"})
}
