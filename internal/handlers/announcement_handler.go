package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/services"
)

// AnnouncementHandler serves the resident feed and staff announcement management.
type AnnouncementHandler struct {
	service services.AnnouncementService
}

// NewAnnouncementHandler creates a new AnnouncementHandler instance.
func NewAnnouncementHandler(service services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: service}
}

// AnnouncementRequest is the staff create/edit form.
type AnnouncementRequest struct {
	IsActive *bool  `json:"is_active"`
	Title    string `json:"title" binding:"required,max=200"`
	Body     string `json:"body" binding:"required"`
	Type     string `json:"type" binding:"omitempty,oneof=general event alert maintenance"`
}

func (r AnnouncementRequest) input() services.AnnouncementInput {
	return services.AnnouncementInput{
		IsActive: r.IsActive,
		Title:    r.Title,
		Body:     r.Body,
		Type:     models.AnnouncementType(r.Type),
	}
}

// UnreadResponse carries the unread badge count.
type UnreadResponse struct {
	Unread int `json:"unread"`
}

// Feed handles GET /api/v1/announcements and marks the feed seen.
func (h *AnnouncementHandler) Feed(c *gin.Context) {
	var query PageQuery
	if !bindQuery(c, &query) {
		return
	}

	items, total, err := h.service.ListForResident(c.Request.Context(), currentAccountID(c), query.limit(), query.Offset)
	if err != nil {
		handleServiceError(c, err, "Failed to load announcements")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Limit: query.limit(), Offset: query.Offset})
}

// Unread handles GET /api/v1/announcements/unread.
func (h *AnnouncementHandler) Unread(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), currentAccountID(c))
	if err != nil {
		handleServiceError(c, err, "Failed to count unread announcements")
		return
	}
	c.JSON(http.StatusOK, UnreadResponse{Unread: count})
}

// List handles GET /api/v1/admin/announcements.
func (h *AnnouncementHandler) List(c *gin.Context) {
	var query PageQuery
	if !bindQuery(c, &query) {
		return
	}

	items, total, err := h.service.ListAll(c.Request.Context(), query.limit(), query.Offset)
	if err != nil {
		handleServiceError(c, err, "Failed to list announcements")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total, Limit: query.limit(), Offset: query.Offset})
}

// Create handles POST /api/v1/admin/announcements.
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req AnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.service.Create(c.Request.Context(), currentAccountID(c), req.input())
	if err != nil {
		handleServiceError(c, err, "Failed to create announcement")
		return
	}
	c.JSON(http.StatusCreated, a)
}

// Update handles PUT /api/v1/admin/announcements/:id.
func (h *AnnouncementHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.service.Update(c.Request.Context(), id, req.input())
	if err != nil {
		handleServiceError(c, err, "Failed to update announcement")
		return
	}
	c.JSON(http.StatusOK, a)
}

// Toggle handles POST /api/v1/admin/announcements/:id/toggle.
func (h *AnnouncementHandler) Toggle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Toggle(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to toggle announcement")
		return
	}
	c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /api/v1/admin/announcements/:id.
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err, "Failed to delete announcement")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Announcement deleted"})
}
