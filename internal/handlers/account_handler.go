package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/labang-online/portal/internal/errors"
	"github.com/labang-online/portal/internal/middleware"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/services"
)

// AccountHandler serves the resident profile and staff user management.
type AccountHandler struct {
	service services.AccountService
}

// NewAccountHandler creates a new AccountHandler instance.
func NewAccountHandler(service services.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// EditProfileRequest is a partial profile update. Omitted fields are unchanged.
type EditProfileRequest struct {
	FullName           *string `json:"full_name" binding:"omitempty,max=150"`
	ContactNumber      *string `json:"contact_number" binding:"omitempty,numeric,min=10,max=15"`
	DateOfBirth        *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	CivilStatus        *string `json:"civil_status" binding:"omitempty,max=30"`
	AddressLine        *string `json:"address_line" binding:"omitempty,max=255"`
	City               *string `json:"city" binding:"omitempty,max=100"`
	Province           *string `json:"province" binding:"omitempty,max=100"`
	PostalCode         *string `json:"postal_code" binding:"omitempty,numeric,len=4"`
	ProfilePhotoURL    *string `json:"profile_photo_url" binding:"omitempty,url"`
	ResidentIDPhotoURL *string `json:"resident_id_photo_url" binding:"omitempty,url"`
}

// UserListQuery filters the staff user listing.
type UserListQuery struct {
	PageQuery
	Role      string `form:"role" binding:"omitempty,oneof=resident staff admin"`
	Confirmed *bool  `form:"confirmed"`
	Active    *bool  `form:"active"`
	Search    string `form:"search" binding:"omitempty,max=100"`
}

// ChangeRoleRequest sets an account's role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=resident staff admin"`
}

// PersonalInfo handles GET /api/v1/personal_info.
func (h *AccountHandler) PersonalInfo(c *gin.Context) {
	account, err := h.service.GetProfile(c.Request.Context(), currentAccountID(c))
	if err != nil {
		handleServiceError(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, account)
}

// EditProfile handles PATCH /api/v1/edit_profile.
func (h *AccountHandler) EditProfile(c *gin.Context) {
	var req EditProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	update := services.ProfileUpdate{
		FullName:           req.FullName,
		ContactNumber:      req.ContactNumber,
		CivilStatus:        req.CivilStatus,
		AddressLine:        req.AddressLine,
		City:               req.City,
		Province:           req.Province,
		PostalCode:         req.PostalCode,
		ProfilePhotoURL:    req.ProfilePhotoURL,
		ResidentIDPhotoURL: req.ResidentIDPhotoURL,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			apierrors.FieldError(c, "date_of_birth must be YYYY-MM-DD")
			return
		}
		update.DateOfBirth = &dob
	}

	account, err := h.service.UpdateProfile(c.Request.Context(), currentAccountID(c), update)
	if err != nil {
		handleServiceError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, account)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AccountHandler) ListUsers(c *gin.Context) {
	var query UserListQuery
	if !bindQuery(c, &query) {
		return
	}

	filter := models.AccountFilter{
		Confirmed: query.Confirmed,
		Active:    query.Active,
		Search:    query.Search,
		Limit:     query.limit(),
		Offset:    query.Offset,
	}
	if query.Role != "" {
		role := models.Role(query.Role)
		filter.Role = &role
	}

	accounts, total, err := h.service.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: accounts, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// GetUser handles GET /api/v1/admin/users/:id.
func (h *AccountHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to load account")
		return
	}
	c.JSON(http.StatusOK, account)
}

// VerifyUser handles POST /api/v1/admin/users/:id/verify.
func (h *AccountHandler) VerifyUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	account, err := h.service.VerifyResident(c.Request.Context(), middleware.CurrentAccount(c), id)
	if err != nil {
		handleServiceError(c, err, "Failed to verify resident")
		return
	}
	c.JSON(http.StatusOK, account)
}

// ActivateUser handles POST /api/v1/admin/users/:id/activate.
func (h *AccountHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateUser handles POST /api/v1/admin/users/:id/deactivate.
func (h *AccountHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AccountHandler) setActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	account, err := h.service.SetActive(c.Request.Context(), middleware.CurrentAccount(c), id, active)
	if err != nil {
		handleServiceError(c, err, "Failed to update account status")
		return
	}
	c.JSON(http.StatusOK, account)
}

// ChangeRole handles POST /api/v1/admin/users/:id/change-type.
func (h *AccountHandler) ChangeRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.service.ChangeRole(c.Request.Context(), middleware.CurrentAccount(c), id, models.Role(req.Role))
	if err != nil {
		handleServiceError(c, err, "Failed to change role")
		return
	}
	c.JSON(http.StatusOK, account)
}
