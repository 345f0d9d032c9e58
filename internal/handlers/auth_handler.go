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

const dateLayout = "2006-01-02"

// forgotPasswordMessage is returned whether or not the email is registered.
const forgotPasswordMessage = "If the email is registered, a reset code has been sent"

// AuthHandler handles registration, login, password reset and contact verification.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(service services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRequest is the resident sign-up body.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=50"`
	Email           string `json:"email" binding:"required,email"`
	FullName        string `json:"full_name" binding:"required,max=150"`
	ContactNumber   string `json:"contact_number" binding:"required,numeric,min=10,max=15"`
	DateOfBirth     string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	AddressLine     string `json:"address_line" binding:"required,max=255"`
	Barangay        string `json:"barangay" binding:"required"`
	City            string `json:"city" binding:"omitempty,max=100"`
	Province        string `json:"province" binding:"omitempty,max=100"`
	PostalCode      string `json:"postal_code" binding:"omitempty,numeric,len=4"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LoginRequest is the credentials body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Account   *models.Account `json:"account"`
	ExpiresAt time.Time       `json:"expires_at"`
	Token     string          `json:"token"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPasswordResponse includes the account to verify against when the
// email is registered.
type ForgotPasswordResponse struct {
	Message   string `json:"message"`
	AccountID int64  `json:"account_id,omitempty"`
}

// CodeRequest carries a one-time code.
type CodeRequest struct {
	Code string `json:"code" binding:"required,numeric,len=6"`
}

// ResetTokenResponse carries the single-use reset token.
type ResetTokenResponse struct {
	ExpiresAt  time.Time `json:"expires_at"`
	ResetToken string    `json:"reset_token"`
}

// ResetPasswordRequest sets a new password with a reset token.
type ResetPasswordRequest struct {
	ResetToken      string `json:"reset_token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Register handles POST /api/v1/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        req.FullName,
		ContactNumber:   req.ContactNumber,
		AddressLine:     req.AddressLine,
		Barangay:        req.Barangay,
		City:            req.City,
		Province:        req.Province,
		PostalCode:      req.PostalCode,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			apierrors.FieldError(c, "date_of_birth must be YYYY-MM-DD")
			return
		}
		in.DateOfBirth = &dob
	}

	account, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		handleServiceError(c, err, "Failed to register account")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration received. Barangay staff will verify your residency.",
		"account": account,
	})
}

// Login handles POST /api/v1/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err, "Failed to log in")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Account:   result.Account,
		ExpiresAt: result.ExpiresAt,
		Token:     result.Token,
	})
}

// ForgotPassword handles POST /api/v1/forgot_password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.service.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		handleServiceError(c, err, "Failed to start password reset")
		return
	}

	response := ForgotPasswordResponse{Message: forgotPasswordMessage}
	if account != nil {
		response.AccountID = account.ID
	}
	c.JSON(http.StatusOK, response)
}

// VerifyCode handles POST /api/v1/verify_code/:account_id.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	accountID, ok := idParam(c, "account_id")
	if !ok {
		return
	}
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}

	issued, err := h.service.VerifyResetCode(c.Request.Context(), accountID, req.Code)
	if err != nil {
		handleServiceError(c, err, "Failed to verify code")
		return
	}

	c.JSON(http.StatusOK, ResetTokenResponse{ResetToken: issued.Token, ExpiresAt: issued.ExpiresAt})
}

// ResendCode handles POST /api/v1/verify_code/:account_id/resend.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	accountID, ok := idParam(c, "account_id")
	if !ok {
		return
	}

	if err := h.service.ResendResetCode(c.Request.Context(), accountID); err != nil {
		handleServiceError(c, err, "Failed to resend code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "A new code has been sent"})
}

// ResetPassword handles POST /api/v1/reset_password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.ResetToken, req.Password, req.ConfirmPassword); err != nil {
		handleServiceError(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password updated, you can now log in"})
}

// SendVerification handles POST /api/v1/verification/:purpose/send.
func (h *AuthHandler) SendVerification(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	purpose := models.CodePurpose(c.Param("purpose"))

	if err := h.service.SendVerification(c.Request.Context(), account.ID, purpose); err != nil {
		handleServiceError(c, err, "Failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Verification code sent"})
}

// ConfirmVerification handles POST /api/v1/verification/:purpose/confirm.
func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	account := middleware.CurrentAccount(c)
	purpose := models.CodePurpose(c.Param("purpose"))

	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.ConfirmVerification(c.Request.Context(), account.ID, purpose, req.Code)
	if err != nil {
		handleServiceError(c, err, "Failed to confirm verification code")
		return
	}

	c.JSON(http.StatusOK, updated)
}
