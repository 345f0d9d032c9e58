package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/middleware"
	"github.com/labang-online/portal/internal/models"
)

// Routes collects the handlers and route-level middleware of the API.
type Routes struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Account      *AccountHandler
	Certificate  *CertificateHandler
	Report       *ReportHandler
	Announcement *AnnouncementHandler
	Chatbot      *ChatbotHandler

	// Authenticate resolves the session account. Required.
	Authenticate gin.HandlerFunc
	// OTPLimit and ChatLimit are optional rate limiters.
	OTPLimit  gin.HandlerFunc
	ChatLimit gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Register mounts every route on router.
func (r Routes) Register(router *gin.Engine) {
	router.GET("/health", r.Health.Health)
	router.GET("/health/ready", r.Health.Ready)

	v1 := router.Group("/api/v1")
	v1.GET("/info", r.Health.Info)

	// Public
	v1.POST("/register", r.Auth.Register)
	v1.POST("/login", r.Auth.Login)
	v1.POST("/forgot_password", chain(r.OTPLimit, r.Auth.ForgotPassword)...)
	v1.POST("/verify_code/:account_id", r.Auth.VerifyCode)
	v1.POST("/verify_code/:account_id/resend", chain(r.OTPLimit, r.Auth.ResendCode)...)
	v1.POST("/reset_password", r.Auth.ResetPassword)

	// Signed in, residency confirmation not required yet
	session := v1.Group("", r.Authenticate)
	{
		session.GET("/personal_info", r.Account.PersonalInfo)
		session.PATCH("/edit_profile", r.Account.EditProfile)
		session.POST("/verification/:purpose/send", chain(r.OTPLimit, r.Auth.SendVerification)...)
		session.POST("/verification/:purpose/confirm", r.Auth.ConfirmVerification)
	}

	resident := v1.Group("", r.Authenticate, middleware.RequireResident())
	{
		resident.POST("/brgy_clearance_request", r.Certificate.Create(models.CertBarangayClearance))
		resident.POST("/brgy_residency_cert", r.Certificate.Create(models.CertResidency))
		resident.POST("/brgy_indigency_cert", r.Certificate.Create(models.CertIndigency))
		resident.POST("/brgy_goodmoral_character", r.Certificate.Create(models.CertGoodMoral))
		resident.POST("/brgy_business_cert", r.Certificate.Create(models.CertBusinessClearance))

		resident.GET("/certificate_requests", r.Certificate.ListMine)
		resident.DELETE("/certificate_requests/:request_id", r.Certificate.Cancel)
		resident.GET("/request-detail/:request_id", r.Certificate.Detail)
		resident.POST("/payment/mode-selection/:request_id", r.Certificate.SelectPaymentMode)
		resident.POST("/gcash-payment/:request_id", r.Certificate.SubmitGCash)
		resident.POST("/counter_payment/:request_id", r.Certificate.ConfirmCounter)

		resident.GET("/report_records", r.Report.ListMine)
		resident.POST("/file_report", r.Report.File)

		resident.GET("/announcements", r.Announcement.Feed)
		resident.GET("/announcements/unread", r.Announcement.Unread)

		resident.POST("/chatbot", chain(r.ChatLimit, r.Chatbot.Chat)...)
	}

	admin := v1.Group("/admin", r.Authenticate, middleware.RequireStaff())
	{
		users := admin.Group("/users")
		users.GET("", r.Account.ListUsers)
		users.GET("/:id", r.Account.GetUser)
		users.POST("/:id/verify", r.Account.VerifyUser)
		users.POST("/:id/activate", r.Account.ActivateUser)
		users.POST("/:id/deactivate", r.Account.DeactivateUser)
		users.POST("/:id/change-type", middleware.RequireAdmin(), r.Account.ChangeRole)

		certs := admin.Group("/certificates")
		certs.GET("", r.Certificate.List)
		certs.GET("/export", r.Certificate.Export)
		certs.GET("/:request_id", r.Certificate.Get)
		certs.POST("/:request_id/verify-payment", r.Certificate.VerifyPayment)
		certs.POST("/:request_id/reject-payment", r.Certificate.RejectPayment)
		certs.POST("/:request_id/update-claim", r.Certificate.UpdateClaim)
		certs.DELETE("/:request_id", r.Certificate.Delete)

		reports := admin.Group("/reports")
		reports.GET("", r.Report.List)
		reports.GET("/:report_id", r.Report.Get)
		reports.POST("/:report_id/update-status", r.Report.UpdateStatus)
		reports.DELETE("/:report_id", r.Report.Delete)

		announcements := admin.Group("/announcements")
		announcements.GET("", r.Announcement.List)
		announcements.POST("", r.Announcement.Create)
		announcements.PUT("/:id", r.Announcement.Update)
		announcements.POST("/:id/toggle", r.Announcement.Toggle)
		announcements.DELETE("/:id", r.Announcement.Delete)
	}
}
