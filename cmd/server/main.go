package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/cache"
	"github.com/labang-online/portal/internal/config"
	"github.com/labang-online/portal/internal/database"
	"github.com/labang-online/portal/internal/export"
	"github.com/labang-online/portal/internal/genai"
	"github.com/labang-online/portal/internal/handlers"
	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/middleware"
	"github.com/labang-online/portal/internal/notify"
	"github.com/labang-online/portal/internal/repository"
	"github.com/labang-online/portal/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second

	// Chatbot budget per account.
	chatRateLimit  = 20
	chatRateWindow = time.Minute
)

// barangayLocation is the zone used for spreadsheet timestamps.
func barangayLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	log.Info("Starting Labang Online API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Create database connection pool and apply migrations
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal("Failed to apply migrations", err, nil)
	}
	log.Info("Database ready", map[string]interface{}{
		"database":   cfg.Database.Name,
		"pool_min":   cfg.Database.PoolMin,
		"pool_max":   cfg.Database.PoolMax,
		"migrations": applied,
	})

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", err, map[string]interface{}{"addr": cfg.Redis.Addr})
	}
	defer rdb.Close()

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	reportRepo := repository.NewReportRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Notifications are queued in the outbox and delivered in the background.
	outbox := notify.NewOutbox(notificationRepo)
	dispatcher := notify.NewDispatcher(
		notificationRepo,
		notify.NewEmailSender(cfg.Mail),
		notify.NewSMSSender(cfg.SMS),
		cfg.Outbox,
		log,
	)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ResetTokenTTL)
	otpService := services.NewOTPService(otpRepo, cfg.OTP.TTL, log)
	authService := services.NewAuthService(
		accountRepo,
		otpService,
		tokens,
		cache.NewResetTokenStore(rdb),
		outbox,
		cfg.Auth.ResetTokenTTL,
		log,
	)
	accountService := services.NewAccountService(accountRepo, outbox, log)
	certificateService := services.NewCertificateService(
		certificateRepo,
		accountRepo,
		identifier.NewAllocator(certificateRepo),
		export.NewWorkbook(barangayLocation()),
		outbox,
		log,
	)
	reportService := services.NewReportService(reportRepo, accountRepo, outbox, log)
	announcementService := services.NewAnnouncementService(announcementRepo, accountRepo, log)

	gemini := genai.NewClient(cfg.Gemini, log)
	if !gemini.Configured() {
		log.Warn("GEMINI_API_KEY not set, chatbot will answer with an unavailable message", nil)
	}
	chatbotService := services.NewChatbotService(gemini, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	otpLimiter := cache.NewRateLimiter(rdb, "otp", cfg.OTP.RateLimit, cfg.OTP.RateLimitWindow)
	chatLimiter := cache.NewRateLimiter(rdb, "chat", chatRateLimit, chatRateWindow)

	handlers.Routes{
		Health: handlers.NewHealthHandler(db, handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}), cfg.Server.Env),
		Auth:         handlers.NewAuthHandler(authService),
		Account:      handlers.NewAccountHandler(accountService),
		Certificate:  handlers.NewCertificateHandler(certificateService),
		Report:       handlers.NewReportHandler(reportService),
		Announcement: handlers.NewAnnouncementHandler(announcementService),
		Chatbot:      handlers.NewChatbotHandler(chatbotService),
		Authenticate: middleware.Authenticate(tokens, accountRepo),
		OTPLimit:     middleware.RateLimit(otpLimiter, middleware.ByAccountOrIP),
		ChatLimit:    middleware.RateLimit(chatLimiter, middleware.ByAccountOrIP),
	}.Register(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	stop()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn("Outbox dispatcher did not stop in time", nil)
	}

	log.Info("Server exited", nil)
}
