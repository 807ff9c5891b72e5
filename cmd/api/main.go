package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gfwl-hub/gfwl-hub-api/api/swagger"
	"github.com/gfwl-hub/gfwl-hub-api/internal/handler"
	"github.com/gfwl-hub/gfwl-hub-api/internal/middleware"
	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
	"github.com/gfwl-hub/gfwl-hub-api/internal/notify"
	"github.com/gfwl-hub/gfwl-hub-api/internal/repository"
	"github.com/gfwl-hub/gfwl-hub-api/internal/service"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/cache"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/config"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/database"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/jobs"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/logger"
	corsmiddleware "github.com/gfwl-hub/gfwl-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gfwl-hub/gfwl-hub-api/pkg/middleware/requestid"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/storage"
)

// @title GFWL Hub API
// @version 1.0.0
// @description Community catalogue and correction workflow for Games for Windows Live titles
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting degrade", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	gameRepo := repository.NewGameRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	faqRepo := repository.NewFAQRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	webhookURL := ""
	if cfg.Discord.Enabled {
		webhookURL = cfg.Discord.WebhookURL
	}
	webhook := notify.NewDiscordWebhook(webhookURL, logr)

	providers := []service.OAuthProvider{
		service.NewDiscordProvider(cfg.OAuth.DiscordClientID, cfg.OAuth.DiscordClientSecret,
			cfg.OAuth.RedirectBaseURL+"/api/v1/auth/discord/callback"),
		service.NewGoogleProvider(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.RedirectBaseURL+"/api/v1/auth/google/callback"),
	}
	authService := service.NewAuthService(userRepo, providers, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gfwl-hub",
		Audience:           []string{"gfwl-hub-api"},
	})

	correctionService := service.NewCorrectionService(correctionRepo, gameRepo, userRepo, webhook, logr,
		service.WithMergeWindow(cfg.Corrections.MergeWindow),
		service.WithListCap(cfg.Corrections.ListCap),
		service.WithNotificationRecorder(metrics),
	)

	queue := jobs.NewQueue("discord-notifications", correctionService.HandleNotification, jobs.QueueConfig{
		Workers:    cfg.Discord.Workers,
		MaxRetries: cfg.Discord.MaxRetries,
		RetryDelay: cfg.Discord.RetryDelay,
		Logger:     logr,
		OnDropped: func(job jobs.Job, err error) {
			metrics.NotificationFailed()
			logr.Sugar().Errorw("notification dropped", "job", job.ID, "error", err)
		},
	})
	queue.Start(ctx)
	defer queue.Stop()
	correctionService.AttachQueue(queue)
	metrics.RegisterQueueDepth(queue.Depth)

	userService := service.NewUserService(userRepo, cfg.Moderation.DeveloperEmails, logr)
	gameService := service.NewGameService(gameRepo, userRepo, cacheService, logr)
	faqService := service.NewFAQService(faqRepo, logr)
	dashboardService := service.NewDashboardService(correctionRepo, gameRepo, userRepo, cacheService, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportService := service.NewExportService(userRepo, correctionRepo, exportStorage, signer, logr)
	exportService.StartCleanup(ctx, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)

	authHandler := handler.NewAuthHandler(authService)
	correctionHandler := handler.NewCorrectionHandler(correctionService)
	userHandler := handler.NewUserHandler(userService, exportService)
	gameHandler := handler.NewGameHandler(gameService)
	faqHandler := handler.NewFAQHandler(faqService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metrics, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authed := middleware.JWT(authService)
	active := middleware.ActiveAccount(userRepo)
	csrf := middleware.CSRF(cfg.CSRF.Secret)
	reviewers := middleware.RequireRoles(models.RoleReviewer, models.RoleAdmin)
	admins := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.GET("/:provider/login", authHandler.Login)
			auth.GET("/:provider/callback", authHandler.Callback)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authed, authHandler.Logout)
			auth.GET("/me", authed, authHandler.Me)
		}

		games := api.Group("/games")
		{
			games.GET("", middleware.OptionalJWT(authService), gameHandler.List)
			games.GET("/:slug", middleware.OptionalJWT(authService), gameHandler.Get)
			games.POST("", authed, active, admins, csrf, gameHandler.Create)
			games.PATCH("/:slug", authed, active, admins, csrf, gameHandler.Update)
			games.POST("/:slug/publish", authed, active, admins, csrf, gameHandler.Publish)
		}

		corrections := api.Group("/corrections", authed, active)
		{
			submitLimiter := middleware.RateLimit(redisClient, "corrections", cfg.RateLimit.Limit, cfg.RateLimit.Window, logr)
			if !cfg.RateLimit.Enabled {
				submitLimiter = func(c *gin.Context) { c.Next() }
			}
			corrections.POST("", csrf, submitLimiter, correctionHandler.Create)
			corrections.GET("", correctionHandler.List)
			corrections.GET("/:id", correctionHandler.Get)
			corrections.POST("/:id/review", reviewers, csrf, correctionHandler.Review)
		}

		users := api.Group("/users", authed, active)
		{
			users.GET("", admins, userHandler.List)
			users.GET("/:id", middleware.RBAC("SELF", string(models.RoleAdmin)), userHandler.Get)
			users.GET("/:id/stats", middleware.RBAC("SELF", string(models.RoleReviewer), string(models.RoleAdmin)), userHandler.Stats)
			users.GET("/:id/export", middleware.RBAC("SELF", string(models.RoleAdmin)), userHandler.Export)
			users.PATCH("/:id", middleware.RBAC("SELF", string(models.RoleAdmin)), csrf, userHandler.Update)
			users.DELETE("/:id", middleware.RBAC("SELF", string(models.RoleAdmin)), csrf,
				middleware.Audit(userRepo, models.AuditActionUserDelete, "users"), userHandler.Delete)
		}

		faqs := api.Group("/faqs")
		{
			faqs.GET("", middleware.OptionalJWT(authService), faqHandler.List)
			faqs.POST("", authed, active, admins, csrf, faqHandler.Create)
			faqs.PUT("/:id", authed, active, admins, csrf, faqHandler.Update)
			faqs.DELETE("/:id", authed, active, admins, csrf, faqHandler.Delete)
		}

		api.GET("/dashboard", authed, active, dashboardHandler.Get)
		api.GET("/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
