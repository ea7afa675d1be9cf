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
	"go.uber.org/zap"

	_ "github.com/vicharanashala/ajrasakha-sub001/api/swagger"
	"github.com/vicharanashala/ajrasakha-sub001/internal/handler"
	"github.com/vicharanashala/ajrasakha-sub001/internal/middleware"
	"github.com/vicharanashala/ajrasakha-sub001/internal/models"
	"github.com/vicharanashala/ajrasakha-sub001/internal/repository"
	"github.com/vicharanashala/ajrasakha-sub001/internal/service"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/cache"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/config"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/database"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/logger"
	corsmiddleware "github.com/vicharanashala/ajrasakha-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/vicharanashala/ajrasakha-sub001/pkg/middleware/requestid"
	"github.com/vicharanashala/ajrasakha-sub001/pkg/storage"
)

// @title Ajrasakha Review API
// @version 1.0.0
// @description Expert allocation, answer review and moderation workflow service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	rerouteRepo := repository.NewRerouteRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ajrasakha",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	notifications := service.NewNotificationService(cfg.Notifications, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	allocationSvc := service.NewAllocationService(questionRepo, workflowRepo, userRepo, cfg.Allocation.AutoFillSize, logr)
	reviewSvc := service.NewReviewService(questionRepo, workflowRepo, answerRepo, notifications, cfg.Review.ApprovalThreshold, cfg.Review.MinReasonLength, logr)
	rerouteSvc := service.NewRerouteService(questionRepo, workflowRepo, rerouteRepo, userRepo, notifications, cfg.Review.MinReasonLength, logr)
	questionSvc := service.NewQuestionService(questionRepo, answerRepo, allocationSvc, logr)
	snapshots := service.NewEntityDocuments(questionRepo, answerRepo)
	requestSvc := service.NewRequestService(requestRepo, snapshots, cacheSvc, cfg.Review.MinReasonLength, logr)
	dashboardSvc := service.NewDashboardService(questionRepo, rerouteRepo, requestRepo, dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(questionRepo, store, signer, logr)
		go exportSvc.CleanupLoop(ctx, cfg.Exports.CleanupInterval, 24*time.Hour)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	questionHandler := handler.NewQuestionHandler(questionSvc, reviewSvc, exportSvc, metricsSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	answerHandler := handler.NewAnswerHandler(reviewSvc, metricsSvc)
	rerouteHandler := handler.NewRerouteHandler(rerouteSvc, metricsSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	users := api.Group("/users")
	users.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", middleware.Audit(userRepo, "USER_CREATE", "users"), userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
		users.PUT("/:id/blocked", userHandler.SetBlocked)
	}

	questions := api.Group("/questions")
	questions.Use(middleware.JWT(authSvc))
	{
		questions.GET("", questionHandler.List)
		questions.GET("/:id", questionHandler.Get)
		questions.GET("/:id/queue", allocationHandler.Queue)

		moderation := questions.Group("")
		moderation.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))
		moderation.POST("", questionHandler.Create)
		moderation.POST("/:id/close", middleware.Audit(userRepo, "QUESTION_CLOSE", "questions"), questionHandler.Close)
		moderation.POST("/:id/approve", answerHandler.Approve)
		moderation.POST("/:id/reject", answerHandler.Reject)
		moderation.POST("/:id/allocations", allocationHandler.Allocate)
		moderation.POST("/:id/allocations/remove", allocationHandler.Remove)
		moderation.POST("/:id/auto-allocate", allocationHandler.ToggleAutoAllocate)
		moderation.POST("/:id/reroutes", rerouteHandler.Create)
		moderation.GET("/:id/history/export", questionHandler.ExportHistory)

		experts := questions.Group("")
		experts.Use(middleware.RequireRoles(models.RoleExpert))
		experts.POST("/:id/answers", answerHandler.Submit)
	}

	answers := api.Group("/answers")
	answers.Use(middleware.JWT(authSvc))
	{
		answers.GET("/:id/reviews", answerHandler.ListReviews)
		answers.POST("/:id/reviews", middleware.RequireRoles(models.RoleExpert, models.RoleModerator), answerHandler.AddReview)
	}

	reroutes := api.Group("/reroutes")
	reroutes.Use(middleware.JWT(authSvc))
	{
		reroutes.GET("", rerouteHandler.List)
		reroutes.GET("/:id", rerouteHandler.Get)
		reroutes.POST("/:id/reject", rerouteHandler.Reject)
	}

	requests := api.Group("/requests")
	requests.Use(middleware.JWT(authSvc))
	{
		requests.POST("", requestHandler.Create)
		requests.GET("", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.GET("/:id/diff", requestHandler.Diff)
		requests.PATCH("/:id/status",
			middleware.RequireRoles(models.RoleAdmin, models.RoleModerator),
			middleware.Audit(userRepo, "REQUEST_STATUS_UPDATE", "moderation_requests"),
			requestHandler.UpdateStatus)
	}

	if cfg.Dashboard.Enabled {
		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))
		dashboard.GET("", dashboardHandler.Summary)
	}

	if cfg.Exports.Enabled {
		api.GET("/exports/download", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
