package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edu-analytics/student-portal-api/api/swagger"
	"github.com/edu-analytics/student-portal-api/internal/handler"
	"github.com/edu-analytics/student-portal-api/internal/middleware"
	"github.com/edu-analytics/student-portal-api/internal/ml"
	"github.com/edu-analytics/student-portal-api/internal/models"
	"github.com/edu-analytics/student-portal-api/internal/repository"
	"github.com/edu-analytics/student-portal-api/internal/service"
	"github.com/edu-analytics/student-portal-api/pkg/cache"
	"github.com/edu-analytics/student-portal-api/pkg/config"
	"github.com/edu-analytics/student-portal-api/pkg/database"
	"github.com/edu-analytics/student-portal-api/pkg/logger"
	corsmiddleware "github.com/edu-analytics/student-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edu-analytics/student-portal-api/pkg/middleware/requestid"
	"github.com/edu-analytics/student-portal-api/pkg/storage"
)

// @title Student Analytics Portal API
// @version 1.0.0
// @description Teacher/student portal for assignments, performance records and risk prediction
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to record store", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis backs the roster cache and the session denylist; the portal
	// stays usable without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and session revocation disabled", "error", err)
		redisClient = nil
	}

	blobs, err := storage.NewBlobStore(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()

	recordRepo := repository.NewRecordRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(recordRepo, cacheRepo, validate, logr, service.AuthConfig{
		JWTSecret:           cfg.Auth.JWTSecret,
		TokenExpiry:         cfg.Auth.TokenExpiry,
		TeacherID:           cfg.Auth.TeacherID,
		TeacherPassword:     cfg.Auth.TeacherPassword,
		TeacherPasswordHash: cfg.Auth.TeacherPasswordHash,
	})
	recordSvc := service.NewRecordService(recordRepo, blobs, signer, cacheRepo, metricsSvc, validate, logr, service.RecordServiceConfig{
		APIPrefix:      cfg.APIPrefix,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RosterCacheTTL: cfg.Roster.CacheTTL,
	})
	modelLoader := ml.NewLoader(blobs, cfg.Model.ArtifactKey, logr)
	predictionSvc := service.NewPredictionService(recordRepo, modelLoader, cacheRepo, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	predictionHandler := handler.NewPredictionHandler(predictionSvc)
	studentHandler := handler.NewStudentHandler(recordSvc)
	fileHandler := handler.NewFileHandler(blobs, signer)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "record store unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", middleware.JWT(authSvc), authHandler.Logout)

		// Signed token is the credential; no login required.
		api.GET("/files/download", fileHandler.Download)

		teacher := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
		{
			teacher.GET("/records", recordHandler.List)
			teacher.GET("/records/export", recordHandler.Export)
			teacher.POST("/records/:id/assignment", recordHandler.UploadAssignment)
			teacher.PUT("/records/:id/performance", recordHandler.UpdatePerformance)
			teacher.PUT("/records/:id/credential", recordHandler.SetCredential)
			teacher.POST("/predictions/:id", predictionHandler.Predict)
		}

		student := api.Group("/students/me", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
		{
			student.GET("/assignments", studentHandler.Assignments)
			student.GET("/performance", studentHandler.Performance)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
