// Package main runs the EcoSort community HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecosort/backend/config"
	"github.com/ecosort/backend/internal/auth"
	"github.com/ecosort/backend/internal/classifier"
	"github.com/ecosort/backend/internal/events"
	"github.com/ecosort/backend/internal/middleware"
	"github.com/ecosort/backend/internal/models"
	"github.com/ecosort/backend/internal/participations"
	"github.com/ecosort/backend/internal/profiles"
	"github.com/ecosort/backend/internal/uploads"
	"github.com/ecosort/backend/internal/worker"
	"github.com/ecosort/backend/pkg/database"
	"github.com/ecosort/backend/pkg/queue"
	"github.com/ecosort/backend/pkg/redis"
	"github.com/ecosort/backend/pkg/response"
	"github.com/ecosort/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		PhotosBucket:    cfg.AWS.PhotosBucket,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth and profiles
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	profileRepo := profiles.NewRepository(pool)
	profileHandler := profiles.NewHandler(profileRepo, jwtService, logger)

	// Events, participations, photos
	eventRepo := events.NewRepository(pool)
	participationRepo := participations.NewRepository(pool)
	uploadRepo := uploads.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, participationRepo, uploadRepo, jobQueue, logger)
	participationHandler := participations.NewHandler(participationRepo, eventRepo, logger)
	uploadHandler := uploads.NewHandler(uploadRepo, s3Client, jobQueue, eventRepo, logger)

	// Classifier (external inference service; optional)
	var classifierSvc classifier.Service
	if cfg.Classifier.URL != "" {
		classifierSvc = classifier.NewClient(cfg.Classifier, logger)
	} else {
		logger.Warn("classifier disabled (CLASSIFIER_URL not set)")
	}
	classifierHandler := classifier.NewHandler(classifierSvc, s3Client, uploadRepo, logger)

	// Storage janitor (in-process; cmd/worker runs the same loop standalone)
	janitor := worker.NewJanitor(s3Client, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Profile
		api.GET("/me", profileHandler.Me)
		api.POST("/me/become-organizer", profileHandler.BecomeOrganizer)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole(string(models.RoleOrganizer)), eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)

		// Participation
		api.POST("/events/:id/join", participationHandler.Join)
		api.DELETE("/events/:id/leave", participationHandler.Leave)
		api.PATCH("/participations/:id/status", participationHandler.SetStatus)
		api.DELETE("/participations/:id", participationHandler.Remove)

		// Photos
		api.POST("/events/:id/photos", uploadHandler.Create)
		api.GET("/events/:id/photos", uploadHandler.ListByEvent)
		api.DELETE("/uploads/:id", uploadHandler.Delete)

		// Classifier
		api.POST("/classify", classifierHandler.Classify)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go janitor.Run(janitorCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	janitorCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
