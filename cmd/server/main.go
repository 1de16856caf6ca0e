package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/controller"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
	"github.com/habilitaciones-ar/afap-backend/internal/render"
	"github.com/habilitaciones-ar/afap-backend/internal/router"
	"github.com/habilitaciones-ar/afap-backend/internal/scheduler"
	"github.com/habilitaciones-ar/afap-backend/internal/storage"
	"github.com/habilitaciones-ar/afap-backend/internal/websocket"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"github.com/habilitaciones-ar/afap-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting AFAP Habilitaciones Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed database (tramite counter for the current year)
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize Redis (token revocation)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	solicitudRepo := repository.NewSolicitudRepository(db.GetDB())
	inspeccionRepo := repository.NewInspeccionRepository(db.GetDB())
	certificadoRepo := repository.NewCertificadoRepository(db.GetDB())
	notificacionRepo := repository.NewNotificacionRepository(db.GetDB())

	// In-process event dispatcher and WebSocket hub
	dispatcher := events.NewInMemoryDispatcher()
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	solicitudService := service.NewSolicitudService(
		solicitudRepo,
		inspeccionRepo,
		certificadoRepo,
		render.NewHTMLRenderer(),
		dispatcher,
		&cfg.Certificados,
		db.GetDB(),
	)
	inspeccionService := service.NewInspeccionService(
		inspeccionRepo,
		solicitudRepo,
		userRepo,
		dispatcher,
		db.GetDB(),
	)
	certificadoService := service.NewCertificadoService(certificadoRepo, solicitudRepo, userRepo)
	statsService := service.NewStatsService(solicitudRepo)
	notificacionService := service.NewNotificacionService(notificacionRepo, userRepo, hub, service.NewLogMailer())
	notificacionService.SubscribirEventos(dispatcher)

	// S3 storage for tramite documentation
	s3Storage := storage.NewDocumentoStorage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Daily expiry warning sweep
	vencimientoScheduler := scheduler.NewVencimientoScheduler(
		solicitudRepo,
		dispatcher,
		cfg.Certificados.AvisoVencimientoDias,
	)
	if err := vencimientoScheduler.Start(); err != nil {
		logger.Fatal("Failed to start expiry scheduler", err)
	}
	defer vencimientoScheduler.Stop()

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.JWT.Secret)
	solicitudController := controller.NewSolicitudController(solicitudService)
	inspeccionController := controller.NewInspeccionController(inspeccionService)
	certificadoController := controller.NewCertificadoController(certificadoService)
	statsController := controller.NewStatsController(statsService)
	notificacionController := controller.NewNotificacionController(notificacionService)
	uploadController := controller.NewUploadController(s3Storage)
	wsController := controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		solicitudController,
		inspeccionController,
		certificadoController,
		statsController,
		notificacionController,
		uploadController,
		wsController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
