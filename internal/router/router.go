package router

import (
	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/controller"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

type Router struct {
	authController         *controller.AuthController
	solicitudController    *controller.SolicitudController
	inspeccionController   *controller.InspeccionController
	certificadoController  *controller.CertificadoController
	statsController        *controller.StatsController
	notificacionController *controller.NotificacionController
	uploadController       *controller.UploadController
	wsController           *controller.WebSocketController
	authMiddleware         *middleware.AuthMiddleware
	config                 *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	solicitudController *controller.SolicitudController,
	inspeccionController *controller.InspeccionController,
	certificadoController *controller.CertificadoController,
	statsController *controller.StatsController,
	notificacionController *controller.NotificacionController,
	uploadController *controller.UploadController,
	wsController *controller.WebSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:         authController,
		solicitudController:    solicitudController,
		inspeccionController:   inspeccionController,
		certificadoController:  certificadoController,
		statsController:        statsController,
		notificacionController: notificacionController,
		uploadController:       uploadController,
		wsController:           wsController,
		authMiddleware:         authMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "AFAP habilitaciones API is running",
		})
	})

	// Verificación pública de certificados: sin autenticación, pensada para
	// el QR impreso en el documento exhibido.
	router.GET("/api/verificar/:serial", r.certificadoController.VerificarPublico)

	admin := string(model.RoleAdministrador)
	inspector := string(model.RoleInspector)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		usuarios := v1.Group("/usuarios")
		usuarios.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(admin))
		{
			usuarios.GET("/inspectores", r.authController.ListInspectores)
			usuarios.PUT("/:id/role", r.authController.CambiarRole)
		}

		solicitudes := v1.Group("/solicitudes")
		solicitudes.Use(r.authMiddleware.Authenticate())
		{
			solicitudes.GET("", r.solicitudController.List)
			solicitudes.POST("", r.solicitudController.Crear)
			solicitudes.GET("/:id", r.solicitudController.Get)
			solicitudes.PUT("/:id", r.solicitudController.Actualizar)
			solicitudes.POST("/:id/presentar", r.solicitudController.Presentar)

			solicitudes.POST("/:id/aprobar",
				r.authMiddleware.RequireRole(admin),
				r.solicitudController.Aprobar,
			)
			solicitudes.POST("/:id/rechazar",
				r.authMiddleware.RequireRole(admin),
				r.solicitudController.Rechazar,
			)

			solicitudes.GET("/:id/inspecciones", r.inspeccionController.ListBySolicitud)
			solicitudes.POST("/:id/inspecciones",
				r.authMiddleware.RequireRole(admin, inspector),
				r.inspeccionController.Programar,
			)

			solicitudes.GET("/:id/certificado", r.certificadoController.Descargar)
			solicitudes.GET("/:id/certificado/info", r.certificadoController.GetInfo)
		}

		inspecciones := v1.Group("/inspecciones")
		inspecciones.Use(r.authMiddleware.Authenticate())
		{
			inspecciones.GET("/propias",
				r.authMiddleware.RequireRole(inspector),
				r.inspeccionController.MisInspecciones,
			)
			inspecciones.PUT("/:id/resultado",
				r.authMiddleware.RequireRole(inspector, admin),
				r.inspeccionController.RegistrarResultado,
			)
		}

		certificados := v1.Group("/certificados")
		certificados.Use(r.authMiddleware.Authenticate())
		{
			certificados.GET("/:id/descargas",
				r.authMiddleware.RequireRole(admin),
				r.certificadoController.ListDescargas,
			)
		}

		stats := v1.Group("/stats")
		stats.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(admin))
		{
			stats.GET("/dashboard", r.statsController.Dashboard)
			stats.GET("/export", r.statsController.ExportXLSX)
		}

		notificaciones := v1.Group("/notificaciones")
		notificaciones.Use(r.authMiddleware.Authenticate())
		{
			notificaciones.GET("", r.notificacionController.List)
			notificaciones.GET("/no-leidas", r.notificacionController.CountNoLeidas)
			notificaciones.PATCH("/leidas", r.notificacionController.MarcarTodasLeidas)
			notificaciones.PATCH("/:id/leida", r.notificacionController.MarcarLeida)
		}

		uploads := v1.Group("/uploads")
		uploads.Use(r.authMiddleware.Authenticate())
		{
			uploads.POST("/documento", r.uploadController.GeneratePresignedURL)
		}

		v1.GET("/ws", r.authMiddleware.Authenticate(), r.wsController.Connect)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
