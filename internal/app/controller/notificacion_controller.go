package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

type NotificacionController struct {
	notificacionService service.NotificacionService
}

func NewNotificacionController(notificacionService service.NotificacionService) *NotificacionController {
	return &NotificacionController{
		notificacionService: notificacionService,
	}
}

// List returns the user's notifications
// GET /api/v1/notificaciones?no_leidas=true
func (ctrl *NotificacionController) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	soloNoLeidas := c.Query("no_leidas") == "true"

	notificaciones, err := ctrl.notificacionService.List(c.Request.Context(), userID, soloNoLeidas)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notificaciones": notificaciones,
		"total":          len(notificaciones),
	})
}

// CountNoLeidas returns the unread notification count
// GET /api/v1/notificaciones/no-leidas
func (ctrl *NotificacionController) CountNoLeidas(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	count, err := ctrl.notificacionService.CountNoLeidas(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"no_leidas": count})
}

// MarcarLeida marks one notification as read
// PATCH /api/v1/notificaciones/:id/leida
func (ctrl *NotificacionController) MarcarLeida(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de notificación no es válido")
		return
	}

	if err := ctrl.notificacionService.MarcarLeida(c.Request.Context(), userID, id); err != nil {
		log.Warn("Mark-as-read failed", map[string]interface{}{
			"notificacion_id": id,
			"user_id":         userID,
			"error":           err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notificación leída"})
}

// MarcarTodasLeidas marks every notification of the user as read
// PATCH /api/v1/notificaciones/leidas
func (ctrl *NotificacionController) MarcarTodasLeidas(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	if err := ctrl.notificacionService.MarcarTodasLeidas(c.Request.Context(), userID); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notificaciones leídas"})
}
