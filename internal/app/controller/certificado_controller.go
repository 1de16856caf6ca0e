package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

type CertificadoController struct {
	certificadoService service.CertificadoService
}

func NewCertificadoController(certificadoService service.CertificadoService) *CertificadoController {
	return &CertificadoController{
		certificadoService: certificadoService,
	}
}

// Descargar serves the rendered certificate and records the download
// GET /api/v1/solicitudes/:id/certificado
func (ctrl *CertificadoController) Descargar(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	solicitudID, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	certificado, err := ctrl.certificadoService.Descargar(c.Request.Context(), actor, solicitudID)
	if err != nil {
		log.Warn("Certificate download failed", map[string]interface{}{
			"solicitud_id": solicitudID,
			"user_id":      actor.UserID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Certificate downloaded", map[string]interface{}{
		"certificado_id": certificado.ID,
		"serial":         certificado.Serial,
		"user_id":        actor.UserID,
	})

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=certificado-%s.html", certificado.Serial))
	c.Data(http.StatusOK, certificado.ContentType, certificado.Contenido)
}

// GetInfo returns certificate metadata without serving the document
// GET /api/v1/solicitudes/:id/certificado/info
func (ctrl *CertificadoController) GetInfo(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	solicitudID, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	certificado, err := ctrl.certificadoService.GetBySolicitud(c.Request.Context(), actor, solicitudID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificado": certificado})
}

// VerificarPublico checks a certificate by serial, without authentication.
// Un serial desconocido responde una verificación negativa, no un 404.
// GET /api/verificar/:serial
func (ctrl *CertificadoController) VerificarPublico(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	serial := c.Param("serial")
	if serial == "" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Falta el serial del certificado")
		return
	}

	verificacion, err := ctrl.certificadoService.VerificarPublico(c.Request.Context(), serial)
	if err != nil {
		log.Error("Public verification failed", err, map[string]interface{}{
			"serial": serial,
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, verificacion)
}

// ListDescargas returns the download audit trail of a certificate (admin only)
// GET /api/v1/certificados/:id/descargas
func (ctrl *CertificadoController) ListDescargas(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	certificadoID, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de certificado no es válido")
		return
	}

	descargas, err := ctrl.certificadoService.ListDescargas(c.Request.Context(), actor, certificadoID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"descargas": descargas,
		"total":     len(descargas),
	})
}
