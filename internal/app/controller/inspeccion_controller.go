package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

type InspeccionController struct {
	inspeccionService service.InspeccionService
}

func NewInspeccionController(inspeccionService service.InspeccionService) *InspeccionController {
	return &InspeccionController{
		inspeccionService: inspeccionService,
	}
}

type ProgramarInspeccionRequest struct {
	InspectorID     uint      `json:"inspector_id" binding:"required"`
	FechaProgramada time.Time `json:"fecha_programada" binding:"required"`
}

type RegistrarResultadoRequest struct {
	Resultado string `json:"resultado" binding:"required"`
	Notas     string `json:"notas"`
}

// Programar schedules an inspection for a solicitud (admin only)
// POST /api/v1/solicitudes/:id/inspecciones
func (ctrl *InspeccionController) Programar(c *gin.Context) {
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

	var req ProgramarInspeccionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	inspeccion, err := ctrl.inspeccionService.Programar(c.Request.Context(), actor, solicitudID, req.InspectorID, req.FechaProgramada)
	if err != nil {
		log.Warn("Inspection scheduling failed", map[string]interface{}{
			"solicitud_id": solicitudID,
			"inspector_id": req.InspectorID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Inspection scheduled", map[string]interface{}{
		"inspeccion_id": inspeccion.ID,
		"solicitud_id":  solicitudID,
		"inspector_id":  req.InspectorID,
		"scheduled_by":  actor.UserID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Inspección programada",
		"inspeccion": inspeccion,
	})
}

// RegistrarResultado records the result of a pending inspection (inspector only)
// PUT /api/v1/inspecciones/:id/resultado
func (ctrl *InspeccionController) RegistrarResultado(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	inspeccionID, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de inspección no es válido")
		return
	}

	var req RegistrarResultadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	inspeccion, err := ctrl.inspeccionService.RegistrarResultado(
		c.Request.Context(), actor, inspeccionID, model.ResultadoInspeccion(req.Resultado), req.Notas)
	if err != nil {
		log.Warn("Result registration failed", map[string]interface{}{
			"inspeccion_id": inspeccionID,
			"inspector_id":  actor.UserID,
			"error":         err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Inspection result recorded", map[string]interface{}{
		"inspeccion_id": inspeccion.ID,
		"resultado":     inspeccion.Resultado,
		"inspector_id":  actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":    "Resultado registrado",
		"inspeccion": inspeccion,
	})
}

// ListBySolicitud returns the inspection history of a solicitud
// GET /api/v1/solicitudes/:id/inspecciones
func (ctrl *InspeccionController) ListBySolicitud(c *gin.Context) {
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

	inspecciones, err := ctrl.inspeccionService.ListBySolicitud(c.Request.Context(), actor, solicitudID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inspecciones": inspecciones,
		"total":        len(inspecciones),
	})
}

// MisInspecciones returns the inspections assigned to the acting inspector
// GET /api/v1/inspecciones/propias
func (ctrl *InspeccionController) MisInspecciones(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	inspecciones, err := ctrl.inspeccionService.ListPropias(c.Request.Context(), actor)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inspecciones": inspecciones,
		"total":        len(inspecciones),
	})
}
