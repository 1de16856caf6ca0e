package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

type SolicitudController struct {
	solicitudService service.SolicitudService
}

func NewSolicitudController(solicitudService service.SolicitudService) *SolicitudController {
	return &SolicitudController{
		solicitudService: solicitudService,
	}
}

// SolicitudRequest es el cuerpo de creación y edición de borradores. Todos
// los campos son opcionales hasta la presentación.
type SolicitudRequest struct {
	TitularTipo          string   `json:"titular_tipo"`
	TitularNombre        string   `json:"titular_nombre"`
	TitularCuit          string   `json:"titular_cuit"`
	CuentaABL            string   `json:"cuenta_abl"`
	DomicilioCalle       string   `json:"domicilio_calle"`
	DomicilioAltura      string   `json:"domicilio_altura"`
	DomicilioPiso        string   `json:"domicilio_piso"`
	DomicilioDepto       string   `json:"domicilio_depto"`
	DomicilioLocal       string   `json:"domicilio_local"`
	DomicilioLocalidad   string   `json:"domicilio_localidad"`
	RubroTipo            string   `json:"rubro_tipo"`
	RubroSubrubro        string   `json:"rubro_subrubro"`
	RubroDescripcion     string   `json:"rubro_descripcion"`
	MetrosCuadrados      float64  `json:"metros_cuadrados"`
	TechosCielorasos     string   `json:"techos_cielorasos"`
	PisosMaterial        string   `json:"pisos_material"`
	TieneSanitarios      bool     `json:"tiene_sanitarios"`
	CantidadTrabajadores int      `json:"cantidad_trabajadores"`
	DocumentosURLs       []string `json:"documentos_urls"`
}

type RechazarRequest struct {
	Motivo string `json:"motivo" binding:"required"`
}

func (r *SolicitudRequest) toInput() service.SolicitudInput {
	return service.SolicitudInput{
		TitularTipo:          model.TitularTipo(r.TitularTipo),
		TitularNombre:        r.TitularNombre,
		TitularCuit:          r.TitularCuit,
		CuentaABL:            r.CuentaABL,
		DomicilioCalle:       r.DomicilioCalle,
		DomicilioAltura:      r.DomicilioAltura,
		DomicilioPiso:        r.DomicilioPiso,
		DomicilioDepto:       r.DomicilioDepto,
		DomicilioLocal:       r.DomicilioLocal,
		DomicilioLocalidad:   r.DomicilioLocalidad,
		RubroTipo:            r.RubroTipo,
		RubroSubrubro:        r.RubroSubrubro,
		RubroDescripcion:     r.RubroDescripcion,
		MetrosCuadrados:      r.MetrosCuadrados,
		TechosCielorasos:     r.TechosCielorasos,
		PisosMaterial:        r.PisosMaterial,
		TieneSanitarios:      r.TieneSanitarios,
		CantidadTrabajadores: r.CantidadTrabajadores,
		DocumentosURLs:       r.DocumentosURLs,
	}
}

// Crear creates a new draft
// POST /api/v1/solicitudes
func (ctrl *SolicitudController) Crear(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	var req SolicitudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	solicitud, err := ctrl.solicitudService.CrearBorrador(c.Request.Context(), actor, req.toInput())
	if err != nil {
		log.Warn("Draft creation failed", map[string]interface{}{
			"user_id": actor.UserID,
			"error":   err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Draft created", map[string]interface{}{
		"solicitud_id": solicitud.ID,
		"user_id":      actor.UserID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Borrador creado",
		"solicitud": solicitud,
	})
}

// Actualizar updates a draft
// PUT /api/v1/solicitudes/:id
func (ctrl *SolicitudController) Actualizar(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	var req SolicitudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	solicitud, err := ctrl.solicitudService.ActualizarBorrador(c.Request.Context(), actor, id, req.toInput())
	if err != nil {
		log.Warn("Draft update failed", map[string]interface{}{
			"solicitud_id": id,
			"user_id":      actor.UserID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Borrador actualizado",
		"solicitud": solicitud,
	})
}

// Presentar submits a draft, assigning its tramite number
// POST /api/v1/solicitudes/:id/presentar
func (ctrl *SolicitudController) Presentar(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	solicitud, err := ctrl.solicitudService.Presentar(c.Request.Context(), actor, id)
	if err != nil {
		log.Warn("Submission failed", map[string]interface{}{
			"solicitud_id": id,
			"user_id":      actor.UserID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Solicitud submitted", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": solicitud.Numero(),
		"user_id":        actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   "Solicitud presentada",
		"solicitud": solicitud,
	})
}

// Aprobar approves a solicitud and issues its certificate
// POST /api/v1/solicitudes/:id/aprobar
func (ctrl *SolicitudController) Aprobar(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	solicitud, certificado, err := ctrl.solicitudService.Aprobar(c.Request.Context(), actor, id)
	if err != nil {
		log.Warn("Approval failed", map[string]interface{}{
			"solicitud_id": id,
			"user_id":      actor.UserID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Solicitud approved", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": solicitud.Numero(),
		"serial":         certificado.Serial,
		"approved_by":    actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Solicitud aprobada",
		"solicitud":   solicitud,
		"certificado": certificado,
	})
}

// Rechazar rejects a solicitud with a motive
// POST /api/v1/solicitudes/:id/rechazar
func (ctrl *SolicitudController) Rechazar(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	var req RechazarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationMotivoRequired, "El rechazo requiere un motivo")
		return
	}

	solicitud, err := ctrl.solicitudService.Rechazar(c.Request.Context(), actor, id, req.Motivo)
	if err != nil {
		log.Warn("Rejection failed", map[string]interface{}{
			"solicitud_id": id,
			"user_id":      actor.UserID,
			"error":        err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Solicitud rejected", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": solicitud.Numero(),
		"rejected_by":    actor.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   "Solicitud rechazada",
		"solicitud": solicitud,
	})
}

// Get returns one solicitud
// GET /api/v1/solicitudes/:id
func (ctrl *SolicitudController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de solicitud no es válido")
		return
	}

	solicitud, err := ctrl.solicitudService.Get(c.Request.Context(), actor, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"solicitud": solicitud})
}

// List returns solicitudes visible to the actor, paginated
// GET /api/v1/solicitudes?estado=&page=&limit=
func (ctrl *SolicitudController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := repository.SolicitudFilter{
		Estado: model.EstadoSolicitud(c.Query("estado")),
		Page:   page,
		Limit:  limit,
	}

	solicitudes, total, err := ctrl.solicitudService.List(c.Request.Context(), actor, filter)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"solicitudes": solicitudes,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}
