package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/internal/render"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"github.com/habilitaciones-ar/afap-backend/pkg/util"
	"gorm.io/gorm"
)

// SolicitudInput son los datos editables de una solicitud en borrador.
type SolicitudInput struct {
	TitularTipo          model.TitularTipo
	TitularNombre        string
	TitularCuit          string
	CuentaABL            string
	DomicilioCalle       string
	DomicilioAltura      string
	DomicilioPiso        string
	DomicilioDepto       string
	DomicilioLocal       string
	DomicilioLocalidad   string
	RubroTipo            string
	RubroSubrubro        string
	RubroDescripcion     string
	MetrosCuadrados      float64
	TechosCielorasos     string
	PisosMaterial        string
	TieneSanitarios      bool
	CantidadTrabajadores int
	DocumentosURLs       []string
}

type SolicitudService interface {
	CrearBorrador(ctx context.Context, actor authz.Actor, input SolicitudInput) (*model.Solicitud, error)
	ActualizarBorrador(ctx context.Context, actor authz.Actor, id uint, input SolicitudInput) (*model.Solicitud, error)
	// Presentar valida los campos obligatorios, asigna el número de trámite
	// del año en curso y pasa la solicitud a presentada, todo en una
	// transacción.
	Presentar(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, error)
	// Aprobar emite el certificado en la misma transacción que la transición.
	// Aprobar una solicitud ya aprobada devuelve el certificado existente sin
	// efectos adicionales.
	Aprobar(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, *model.Certificado, error)
	Rechazar(ctx context.Context, actor authz.Actor, id uint, motivo string) (*model.Solicitud, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, error)
	List(ctx context.Context, actor authz.Actor, filter repository.SolicitudFilter) ([]model.Solicitud, int64, error)
}

type solicitudService struct {
	solicitudRepo   repository.SolicitudRepository
	inspeccionRepo  repository.InspeccionRepository
	certificadoRepo repository.CertificadoRepository
	renderer        render.Renderer
	dispatcher      events.Dispatcher
	certCfg         *config.CertificadosConfig
	db              *gorm.DB
}

func NewSolicitudService(
	solicitudRepo repository.SolicitudRepository,
	inspeccionRepo repository.InspeccionRepository,
	certificadoRepo repository.CertificadoRepository,
	renderer render.Renderer,
	dispatcher events.Dispatcher,
	certCfg *config.CertificadosConfig,
	db *gorm.DB,
) SolicitudService {
	return &solicitudService{
		solicitudRepo:   solicitudRepo,
		inspeccionRepo:  inspeccionRepo,
		certificadoRepo: certificadoRepo,
		renderer:        renderer,
		dispatcher:      dispatcher,
		certCfg:         certCfg,
		db:              db,
	}
}

func (s *solicitudService) CrearBorrador(ctx context.Context, actor authz.Actor, input SolicitudInput) (*model.Solicitud, error) {
	if err := authz.Authorize(actor, authz.OpSolicitudCrear, 0); err != nil {
		return nil, err
	}

	logger.Info("Creating solicitud borrador", map[string]interface{}{
		"user_id": actor.UserID,
	})

	if input.TitularCuit != "" && !util.ValidateCuit(input.TitularCuit) {
		return nil, apperrors.Validation(apperrors.AuthCuitInvalid,
			"El CUIT del titular no es válido")
	}

	solicitud := &model.Solicitud{
		UserID: actor.UserID,
		Estado: model.EstadoBorrador,
	}
	aplicarInput(solicitud, input)

	if err := s.solicitudRepo.Create(solicitud); err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Solicitud borrador created", map[string]interface{}{
		"solicitud_id": solicitud.ID,
		"user_id":      actor.UserID,
	})
	return solicitud, nil
}

func (s *solicitudService) ActualizarBorrador(ctx context.Context, actor authz.Actor, id uint, input SolicitudInput) (*model.Solicitud, error) {
	solicitud, err := s.findSolicitud(id)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(actor, authz.OpSolicitudEditar, solicitud.UserID); err != nil {
		return nil, err
	}

	if solicitud.Estado != model.EstadoBorrador {
		logger.Warn("Attempt to edit non-draft solicitud", map[string]interface{}{
			"solicitud_id": id,
			"estado":       solicitud.Estado,
		})
		return nil, apperrors.State(apperrors.SolicitudEstadoInvalido,
			"Sólo se puede editar una solicitud en borrador")
	}

	if input.TitularCuit != "" && !util.ValidateCuit(input.TitularCuit) {
		return nil, apperrors.Validation(apperrors.AuthCuitInvalid,
			"El CUIT del titular no es válido")
	}

	aplicarInput(solicitud, input)
	if err := s.solicitudRepo.Update(solicitud); err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Solicitud borrador updated", map[string]interface{}{
		"solicitud_id": solicitud.ID,
	})
	return solicitud, nil
}

func (s *solicitudService) Presentar(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, error) {
	logger.Info("Presenting solicitud", map[string]interface{}{
		"solicitud_id": id,
		"user_id":      actor.UserID,
	})

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic while presenting solicitud, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"solicitud_id": id,
			})
		}
	}()

	solicitud, err := s.solicitudRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	if err := authz.Authorize(actor, authz.OpSolicitudPresentar, solicitud.UserID); err != nil {
		tx.Rollback()
		return nil, err
	}

	nuevoEstado, err := model.Transicionar(solicitud.Estado, model.EventoPresentar)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if faltantes := solicitud.CamposFaltantes(); len(faltantes) > 0 {
		tx.Rollback()
		logger.Warn("Solicitud incomplete, cannot present", map[string]interface{}{
			"solicitud_id": id,
			"faltantes":    faltantes,
		})
		return nil, apperrors.Validation(apperrors.SolicitudCamposFaltantes,
			"Faltan datos obligatorios: "+strings.Join(faltantes, ", "))
	}

	year := time.Now().Year()
	numero, err := s.solicitudRepo.NextNumeroTramite(tx, year)
	if err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err, nil)
	}

	versionLeida := solicitud.Version
	solicitud.Estado = nuevoEstado
	solicitud.NumeroTramite = &numero
	if err := s.solicitudRepo.UpdateEstadoConVersion(tx, solicitud, versionLeida); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit solicitud presentation", err, map[string]interface{}{
			"solicitud_id": id,
		})
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Solicitud presented successfully", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": numero,
	})

	now := time.Now()
	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.SolicitudPresentada,
		SolicitudID:   solicitud.ID,
		NumeroTramite: numero,
		UserID:        solicitud.UserID,
		OccurredAt:    now,
	})
	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.EstadoCambiado,
		SolicitudID:   solicitud.ID,
		NumeroTramite: numero,
		UserID:        solicitud.UserID,
		EstadoDesde:   string(model.EstadoBorrador),
		EstadoHasta:   string(solicitud.Estado),
		OccurredAt:    now,
	})

	return solicitud, nil
}

func (s *solicitudService) Aprobar(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, *model.Certificado, error) {
	if err := authz.Authorize(actor, authz.OpSolicitudAprobar, 0); err != nil {
		return nil, nil, err
	}

	logger.Info("Approving solicitud", map[string]interface{}{
		"solicitud_id": id,
		"admin_id":     actor.UserID,
	})

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic while approving solicitud, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"solicitud_id": id,
			})
		}
	}()

	solicitud, err := s.solicitudRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	// re-aprobar es idempotente: devuelve el certificado ya emitido
	if solicitud.Estado == model.EstadoAprobada {
		tx.Rollback()
		certificado, err := s.certificadoRepo.FindBySolicitudID(solicitud.ID)
		if err != nil {
			logger.Error("Approved solicitud without certificado", err, map[string]interface{}{
				"solicitud_id": solicitud.ID,
			})
			return nil, nil, apperrors.FromStore(err,
				apperrors.NotFoundError(apperrors.CertificadoNotFound, "Certificado no encontrado"))
		}
		logger.Info("Solicitud already approved, returning existing certificado", map[string]interface{}{
			"solicitud_id": solicitud.ID,
			"serial":       certificado.Serial,
		})
		return solicitud, certificado, nil
	}

	nuevoEstado, err := model.Transicionar(solicitud.Estado, model.EventoAprobar)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	// la aprobación exige una inspección con resultado aprobado y ninguna
	// pendiente: una re-inspección programada bloquea la decisión
	inspecciones, err := s.inspeccionRepo.FindBySolicitudID(tx, solicitud.ID)
	if err != nil {
		tx.Rollback()
		return nil, nil, apperrors.FromStore(err, nil)
	}
	conAprobada := false
	conPendiente := false
	for _, inspeccion := range inspecciones {
		switch inspeccion.Resultado {
		case model.ResultadoAprobada:
			conAprobada = true
		case model.ResultadoPendiente:
			conPendiente = true
		}
	}
	if !conAprobada {
		tx.Rollback()
		logger.Warn("Cannot approve solicitud without approved inspeccion", map[string]interface{}{
			"solicitud_id": solicitud.ID,
		})
		return nil, nil, apperrors.Precondition(apperrors.SolicitudSinInspeccion,
			"La solicitud no tiene una inspección aprobada")
	}
	if conPendiente {
		tx.Rollback()
		logger.Warn("Cannot approve solicitud with pending inspeccion", map[string]interface{}{
			"solicitud_id": solicitud.ID,
		})
		return nil, nil, apperrors.Precondition(apperrors.SolicitudInspeccionPendiente,
			"La solicitud tiene una inspección pendiente de resultado")
	}

	emitido := time.Now()
	vencimiento := emitido.AddDate(0, 0, s.certCfg.VigenciaDias)

	certificado, err := s.emitirCertificado(tx, solicitud, emitido, vencimiento)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	versionLeida := solicitud.Version
	estadoAnterior := solicitud.Estado
	solicitud.Estado = nuevoEstado
	solicitud.FechaVencimiento = &vencimiento
	if err := s.solicitudRepo.UpdateEstadoConVersion(tx, solicitud, versionLeida); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit solicitud approval", err, map[string]interface{}{
			"solicitud_id": id,
		})
		return nil, nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Solicitud approved and certificado issued", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": solicitud.Numero(),
		"serial":         certificado.Serial,
	})

	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.EstadoCambiado,
		SolicitudID:   solicitud.ID,
		NumeroTramite: solicitud.Numero(),
		UserID:        solicitud.UserID,
		EstadoDesde:   string(estadoAnterior),
		EstadoHasta:   string(solicitud.Estado),
		OccurredAt:    emitido,
	})
	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.CertificadoEmitido,
		SolicitudID:   solicitud.ID,
		NumeroTramite: solicitud.Numero(),
		UserID:        solicitud.UserID,
		CertSerial:    certificado.Serial,
		Vencimiento:   vencimiento,
		OccurredAt:    emitido,
	})

	return solicitud, certificado, nil
}

// emitirCertificado arma y persiste el certificado dentro de la transacción de
// aprobación: o se emiten ambos (transición + certificado) o ninguno.
func (s *solicitudService) emitirCertificado(tx *gorm.DB, solicitud *model.Solicitud, emitido, vencimiento time.Time) (*model.Certificado, error) {
	serial, err := util.GenerateCertSerial()
	if err != nil {
		return nil, apperrors.Internal(apperrors.CertificadoRenderError,
			"No se pudo generar el certificado").Wrap(err)
	}
	codigo := util.GenerateVerificationCode(solicitud.Numero(), emitido)

	domicilio := fmt.Sprintf("%s %s", solicitud.DomicilioCalle, solicitud.DomicilioAltura)
	if solicitud.DomicilioPiso != "" {
		domicilio += " Piso " + solicitud.DomicilioPiso
	}
	if solicitud.DomicilioDepto != "" {
		domicilio += " Depto " + solicitud.DomicilioDepto
	}
	domicilio += ", " + solicitud.DomicilioLocalidad

	content, contentType, err := s.renderer.Render(render.CertificadoData{
		NumeroTramite:      solicitud.Numero(),
		Serial:             serial,
		CodigoVerificacion: codigo,
		TitularNombre:      solicitud.TitularNombre,
		TitularCuit:        solicitud.TitularCuit,
		DomicilioCompleto:  domicilio,
		RubroDescripcion:   solicitud.RubroDescripcion,
		MetrosCuadrados:    solicitud.MetrosCuadrados,
		FechaEmision:       emitido,
		FechaVencimiento:   vencimiento,
		VerificationURL:    fmt.Sprintf("%s/%s", s.certCfg.VerificationBaseURL, serial),
	})
	if err != nil {
		return nil, err
	}

	certificado := &model.Certificado{
		SolicitudID:        solicitud.ID,
		Serial:             serial,
		CodigoVerificacion: codigo,
		Contenido:          content,
		ContentType:        contentType,
		EmitidoEn:          emitido,
	}
	if err := s.certificadoRepo.Create(tx, certificado); err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return certificado, nil
}

func (s *solicitudService) Rechazar(ctx context.Context, actor authz.Actor, id uint, motivo string) (*model.Solicitud, error) {
	if err := authz.Authorize(actor, authz.OpSolicitudRechazar, 0); err != nil {
		return nil, err
	}

	if strings.TrimSpace(motivo) == "" {
		return nil, apperrors.Validation(apperrors.ValidationMotivoRequired,
			"El rechazo requiere un motivo")
	}

	logger.Info("Rejecting solicitud", map[string]interface{}{
		"solicitud_id": id,
		"admin_id":     actor.UserID,
	})

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic while rejecting solicitud, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"solicitud_id": id,
			})
		}
	}()

	solicitud, err := s.solicitudRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	nuevoEstado, err := model.Transicionar(solicitud.Estado, model.EventoRechazar)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	versionLeida := solicitud.Version
	estadoAnterior := solicitud.Estado
	solicitud.Estado = nuevoEstado
	solicitud.MotivoDecision = motivo
	if err := s.solicitudRepo.UpdateEstadoConVersion(tx, solicitud, versionLeida); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit solicitud rejection", err, map[string]interface{}{
			"solicitud_id": id,
		})
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Solicitud rejected", map[string]interface{}{
		"solicitud_id":   solicitud.ID,
		"numero_tramite": solicitud.Numero(),
	})

	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.EstadoCambiado,
		SolicitudID:   solicitud.ID,
		NumeroTramite: solicitud.Numero(),
		UserID:        solicitud.UserID,
		EstadoDesde:   string(estadoAnterior),
		EstadoHasta:   string(solicitud.Estado),
		Motivo:        motivo,
		OccurredAt:    time.Now(),
	})

	return solicitud, nil
}

func (s *solicitudService) Get(ctx context.Context, actor authz.Actor, id uint) (*model.Solicitud, error) {
	solicitud, err := s.findSolicitud(id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.OpSolicitudVer, solicitud.UserID); err != nil {
		return nil, err
	}
	return solicitud, nil
}

func (s *solicitudService) List(ctx context.Context, actor authz.Actor, filter repository.SolicitudFilter) ([]model.Solicitud, int64, error) {
	// un ciudadano sólo ve sus propios trámites
	if !authz.Can(actor, authz.OpSolicitudListarTodo, 0) {
		filter.UserID = actor.UserID
	}

	solicitudes, total, err := s.solicitudRepo.List(filter)
	if err != nil {
		return nil, 0, apperrors.FromStore(err, nil)
	}
	return solicitudes, total, nil
}

func (s *solicitudService) findSolicitud(id uint) (*model.Solicitud, error) {
	solicitud, err := s.solicitudRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError(apperrors.SolicitudNotFound,
				"Solicitud no encontrada")
		}
		return nil, apperrors.FromStore(err, nil)
	}
	return solicitud, nil
}

func aplicarInput(solicitud *model.Solicitud, input SolicitudInput) {
	solicitud.TitularTipo = input.TitularTipo
	solicitud.TitularNombre = input.TitularNombre
	solicitud.TitularCuit = util.NormalizeCuit(input.TitularCuit)
	solicitud.CuentaABL = input.CuentaABL
	solicitud.DomicilioCalle = input.DomicilioCalle
	solicitud.DomicilioAltura = input.DomicilioAltura
	solicitud.DomicilioPiso = input.DomicilioPiso
	solicitud.DomicilioDepto = input.DomicilioDepto
	solicitud.DomicilioLocal = input.DomicilioLocal
	solicitud.DomicilioLocalidad = input.DomicilioLocalidad
	solicitud.RubroTipo = input.RubroTipo
	solicitud.RubroSubrubro = input.RubroSubrubro
	solicitud.RubroDescripcion = input.RubroDescripcion
	solicitud.MetrosCuadrados = input.MetrosCuadrados
	solicitud.TechosCielorasos = input.TechosCielorasos
	solicitud.PisosMaterial = input.PisosMaterial
	solicitud.TieneSanitarios = input.TieneSanitarios
	if input.CantidadTrabajadores > 0 {
		solicitud.CantidadTrabajadores = input.CantidadTrabajadores
	}
	solicitud.DocumentosURLs = input.DocumentosURLs
}
