package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"gorm.io/gorm"
)

type InspeccionService interface {
	// Programar asigna un inspector a una solicitud presentada o en
	// inspección. La primera programación dispara la transición a
	// en_inspeccion. Nunca conviven dos inspecciones pendientes.
	Programar(ctx context.Context, actor authz.Actor, solicitudID, inspectorID uint, fecha time.Time) (*model.Inspeccion, error)
	// RegistrarResultado carga el resultado de una inspección pendiente. El
	// resultado es inmutable: una re-inspección requiere programar una nueva.
	RegistrarResultado(ctx context.Context, actor authz.Actor, inspeccionID uint, resultado model.ResultadoInspeccion, notas string) (*model.Inspeccion, error)
	ListBySolicitud(ctx context.Context, actor authz.Actor, solicitudID uint) ([]model.Inspeccion, error)
	ListPropias(ctx context.Context, actor authz.Actor) ([]model.Inspeccion, error)
}

type inspeccionService struct {
	inspeccionRepo repository.InspeccionRepository
	solicitudRepo  repository.SolicitudRepository
	userRepo       repository.UserRepository
	dispatcher     events.Dispatcher
	db             *gorm.DB
}

func NewInspeccionService(
	inspeccionRepo repository.InspeccionRepository,
	solicitudRepo repository.SolicitudRepository,
	userRepo repository.UserRepository,
	dispatcher events.Dispatcher,
	db *gorm.DB,
) InspeccionService {
	return &inspeccionService{
		inspeccionRepo: inspeccionRepo,
		solicitudRepo:  solicitudRepo,
		userRepo:       userRepo,
		dispatcher:     dispatcher,
		db:             db,
	}
}

func (s *inspeccionService) Programar(ctx context.Context, actor authz.Actor, solicitudID, inspectorID uint, fecha time.Time) (*model.Inspeccion, error) {
	if err := authz.Authorize(actor, authz.OpInspeccionProgramar, 0); err != nil {
		return nil, err
	}

	logger.Info("Scheduling inspeccion", map[string]interface{}{
		"solicitud_id": solicitudID,
		"inspector_id": inspectorID,
	})

	inspector, err := s.userRepo.FindByID(inspectorID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.AuthUserNotFound, "Inspector no encontrado"))
	}
	if inspector.Role != model.RoleInspector {
		return nil, apperrors.Validation(apperrors.ValidationInvalidInput,
			"El usuario asignado no es inspector")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic while scheduling inspeccion, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"solicitud_id": solicitudID,
			})
		}
	}()

	solicitud, err := s.solicitudRepo.FindByIDForUpdate(tx, solicitudID)
	if err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	if solicitud.Estado != model.EstadoPresentada && solicitud.Estado != model.EstadoEnInspeccion {
		tx.Rollback()
		logger.Warn("Solicitud does not admit inspecciones in current estado", map[string]interface{}{
			"solicitud_id": solicitudID,
			"estado":       solicitud.Estado,
		})
		return nil, apperrors.State(apperrors.InspeccionEstadoInvalido,
			"La solicitud no admite inspecciones en su estado actual")
	}

	if _, err := s.inspeccionRepo.FindPendienteBySolicitudID(tx, solicitudID); err == nil {
		tx.Rollback()
		logger.Warn("Solicitud already has a pending inspeccion", map[string]interface{}{
			"solicitud_id": solicitudID,
		})
		return nil, apperrors.Conflict(apperrors.InspeccionPendienteDup,
			"La solicitud ya tiene una inspección pendiente")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, apperrors.FromStore(err, nil)
	}

	estadoAnterior := solicitud.Estado
	if solicitud.Estado == model.EstadoPresentada {
		nuevoEstado, err := model.Transicionar(solicitud.Estado, model.EventoIniciarInspeccion)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		versionLeida := solicitud.Version
		solicitud.Estado = nuevoEstado
		if err := s.solicitudRepo.UpdateEstadoConVersion(tx, solicitud, versionLeida); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	inspeccion := &model.Inspeccion{
		SolicitudID:     solicitudID,
		InspectorID:     inspectorID,
		Resultado:       model.ResultadoPendiente,
		FechaProgramada: fecha,
	}
	if err := s.inspeccionRepo.Create(tx, inspeccion); err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err, nil)
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit inspeccion scheduling", err, map[string]interface{}{
			"solicitud_id": solicitudID,
		})
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Inspeccion scheduled", map[string]interface{}{
		"inspeccion_id": inspeccion.ID,
		"solicitud_id":  solicitudID,
		"inspector_id":  inspectorID,
	})

	now := time.Now()
	if estadoAnterior != solicitud.Estado {
		s.dispatcher.Publish(ctx, events.Event{
			Type:          events.EstadoCambiado,
			SolicitudID:   solicitud.ID,
			NumeroTramite: solicitud.Numero(),
			UserID:        solicitud.UserID,
			EstadoDesde:   string(estadoAnterior),
			EstadoHasta:   string(solicitud.Estado),
			OccurredAt:    now,
		})
	}
	s.dispatcher.Publish(ctx, events.Event{
		Type:          events.InspeccionProgramada,
		SolicitudID:   solicitud.ID,
		NumeroTramite: solicitud.Numero(),
		UserID:        solicitud.UserID,
		InspectorID:   inspectorID,
		OccurredAt:    now,
	})

	return inspeccion, nil
}

func (s *inspeccionService) RegistrarResultado(ctx context.Context, actor authz.Actor, inspeccionID uint, resultado model.ResultadoInspeccion, notas string) (*model.Inspeccion, error) {
	if err := authz.Authorize(actor, authz.OpInspeccionRegistrar, 0); err != nil {
		return nil, err
	}

	if resultado != model.ResultadoAprobada && resultado != model.ResultadoRechazada {
		return nil, apperrors.Validation(apperrors.ValidationInvalidInput,
			"El resultado debe ser aprobada o rechazada")
	}

	logger.Info("Recording inspeccion resultado", map[string]interface{}{
		"inspeccion_id": inspeccionID,
		"inspector_id":  actor.UserID,
		"resultado":     resultado,
	})

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic while recording resultado, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"inspeccion_id": inspeccionID,
			})
		}
	}()

	var inspeccion model.Inspeccion
	if err := tx.First(&inspeccion, inspeccionID).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.InspeccionNotFound, "Inspección no encontrada"))
	}

	// el resultado lo carga el inspector asignado; un administrador puede
	// cargarlo por cualquier inspección
	if actor.Role != model.RoleAdministrador && inspeccion.InspectorID != actor.UserID {
		tx.Rollback()
		logger.Warn("Inspector attempted to record resultado of another inspector", map[string]interface{}{
			"inspeccion_id": inspeccionID,
			"inspector_id":  actor.UserID,
			"asignado_id":   inspeccion.InspectorID,
		})
		return nil, apperrors.Authorization(apperrors.AuthzForbidden,
			"La inspección está asignada a otro inspector")
	}

	if inspeccion.Resultado != model.ResultadoPendiente {
		tx.Rollback()
		return nil, apperrors.State(apperrors.InspeccionResultadoFinal,
			"La inspección ya tiene un resultado registrado")
	}

	realizada := time.Now()
	inspeccion.Resultado = resultado
	inspeccion.FechaRealizada = &realizada
	inspeccion.Notas = notas

	if err := s.inspeccionRepo.Update(tx, &inspeccion); err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err, nil)
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit inspeccion resultado", err, map[string]interface{}{
			"inspeccion_id": inspeccionID,
		})
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("Inspeccion resultado recorded", map[string]interface{}{
		"inspeccion_id": inspeccion.ID,
		"solicitud_id":  inspeccion.SolicitudID,
		"resultado":     resultado,
	})

	solicitud, err := s.solicitudRepo.FindByID(inspeccion.SolicitudID)
	if err == nil {
		s.dispatcher.Publish(ctx, events.Event{
			Type:          events.ResultadoRegistrado,
			SolicitudID:   solicitud.ID,
			NumeroTramite: solicitud.Numero(),
			UserID:        solicitud.UserID,
			InspectorID:   inspeccion.InspectorID,
			Motivo:        string(resultado),
			OccurredAt:    realizada,
		})
	}

	return &inspeccion, nil
}

func (s *inspeccionService) ListBySolicitud(ctx context.Context, actor authz.Actor, solicitudID uint) ([]model.Inspeccion, error) {
	solicitud, err := s.solicitudRepo.FindByID(solicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	if err := authz.Authorize(actor, authz.OpInspeccionVer, solicitud.UserID); err != nil {
		return nil, err
	}

	inspecciones, err := s.inspeccionRepo.FindBySolicitudID(s.db, solicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return inspecciones, nil
}

func (s *inspeccionService) ListPropias(ctx context.Context, actor authz.Actor) ([]model.Inspeccion, error) {
	if actor.Role != model.RoleInspector {
		return nil, apperrors.Authorization(apperrors.AuthzForbidden,
			"Sólo los inspectores tienen inspecciones asignadas")
	}

	inspecciones, err := s.inspeccionRepo.FindByInspectorID(actor.UserID)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return inspecciones, nil
}
