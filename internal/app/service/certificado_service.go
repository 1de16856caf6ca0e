package service

import (
	"context"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
)

// VerificacionPublica es la respuesta del endpoint público de verificación.
// No expone datos sensibles del titular más allá de lo impreso en el
// certificado exhibido en el local.
type VerificacionPublica struct {
	Valido             bool       `json:"valido"`
	Vigente            bool       `json:"vigente"`
	NumeroTramite      string     `json:"numero_tramite,omitempty"`
	TitularNombre      string     `json:"titular_nombre,omitempty"`
	RubroDescripcion   string     `json:"rubro_descripcion,omitempty"`
	CodigoVerificacion string     `json:"codigo_verificacion,omitempty"`
	EmitidoEn          *time.Time `json:"emitido_en,omitempty"`
	FechaVencimiento   *time.Time `json:"fecha_vencimiento,omitempty"`
}

type CertificadoService interface {
	GetBySolicitud(ctx context.Context, actor authz.Actor, solicitudID uint) (*model.Certificado, error)
	// Descargar devuelve el documento y deja asentada la descarga en el
	// registro de auditoría.
	Descargar(ctx context.Context, actor authz.Actor, solicitudID uint) (*model.Certificado, error)
	// VerificarPublico no requiere autenticación: cualquiera puede comprobar
	// un certificado exhibido escaneando su serial.
	VerificarPublico(ctx context.Context, serial string) (*VerificacionPublica, error)
	ListDescargas(ctx context.Context, actor authz.Actor, certificadoID uint) ([]model.DescargaCertificado, error)
}

type certificadoService struct {
	certificadoRepo repository.CertificadoRepository
	solicitudRepo   repository.SolicitudRepository
	userRepo        repository.UserRepository
}

func NewCertificadoService(
	certificadoRepo repository.CertificadoRepository,
	solicitudRepo repository.SolicitudRepository,
	userRepo repository.UserRepository,
) CertificadoService {
	return &certificadoService{
		certificadoRepo: certificadoRepo,
		solicitudRepo:   solicitudRepo,
		userRepo:        userRepo,
	}
}

func (s *certificadoService) GetBySolicitud(ctx context.Context, actor authz.Actor, solicitudID uint) (*model.Certificado, error) {
	solicitud, err := s.solicitudRepo.FindByID(solicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.SolicitudNotFound, "Solicitud no encontrada"))
	}

	if err := authz.Authorize(actor, authz.OpCertificadoDescargar, solicitud.UserID); err != nil {
		return nil, err
	}

	if solicitud.Estado != model.EstadoAprobada {
		return nil, apperrors.Precondition(apperrors.CertificadoNoAprobado,
			"La solicitud todavía no está aprobada")
	}

	certificado, err := s.certificadoRepo.FindBySolicitudID(solicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.CertificadoNotFound, "Certificado no encontrado"))
	}
	return certificado, nil
}

func (s *certificadoService) Descargar(ctx context.Context, actor authz.Actor, solicitudID uint) (*model.Certificado, error) {
	certificado, err := s.GetBySolicitud(ctx, actor, solicitudID)
	if err != nil {
		return nil, err
	}

	solicitud, err := s.solicitudRepo.FindByID(solicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	descarga := &model.DescargaCertificado{
		CertificadoID: certificado.ID,
		SolicitudID:   solicitud.ID,
		NumeroTramite: solicitud.Numero(),
		UserID:        actor.UserID,
	}
	if user, err := s.userRepo.FindByID(actor.UserID); err == nil {
		descarga.UserNombre = user.NombreCompleto()
		descarga.UserEmail = user.Email
	}

	// la descarga no se frustra si falla el registro de auditoría
	if err := s.certificadoRepo.LogDescarga(descarga); err != nil {
		logger.Warn("Failed to log certificado download, continuing", map[string]interface{}{
			"certificado_id": certificado.ID,
			"user_id":        actor.UserID,
		})
	}

	logger.Info("Certificado downloaded", map[string]interface{}{
		"certificado_id": certificado.ID,
		"serial":         certificado.Serial,
		"user_id":        actor.UserID,
	})

	return certificado, nil
}

func (s *certificadoService) VerificarPublico(ctx context.Context, serial string) (*VerificacionPublica, error) {
	logger.Debug("Public certificado verification", map[string]interface{}{
		"serial": serial,
	})

	certificado, err := s.certificadoRepo.FindBySerial(serial)
	if err != nil {
		// un serial inexistente no es un error: es una verificación negativa
		logger.Info("Certificado verification failed: serial not found", map[string]interface{}{
			"serial": serial,
		})
		return &VerificacionPublica{Valido: false}, nil
	}

	solicitud, err := s.solicitudRepo.FindByID(certificado.SolicitudID)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	vigente := solicitud.Estado == model.EstadoAprobada &&
		(solicitud.FechaVencimiento == nil || solicitud.FechaVencimiento.After(time.Now()))

	return &VerificacionPublica{
		Valido:             true,
		Vigente:            vigente,
		NumeroTramite:      solicitud.Numero(),
		TitularNombre:      solicitud.TitularNombre,
		RubroDescripcion:   solicitud.RubroDescripcion,
		CodigoVerificacion: certificado.CodigoVerificacion,
		EmitidoEn:          &certificado.EmitidoEn,
		FechaVencimiento:   solicitud.FechaVencimiento,
	}, nil
}

func (s *certificadoService) ListDescargas(ctx context.Context, actor authz.Actor, certificadoID uint) ([]model.DescargaCertificado, error) {
	if actor.Role != model.RoleAdministrador {
		return nil, apperrors.Authorization(apperrors.AuthzAdminOnly,
			"Sólo administradores pueden ver el registro de descargas")
	}

	descargas, err := s.certificadoRepo.FindDescargasByCertificadoID(certificadoID)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return descargas, nil
}
