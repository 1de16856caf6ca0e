package service

import (
	"context"
	"fmt"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/internal/websocket"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
)

// Mailer envía avisos por correo. La implementación por defecto sólo loguea;
// el proveedor real se enchufa en el arranque.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type logMailer struct{}

// NewLogMailer devuelve un mailer que registra el envío sin salir a la red.
func NewLogMailer() Mailer {
	return logMailer{}
}

func (logMailer) Send(_ context.Context, to, subject, _ string) error {
	logger.Info("Mail queued (log only)", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

type NotificacionService interface {
	// SubscribirEventos engancha el servicio al dispatcher. Se llama una sola
	// vez en el arranque.
	SubscribirEventos(dispatcher events.Dispatcher)
	List(ctx context.Context, userID uint, soloNoLeidas bool) ([]model.Notificacion, error)
	CountNoLeidas(ctx context.Context, userID uint) (int64, error)
	MarcarLeida(ctx context.Context, userID, notificacionID uint) error
	MarcarTodasLeidas(ctx context.Context, userID uint) error
}

type notificacionService struct {
	notificacionRepo repository.NotificacionRepository
	userRepo         repository.UserRepository
	hub              *websocket.Hub
	mailer           Mailer
}

func NewNotificacionService(
	notificacionRepo repository.NotificacionRepository,
	userRepo repository.UserRepository,
	hub *websocket.Hub,
	mailer Mailer,
) NotificacionService {
	return &notificacionService{
		notificacionRepo: notificacionRepo,
		userRepo:         userRepo,
		hub:              hub,
		mailer:           mailer,
	}
}

func (s *notificacionService) SubscribirEventos(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EstadoCambiado, s.onEstadoCambiado)
	dispatcher.Subscribe(events.InspeccionProgramada, s.onInspeccionProgramada)
	dispatcher.Subscribe(events.CertificadoEmitido, s.onCertificadoEmitido)
	dispatcher.Subscribe(events.CertificadoPorVencer, s.onCertificadoPorVencer)
}

func (s *notificacionService) onEstadoCambiado(ctx context.Context, event events.Event) {
	titulo := fmt.Sprintf("Tu trámite %s cambió de estado", event.NumeroTramite)
	contenido := fmt.Sprintf("La solicitud pasó de %s a %s.", event.EstadoDesde, event.EstadoHasta)
	if event.Motivo != "" {
		contenido += " Motivo: " + event.Motivo
	}
	s.notificar(ctx, event, model.NotificacionEstadoCambiado, titulo, contenido)
}

func (s *notificacionService) onInspeccionProgramada(ctx context.Context, event events.Event) {
	titulo := fmt.Sprintf("Inspección programada para el trámite %s", event.NumeroTramite)
	contenido := "Se asignó un inspector para visitar el local. Vas a ser contactado para coordinar la visita."
	s.notificar(ctx, event, model.NotificacionInspeccionProgramada, titulo, contenido)
}

func (s *notificacionService) onCertificadoEmitido(ctx context.Context, event events.Event) {
	titulo := fmt.Sprintf("¡Tu habilitación %s fue aprobada!", event.NumeroTramite)
	contenido := fmt.Sprintf(
		"Ya podés descargar el certificado (serie %s). Válido hasta el %s.",
		event.CertSerial, event.Vencimiento.Format("02/01/2006"))
	s.notificar(ctx, event, model.NotificacionCertificadoEmitido, titulo, contenido)
}

func (s *notificacionService) onCertificadoPorVencer(ctx context.Context, event events.Event) {
	titulo := fmt.Sprintf("Tu habilitación %s está por vencer", event.NumeroTramite)
	contenido := fmt.Sprintf(
		"El certificado vence el %s. Iniciá la renovación para no perder la vigencia.",
		event.Vencimiento.Format("02/01/2006"))
	s.notificar(ctx, event, model.NotificacionCertificadoPorVencer, titulo, contenido)
}

func (s *notificacionService) notificar(ctx context.Context, event events.Event, tipo model.NotificacionTipo, titulo, contenido string) {
	solicitudID := event.SolicitudID
	notificacion := &model.Notificacion{
		UserID:      event.UserID,
		Tipo:        tipo,
		Titulo:      titulo,
		Contenido:   contenido,
		SolicitudID: &solicitudID,
	}

	if err := s.notificacionRepo.Create(notificacion); err != nil {
		logger.Error("Failed to persist notificacion", err, map[string]interface{}{
			"user_id": event.UserID,
			"tipo":    tipo,
		})
		return
	}

	if s.hub != nil {
		s.hub.SendToUser(event.UserID, notificacion)
	}

	if user, err := s.userRepo.FindByID(event.UserID); err == nil && user.Email != "" {
		if err := s.mailer.Send(ctx, user.Email, titulo, contenido); err != nil {
			logger.Warn("Failed to send notificacion mail", map[string]interface{}{
				"user_id": event.UserID,
			})
		}
	}

	logger.Debug("Notificacion dispatched", map[string]interface{}{
		"user_id": event.UserID,
		"tipo":    tipo,
	})
}

func (s *notificacionService) List(ctx context.Context, userID uint, soloNoLeidas bool) ([]model.Notificacion, error) {
	notificaciones, err := s.notificacionRepo.FindByUserID(userID, soloNoLeidas)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return notificaciones, nil
}

func (s *notificacionService) CountNoLeidas(ctx context.Context, userID uint) (int64, error) {
	count, err := s.notificacionRepo.CountNoLeidas(userID)
	if err != nil {
		return 0, apperrors.FromStore(err, nil)
	}
	return count, nil
}

func (s *notificacionService) MarcarLeida(ctx context.Context, userID, notificacionID uint) error {
	if err := s.notificacionRepo.MarcarLeida(notificacionID, userID); err != nil {
		return apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.NotificationNotFound, "Notificación no encontrada"))
	}
	return nil
}

func (s *notificacionService) MarcarTodasLeidas(ctx context.Context, userID uint) error {
	if err := s.notificacionRepo.MarcarTodasLeidas(userID); err != nil {
		return apperrors.FromStore(err, nil)
	}
	return nil
}
