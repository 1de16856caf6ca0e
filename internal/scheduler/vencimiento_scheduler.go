package scheduler

import (
	"context"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// VencimientoScheduler avisa a los titulares cuando su autorización precaria
// está por vencer. Corre una vez por día y publica un evento por cada
// habilitación dentro de la ventana de aviso.
type VencimientoScheduler struct {
	cron          *cron.Cron
	solicitudRepo repository.SolicitudRepository
	dispatcher    events.Dispatcher
	avisoDias     int
}

func NewVencimientoScheduler(
	solicitudRepo repository.SolicitudRepository,
	dispatcher events.Dispatcher,
	avisoDias int,
) *VencimientoScheduler {
	return &VencimientoScheduler{
		cron:          cron.New(),
		solicitudRepo: solicitudRepo,
		dispatcher:    dispatcher,
		avisoDias:     avisoDias,
	}
}

// Start schedules the daily expiry sweep
func (s *VencimientoScheduler) Start() error {
	// todos los días a las 8:00, hora del servidor
	_, err := s.cron.AddFunc("0 8 * * *", s.Run)
	if err != nil {
		logger.Error("Failed to add cron job for expiry warnings", err)
		return err
	}

	s.cron.Start()
	logger.Info("Expiry warning scheduler started (daily at 8:00 AM)", map[string]interface{}{
		"aviso_dias": s.avisoDias,
	})

	return nil
}

// Run ejecuta una pasada de avisos. Expuesto para dispararlo a mano además
// del cron.
func (s *VencimientoScheduler) Run() {
	ahora := time.Now()
	hasta := ahora.AddDate(0, 0, s.avisoDias)

	solicitudes, err := s.solicitudRepo.FindAprobadasConVencimientoEntre(ahora, hasta)
	if err != nil {
		logger.Error("Failed to query expiring certificates", err, nil)
		return
	}

	if len(solicitudes) == 0 {
		logger.Debug("No certificates close to expiry", nil)
		return
	}

	logger.Info("Publishing expiry warnings", map[string]interface{}{
		"count": len(solicitudes),
	})

	ctx := context.Background()
	for _, solicitud := range solicitudes {
		if solicitud.FechaVencimiento == nil {
			continue
		}
		s.dispatcher.Publish(ctx, events.Event{
			Type:          events.CertificadoPorVencer,
			SolicitudID:   solicitud.ID,
			UserID:        solicitud.UserID,
			NumeroTramite: solicitud.Numero(),
			Vencimiento:   *solicitud.FechaVencimiento,
			OccurredAt:    ahora,
		})
	}
}

// Stop stops the scheduler
func (s *VencimientoScheduler) Stop() {
	logger.Info("Stopping expiry warning scheduler...", nil)
	s.cron.Stop()
	logger.Info("Expiry warning scheduler stopped", nil)
}
