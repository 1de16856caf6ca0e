package service

import (
	"context"
	"fmt"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// BucketMensual agrupa decisiones por mes calendario.
type BucketMensual struct {
	Mes        string `json:"mes"` // formato 2006-01
	Aprobadas  int    `json:"aprobadas"`
	Rechazadas int    `json:"rechazadas"`
}

// Estadisticas es el tablero del administrador.
type Estadisticas struct {
	PorEstado           map[model.EstadoSolicitud]int64 `json:"por_estado"`
	Total               int64                           `json:"total"`
	UltimosDoceMeses    []BucketMensual                 `json:"ultimos_doce_meses"`
	TiempoPromedioDias  float64                         `json:"tiempo_promedio_dias"` // de presentación a decisión
	DecididasUltimoAnio int                             `json:"decididas_ultimo_anio"`
}

type StatsService interface {
	Dashboard(ctx context.Context, actor authz.Actor) (*Estadisticas, error)
	// ExportXLSX arma una planilla con el detalle de las solicitudes decididas
	// en el último año, para los informes de gestión.
	ExportXLSX(ctx context.Context, actor authz.Actor) ([]byte, error)
}

type statsService struct {
	solicitudRepo repository.SolicitudRepository
}

func NewStatsService(solicitudRepo repository.SolicitudRepository) StatsService {
	return &statsService{solicitudRepo: solicitudRepo}
}

func (s *statsService) Dashboard(ctx context.Context, actor authz.Actor) (*Estadisticas, error) {
	if err := authz.Authorize(actor, authz.OpStatsVer, 0); err != nil {
		return nil, err
	}

	logger.Debug("Building stats dashboard", map[string]interface{}{
		"admin_id": actor.UserID,
	})

	porEstado, err := s.solicitudRepo.CountPorEstado()
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	var total int64
	for _, c := range porEstado {
		total += c
	}

	desde := time.Now().AddDate(-1, 0, 0)
	decididas, err := s.solicitudRepo.FindDecididasDesde(desde)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	// los buckets se arman en memoria para no depender de funciones de fecha
	// específicas de cada motor
	buckets := agruparPorMes(decididas)

	var sumaDias float64
	var conTiempo int
	for _, solicitud := range decididas {
		dias := solicitud.UpdatedAt.Sub(solicitud.CreatedAt).Hours() / 24
		if dias >= 0 {
			sumaDias += dias
			conTiempo++
		}
	}
	promedio := 0.0
	if conTiempo > 0 {
		promedio = sumaDias / float64(conTiempo)
	}

	return &Estadisticas{
		PorEstado:           porEstado,
		Total:               total,
		UltimosDoceMeses:    buckets,
		TiempoPromedioDias:  promedio,
		DecididasUltimoAnio: len(decididas),
	}, nil
}

func agruparPorMes(solicitudes []model.Solicitud) []BucketMensual {
	porMes := make(map[string]*BucketMensual)
	for _, solicitud := range solicitudes {
		mes := solicitud.UpdatedAt.Format("2006-01")
		bucket, ok := porMes[mes]
		if !ok {
			bucket = &BucketMensual{Mes: mes}
			porMes[mes] = bucket
		}
		switch solicitud.Estado {
		case model.EstadoAprobada:
			bucket.Aprobadas++
		case model.EstadoRechazada:
			bucket.Rechazadas++
		}
	}

	// últimos 12 meses en orden cronológico, incluyendo meses sin movimiento
	var buckets []BucketMensual
	now := time.Now()
	for i := 11; i >= 0; i-- {
		mes := now.AddDate(0, -i, 0).Format("2006-01")
		if bucket, ok := porMes[mes]; ok {
			buckets = append(buckets, *bucket)
		} else {
			buckets = append(buckets, BucketMensual{Mes: mes})
		}
	}
	return buckets
}

func (s *statsService) ExportXLSX(ctx context.Context, actor authz.Actor) ([]byte, error) {
	if err := authz.Authorize(actor, authz.OpStatsVer, 0); err != nil {
		return nil, err
	}

	logger.Info("Exporting stats XLSX", map[string]interface{}{
		"admin_id": actor.UserID,
	})

	desde := time.Now().AddDate(-1, 0, 0)
	decididas, err := s.solicitudRepo.FindDecididasDesde(desde)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Solicitudes"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Número de trámite", "Estado", "Titular", "CUIT", "Rubro", "Localidad", "Presentada", "Decidida", "Motivo"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, apperrors.Internal(apperrors.InternalServerError,
				"No se pudo generar la planilla").Wrap(err)
		}
	}

	for row, solicitud := range decididas {
		values := []interface{}{
			solicitud.Numero(),
			string(solicitud.Estado),
			solicitud.TitularNombre,
			solicitud.TitularCuit,
			solicitud.RubroDescripcion,
			solicitud.DomicilioLocalidad,
			solicitud.CreatedAt.Format("02/01/2006"),
			solicitud.UpdatedAt.Format("02/01/2006"),
			solicitud.MotivoDecision,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, apperrors.Internal(apperrors.InternalServerError,
					fmt.Sprintf("No se pudo generar la planilla (fila %d)", row+2)).Wrap(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.Internal(apperrors.InternalServerError,
			"No se pudo generar la planilla").Wrap(err)
	}

	logger.Info("Stats XLSX exported", map[string]interface{}{
		"rows": len(decididas),
	})
	return buf.Bytes(), nil
}
