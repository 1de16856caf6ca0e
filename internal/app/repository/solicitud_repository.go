package repository

import (
	"time"

	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SolicitudFilter acota List: los campos en cero no filtran.
type SolicitudFilter struct {
	Estado model.EstadoSolicitud
	UserID uint
	Page   int
	Limit  int
}

type SolicitudRepository interface {
	Create(solicitud *model.Solicitud) error
	FindByID(id uint) (*model.Solicitud, error)
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Solicitud, error)
	FindByNumeroTramite(numero string) (*model.Solicitud, error)
	List(filter SolicitudFilter) ([]model.Solicitud, int64, error)
	Update(solicitud *model.Solicitud) error
	// UpdateEstadoConVersion aplica la transición solo si la fila conserva la
	// versión leída. Cero filas afectadas significa que otra operación ganó la
	// carrera y devuelve un error de conflicto.
	UpdateEstadoConVersion(tx *gorm.DB, solicitud *model.Solicitud, expectedVersion int) error
	// NextNumeroTramite incrementa el contador anual bajo lock de fila y
	// devuelve el número formateado. Debe llamarse dentro de la transacción
	// que presenta la solicitud.
	NextNumeroTramite(tx *gorm.DB, year int) (string, error)
	CountPorEstado() (map[model.EstadoSolicitud]int64, error)
	FindDecididasDesde(desde time.Time) ([]model.Solicitud, error)
	FindAprobadasConVencimientoEntre(desde, hasta time.Time) ([]model.Solicitud, error)
}

type solicitudRepository struct {
	db *gorm.DB
}

func NewSolicitudRepository(db *gorm.DB) SolicitudRepository {
	return &solicitudRepository{db: db}
}

func (r *solicitudRepository) Create(solicitud *model.Solicitud) error {
	logger.Debug("Creating solicitud in database", map[string]interface{}{
		"user_id": solicitud.UserID,
		"estado":  solicitud.Estado,
	})

	if err := r.db.Create(solicitud).Error; err != nil {
		logger.Error("Failed to create solicitud in database", err, map[string]interface{}{
			"user_id": solicitud.UserID,
		})
		return err
	}

	logger.Debug("Solicitud created in database", map[string]interface{}{
		"solicitud_id": solicitud.ID,
	})
	return nil
}

func (r *solicitudRepository) FindByID(id uint) (*model.Solicitud, error) {
	var solicitud model.Solicitud
	err := r.db.Preload("User").First(&solicitud, id).Error
	if err != nil {
		logger.Error("Failed to find solicitud by ID in database", err, map[string]interface{}{
			"solicitud_id": id,
		})
		return nil, err
	}
	return &solicitud, nil
}

func (r *solicitudRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Solicitud, error) {
	var solicitud model.Solicitud
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&solicitud, id).Error
	if err != nil {
		logger.Error("Failed to lock solicitud row", err, map[string]interface{}{
			"solicitud_id": id,
		})
		return nil, err
	}
	return &solicitud, nil
}

func (r *solicitudRepository) FindByNumeroTramite(numero string) (*model.Solicitud, error) {
	var solicitud model.Solicitud
	err := r.db.Preload("User").Where("numero_tramite = ?", numero).First(&solicitud).Error
	if err != nil {
		logger.Error("Failed to find solicitud by numero de tramite", err, map[string]interface{}{
			"numero_tramite": numero,
		})
		return nil, err
	}
	return &solicitud, nil
}

func (r *solicitudRepository) List(filter SolicitudFilter) ([]model.Solicitud, int64, error) {
	query := r.db.Model(&model.Solicitud{})
	if filter.Estado != "" {
		query = query.Where("estado = ?", filter.Estado)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count solicitudes in database", err, nil)
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var solicitudes []model.Solicitud
	err := query.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&solicitudes).Error
	if err != nil {
		logger.Error("Failed to list solicitudes in database", err, map[string]interface{}{
			"estado":  filter.Estado,
			"user_id": filter.UserID,
		})
		return nil, 0, err
	}

	return solicitudes, total, nil
}

func (r *solicitudRepository) Update(solicitud *model.Solicitud) error {
	logger.Debug("Updating solicitud in database", map[string]interface{}{
		"solicitud_id": solicitud.ID,
	})

	if err := r.db.Save(solicitud).Error; err != nil {
		logger.Error("Failed to update solicitud in database", err, map[string]interface{}{
			"solicitud_id": solicitud.ID,
		})
		return err
	}
	return nil
}

func (r *solicitudRepository) UpdateEstadoConVersion(tx *gorm.DB, solicitud *model.Solicitud, expectedVersion int) error {
	updates := map[string]interface{}{
		"estado":            solicitud.Estado,
		"numero_tramite":    solicitud.NumeroTramite,
		"motivo_decision":   solicitud.MotivoDecision,
		"fecha_vencimiento": solicitud.FechaVencimiento,
		"version":           expectedVersion + 1,
	}

	result := tx.Model(&model.Solicitud{}).
		Where("id = ? AND version = ?", solicitud.ID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update solicitud estado in database", result.Error, map[string]interface{}{
			"solicitud_id": solicitud.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Solicitud version conflict on estado update", map[string]interface{}{
			"solicitud_id":     solicitud.ID,
			"expected_version": expectedVersion,
		})
		return apperrors.Conflict(apperrors.SolicitudVersionConflict,
			"La solicitud fue modificada por otra operación, volvé a intentarlo")
	}

	solicitud.Version = expectedVersion + 1
	return nil
}

func (r *solicitudRepository) NextNumeroTramite(tx *gorm.DB, year int) (string, error) {
	var counter model.TramiteCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&counter).Error
	if err == gorm.ErrRecordNotFound {
		// primer trámite del año; si otra transacción crea la fila en
		// paralelo, el create duplicado se ignora y el re-lock la encuentra
		counter = model.TramiteCounter{Year: year, LastNumber: 0}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			logger.Error("Failed to create tramite counter", err, map[string]interface{}{
				"year": year,
			})
			return "", err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", year).
			First(&counter).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		logger.Error("Failed to lock tramite counter", err, map[string]interface{}{
			"year": year,
		})
		return "", err
	}

	counter.LastNumber++
	if err := tx.Model(&model.TramiteCounter{}).
		Where("year = ?", year).
		Update("last_number", counter.LastNumber).Error; err != nil {
		logger.Error("Failed to increment tramite counter", err, map[string]interface{}{
			"year": year,
		})
		return "", err
	}

	numero := model.FormatNumeroTramite(year, counter.LastNumber)
	logger.Debug("Assigned numero de tramite", map[string]interface{}{
		"year":           year,
		"numero_tramite": numero,
	})
	return numero, nil
}

func (r *solicitudRepository) CountPorEstado() (map[model.EstadoSolicitud]int64, error) {
	type fila struct {
		Estado model.EstadoSolicitud
		Total  int64
	}
	var filas []fila
	err := r.db.Model(&model.Solicitud{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Scan(&filas).Error
	if err != nil {
		logger.Error("Failed to count solicitudes por estado", err, nil)
		return nil, err
	}

	counts := make(map[model.EstadoSolicitud]int64, len(filas))
	for _, f := range filas {
		counts[f.Estado] = f.Total
	}
	return counts, nil
}

func (r *solicitudRepository) FindDecididasDesde(desde time.Time) ([]model.Solicitud, error) {
	var solicitudes []model.Solicitud
	err := r.db.Where("estado IN ?", []model.EstadoSolicitud{model.EstadoAprobada, model.EstadoRechazada}).
		Where("updated_at >= ?", desde).
		Find(&solicitudes).Error
	if err != nil {
		logger.Error("Failed to find solicitudes decididas", err, nil)
		return nil, err
	}
	return solicitudes, nil
}

func (r *solicitudRepository) FindAprobadasConVencimientoEntre(desde, hasta time.Time) ([]model.Solicitud, error) {
	var solicitudes []model.Solicitud
	err := r.db.Preload("User").
		Where("estado = ?", model.EstadoAprobada).
		Where("fecha_vencimiento IS NOT NULL").
		Where("fecha_vencimiento >= ? AND fecha_vencimiento < ?", desde, hasta).
		Find(&solicitudes).Error
	if err != nil {
		logger.Error("Failed to find solicitudes por vencer", err, nil)
		return nil, err
	}
	return solicitudes, nil
}
