package repository

import (
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"gorm.io/gorm"
)

type InspeccionRepository interface {
	Create(tx *gorm.DB, inspeccion *model.Inspeccion) error
	FindByID(id uint) (*model.Inspeccion, error)
	// FindBySolicitudID lee las inspecciones sobre tx para que los chequeos
	// dentro de una transacción vean su propio snapshot.
	FindBySolicitudID(tx *gorm.DB, solicitudID uint) ([]model.Inspeccion, error)
	// FindPendienteBySolicitudID devuelve la inspección pendiente de una
	// solicitud, o gorm.ErrRecordNotFound si no hay ninguna. Por invariante
	// nunca hay más de una pendiente a la vez.
	FindPendienteBySolicitudID(tx *gorm.DB, solicitudID uint) (*model.Inspeccion, error)
	FindByInspectorID(inspectorID uint) ([]model.Inspeccion, error)
	Update(tx *gorm.DB, inspeccion *model.Inspeccion) error
}

type inspeccionRepository struct {
	db *gorm.DB
}

func NewInspeccionRepository(db *gorm.DB) InspeccionRepository {
	return &inspeccionRepository{db: db}
}

func (r *inspeccionRepository) Create(tx *gorm.DB, inspeccion *model.Inspeccion) error {
	logger.Debug("Creating inspeccion in database", map[string]interface{}{
		"solicitud_id": inspeccion.SolicitudID,
		"inspector_id": inspeccion.InspectorID,
	})

	if err := tx.Create(inspeccion).Error; err != nil {
		logger.Error("Failed to create inspeccion in database", err, map[string]interface{}{
			"solicitud_id": inspeccion.SolicitudID,
		})
		return err
	}
	return nil
}

func (r *inspeccionRepository) FindByID(id uint) (*model.Inspeccion, error) {
	var inspeccion model.Inspeccion
	err := r.db.Preload("Solicitud").Preload("Inspector").First(&inspeccion, id).Error
	if err != nil {
		logger.Error("Failed to find inspeccion by ID in database", err, map[string]interface{}{
			"inspeccion_id": id,
		})
		return nil, err
	}
	return &inspeccion, nil
}

func (r *inspeccionRepository) FindBySolicitudID(tx *gorm.DB, solicitudID uint) ([]model.Inspeccion, error) {
	var inspecciones []model.Inspeccion
	err := tx.Preload("Inspector").
		Where("solicitud_id = ?", solicitudID).
		Order("created_at DESC").
		Find(&inspecciones).Error
	if err != nil {
		logger.Error("Failed to find inspecciones by solicitud in database", err, map[string]interface{}{
			"solicitud_id": solicitudID,
		})
		return nil, err
	}
	return inspecciones, nil
}

func (r *inspeccionRepository) FindPendienteBySolicitudID(tx *gorm.DB, solicitudID uint) (*model.Inspeccion, error) {
	var inspeccion model.Inspeccion
	err := tx.Where("solicitud_id = ? AND resultado = ?", solicitudID, model.ResultadoPendiente).
		First(&inspeccion).Error
	if err != nil {
		return nil, err
	}
	return &inspeccion, nil
}

func (r *inspeccionRepository) FindByInspectorID(inspectorID uint) ([]model.Inspeccion, error) {
	var inspecciones []model.Inspeccion
	err := r.db.Preload("Solicitud").Preload("Solicitud.User").
		Where("inspector_id = ?", inspectorID).
		Order("fecha_programada ASC").
		Find(&inspecciones).Error
	if err != nil {
		logger.Error("Failed to find inspecciones by inspector in database", err, map[string]interface{}{
			"inspector_id": inspectorID,
		})
		return nil, err
	}
	return inspecciones, nil
}

func (r *inspeccionRepository) Update(tx *gorm.DB, inspeccion *model.Inspeccion) error {
	logger.Debug("Updating inspeccion in database", map[string]interface{}{
		"inspeccion_id": inspeccion.ID,
		"resultado":     inspeccion.Resultado,
	})

	if err := tx.Save(inspeccion).Error; err != nil {
		logger.Error("Failed to update inspeccion in database", err, map[string]interface{}{
			"inspeccion_id": inspeccion.ID,
		})
		return err
	}
	return nil
}
