package repository

import (
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"gorm.io/gorm"
)

type NotificacionRepository interface {
	Create(notificacion *model.Notificacion) error
	FindByUserID(userID uint, soloNoLeidas bool) ([]model.Notificacion, error)
	CountNoLeidas(userID uint) (int64, error)
	MarcarLeida(id, userID uint) error
	MarcarTodasLeidas(userID uint) error
}

type notificacionRepository struct {
	db *gorm.DB
}

func NewNotificacionRepository(db *gorm.DB) NotificacionRepository {
	return &notificacionRepository{db: db}
}

func (r *notificacionRepository) Create(notificacion *model.Notificacion) error {
	if err := r.db.Create(notificacion).Error; err != nil {
		logger.Error("Failed to create notificacion in database", err, map[string]interface{}{
			"user_id": notificacion.UserID,
			"tipo":    notificacion.Tipo,
		})
		return err
	}
	return nil
}

func (r *notificacionRepository) FindByUserID(userID uint, soloNoLeidas bool) ([]model.Notificacion, error) {
	query := r.db.Where("user_id = ?", userID)
	if soloNoLeidas {
		query = query.Where("leida = ?", false)
	}

	var notificaciones []model.Notificacion
	err := query.Order("created_at DESC").Limit(100).Find(&notificaciones).Error
	if err != nil {
		logger.Error("Failed to find notificaciones in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return notificaciones, nil
}

func (r *notificacionRepository) CountNoLeidas(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notificacion{}).
		Where("user_id = ? AND leida = ?", userID, false).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count notificaciones no leidas", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, err
	}
	return count, nil
}

func (r *notificacionRepository) MarcarLeida(id, userID uint) error {
	result := r.db.Model(&model.Notificacion{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("leida", true)
	if result.Error != nil {
		logger.Error("Failed to mark notificacion as read", result.Error, map[string]interface{}{
			"notificacion_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificacionRepository) MarcarTodasLeidas(userID uint) error {
	err := r.db.Model(&model.Notificacion{}).
		Where("user_id = ? AND leida = ?", userID, false).
		Update("leida", true).Error
	if err != nil {
		logger.Error("Failed to mark all notificaciones as read", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
