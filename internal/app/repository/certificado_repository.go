package repository

import (
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"gorm.io/gorm"
)

type CertificadoRepository interface {
	Create(tx *gorm.DB, certificado *model.Certificado) error
	FindByID(id uint) (*model.Certificado, error)
	FindBySolicitudID(solicitudID uint) (*model.Certificado, error)
	FindBySerial(serial string) (*model.Certificado, error)
	LogDescarga(descarga *model.DescargaCertificado) error
	FindDescargasByCertificadoID(certificadoID uint) ([]model.DescargaCertificado, error)
}

type certificadoRepository struct {
	db *gorm.DB
}

func NewCertificadoRepository(db *gorm.DB) CertificadoRepository {
	return &certificadoRepository{db: db}
}

func (r *certificadoRepository) Create(tx *gorm.DB, certificado *model.Certificado) error {
	logger.Debug("Creating certificado in database", map[string]interface{}{
		"solicitud_id": certificado.SolicitudID,
		"serial":       certificado.Serial,
	})

	if err := tx.Create(certificado).Error; err != nil {
		logger.Error("Failed to create certificado in database", err, map[string]interface{}{
			"solicitud_id": certificado.SolicitudID,
		})
		return err
	}

	logger.Debug("Certificado created in database", map[string]interface{}{
		"certificado_id": certificado.ID,
		"serial":         certificado.Serial,
	})
	return nil
}

func (r *certificadoRepository) FindByID(id uint) (*model.Certificado, error) {
	var certificado model.Certificado
	err := r.db.First(&certificado, id).Error
	if err != nil {
		logger.Error("Failed to find certificado by ID in database", err, map[string]interface{}{
			"certificado_id": id,
		})
		return nil, err
	}
	return &certificado, nil
}

func (r *certificadoRepository) FindBySolicitudID(solicitudID uint) (*model.Certificado, error) {
	var certificado model.Certificado
	err := r.db.Where("solicitud_id = ?", solicitudID).First(&certificado).Error
	if err != nil {
		return nil, err
	}
	return &certificado, nil
}

func (r *certificadoRepository) FindBySerial(serial string) (*model.Certificado, error) {
	var certificado model.Certificado
	err := r.db.Where("serial = ?", serial).First(&certificado).Error
	if err != nil {
		return nil, err
	}
	return &certificado, nil
}

func (r *certificadoRepository) LogDescarga(descarga *model.DescargaCertificado) error {
	if err := r.db.Create(descarga).Error; err != nil {
		logger.Error("Failed to log certificado download", err, map[string]interface{}{
			"certificado_id": descarga.CertificadoID,
			"user_id":        descarga.UserID,
		})
		return err
	}
	return nil
}

func (r *certificadoRepository) FindDescargasByCertificadoID(certificadoID uint) ([]model.DescargaCertificado, error) {
	var descargas []model.DescargaCertificado
	err := r.db.Where("certificado_id = ?", certificadoID).
		Order("created_at DESC").
		Find(&descargas).Error
	if err != nil {
		logger.Error("Failed to find certificado downloads", err, map[string]interface{}{
			"certificado_id": certificadoID,
		})
		return nil, err
	}
	return descargas, nil
}
