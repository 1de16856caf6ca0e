package db

import (
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.Solicitud{},
		&model.TramiteCounter{},
		&model.Inspeccion{},
		&model.Certificado{},
		&model.DescargaCertificado{},
		&model.Notificacion{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	if err := seedTramiteCounter(); err != nil {
		logger.Error("Failed to seed tramite counter", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// seedTramiteCounter deja creado el contador del año en curso para que la
// primera presentación no tenga que crearlo bajo carga.
func seedTramiteCounter() error {
	year := time.Now().Year()

	var count int64
	if err := DB.Model(&model.TramiteCounter{}).Where("year = ?", year).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Tramite counter already seeded, skipping...", map[string]interface{}{
			"year": year,
		})
		return nil
	}

	if err := DB.Create(&model.TramiteCounter{Year: year, LastNumber: 0}).Error; err != nil {
		return err
	}

	logger.Info("Tramite counter seeded successfully", map[string]interface{}{
		"year": year,
	})
	return nil
}
