package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/habilitaciones-ar/afap-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Siembra usuarios de demostración y, si se pasa una planilla, importa
// solicitudes en borrador a nombre del ciudadano demo.
//
//	go run cmd/seed/main.go [solicitudes.xlsx]
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ciudadano, err := seedUsuarios(db.GetDB())
	if err != nil {
		log.Fatal("Failed to seed users:", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("Seed completed. Pass an XLSX path to import solicitudes.")
		return
	}

	filePath := os.Args[1]
	fmt.Printf("Reading XLSX file: %s\n", filePath)

	solicitudes, err := readSolicitudesFromXLSX(filePath, ciudadano.ID)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total solicitudes to import: %d\n", len(solicitudes))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	if err := db.GetDB().CreateInBatches(&solicitudes, 500).Error; err != nil {
		log.Fatal("Failed to bulk create solicitudes:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total solicitudes imported: %d\n", len(solicitudes))
}

// seedUsuarios crea los tres usuarios de demostración si no existen y
// devuelve al ciudadano, titular de las solicitudes importadas.
func seedUsuarios(gdb *gorm.DB) (*model.User, error) {
	demoUsers := []struct {
		cuit     string
		email    string
		nombre   string
		apellido string
		role     model.UserRole
	}{
		{"20111111112", "juan.perez@example.com", "Juan", "Pérez", model.RoleCiudadano},
		{"27222222228", "maria.gonzalez@example.com", "María", "González", model.RoleInspector},
		{"20555555556", "carlos.rodriguez@example.com", "Carlos", "Rodríguez", model.RoleAdministrador},
	}

	var ciudadano *model.User
	for _, u := range demoUsers {
		var existing model.User
		err := gdb.Where("cuit_cuil = ?", u.cuit).First(&existing).Error
		if err == nil {
			fmt.Printf("User %s already exists, skipping\n", u.cuit)
			if existing.Role == model.RoleCiudadano {
				ciudadano = &existing
			}
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		hash, err := util.HashPassword("cambiame123")
		if err != nil {
			return nil, err
		}

		user := model.User{
			CuitCuil:     u.cuit,
			Email:        u.email,
			PasswordHash: hash,
			Nombre:       u.nombre,
			Apellido:     u.apellido,
			Role:         u.role,
		}
		if err := gdb.Create(&user).Error; err != nil {
			return nil, err
		}
		fmt.Printf("Created %s user %s (%s)\n", u.role, user.NombreCompleto(), u.cuit)

		if u.role == model.RoleCiudadano {
			ciudadano = &user
		}
	}

	return ciudadano, nil
}

// readSolicitudesFromXLSX lee una planilla de relevamiento de comercios y la
// convierte en borradores. Columnas esperadas:
//
//	titular | cuit | cuenta_abl | calle | altura | localidad | rubro | subrubro | descripcion | m2 | trabajadores
func readSolicitudesFromXLSX(filePath string, userID uint) ([]model.Solicitud, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var solicitudes []model.Solicitud
	seen := make(map[string]bool) // dedup por cuit+domicilio
	skippedCount := 0
	invalidCuitCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}

		if len(row) < 11 {
			skippedCount++
			continue
		}

		titular := strings.TrimSpace(row[0])
		cuit := util.NormalizeCuit(strings.TrimSpace(row[1]))
		cuentaABL := strings.TrimSpace(row[2])
		calle := strings.TrimSpace(row[3])
		altura := strings.TrimSpace(row[4])
		localidad := strings.TrimSpace(row[5])
		rubro := strings.TrimSpace(row[6])
		subrubro := strings.TrimSpace(row[7])
		descripcion := strings.TrimSpace(row[8])
		m2Str := strings.TrimSpace(row[9])
		trabajadoresStr := strings.TrimSpace(row[10])

		if titular == "" || calle == "" || localidad == "" {
			skippedCount++
			continue
		}

		if !util.ValidateCuit(cuit) {
			invalidCuitCount++
			skippedCount++
			continue
		}

		key := fmt.Sprintf("%s|%s|%s", cuit, calle, altura)
		if seen[key] {
			skippedCount++
			continue
		}
		seen[key] = true

		m2, _ := strconv.ParseFloat(m2Str, 64)
		trabajadores, err := strconv.Atoi(trabajadoresStr)
		if err != nil || trabajadores < 1 {
			trabajadores = 1
		}

		solicitudes = append(solicitudes, model.Solicitud{
			UserID:               userID,
			Estado:               model.EstadoBorrador,
			TitularTipo:          model.TitularFisica,
			TitularNombre:        titular,
			TitularCuit:          cuit,
			CuentaABL:            cuentaABL,
			DomicilioCalle:       calle,
			DomicilioAltura:      altura,
			DomicilioLocalidad:   localidad,
			RubroTipo:            rubro,
			RubroSubrubro:        subrubro,
			RubroDescripcion:     descripcion,
			MetrosCuadrados:      m2,
			CantidadTrabajadores: trabajadores,
		})

		if len(solicitudes)%500 == 0 {
			fmt.Printf("Processed %d solicitudes...\n", len(solicitudes))
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid solicitudes: %d\n", len(solicitudes))
	fmt.Printf("  Skipped rows: %d\n", skippedCount)
	fmt.Printf("  Rows with invalid CUIT: %d\n", invalidCuitCount)

	return solicitudes, nil
}
