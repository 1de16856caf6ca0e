package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func crearAprobada(t *testing.T, testDB *gorm.DB, numero string, vencimiento time.Time) *model.Solicitud {
	t.Helper()

	user := &model.User{
		Email:        numero + "@example.com",
		CuitCuil:     "2011111111" + numero[len(numero)-1:],
		PasswordHash: "hash",
		Nombre:       "Juan",
		Apellido:     "Pérez",
		Role:         model.RoleCiudadano,
	}
	require.NoError(t, testDB.Create(user).Error)

	solicitud := &model.Solicitud{
		NumeroTramite:    &numero,
		UserID:           user.ID,
		Estado:           model.EstadoAprobada,
		TitularNombre:    "Comercio " + numero,
		FechaVencimiento: &vencimiento,
	}
	require.NoError(t, testDB.Create(solicitud).Error)
	return solicitud
}

func TestVencimientoScheduler_Run(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	dispatcher := events.NewInMemoryDispatcher()
	var publicados []events.Event
	dispatcher.Subscribe(events.CertificadoPorVencer, func(_ context.Context, ev events.Event) {
		publicados = append(publicados, ev)
	})

	ahora := time.Now()
	porVencer := crearAprobada(t, testDB, "2025-000001", ahora.AddDate(0, 0, 3))
	crearAprobada(t, testDB, "2025-000002", ahora.AddDate(0, 0, 60)) // lejos del aviso
	crearAprobada(t, testDB, "2025-000003", ahora.AddDate(0, 0, -1)) // ya vencida

	s := NewVencimientoScheduler(repository.NewSolicitudRepository(testDB), dispatcher, 5)
	s.Run()

	require.Len(t, publicados, 1)
	assert.Equal(t, porVencer.ID, publicados[0].SolicitudID)
	assert.Equal(t, "2025-000001", publicados[0].NumeroTramite)
	assert.WithinDuration(t, *porVencer.FechaVencimiento, publicados[0].Vencimiento, time.Second)
}
