package repository

import (
	"fmt"
	"testing"

	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSolicitudTest(t *testing.T) (*gorm.DB, SolicitudRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewSolicitudRepository(testDB)
	return testDB, repo
}

func crearCiudadano(t *testing.T, testDB *gorm.DB, cuit string) *model.User {
	user := &model.User{
		Email:        fmt.Sprintf("%s@example.com", cuit),
		CuitCuil:     cuit,
		PasswordHash: "hash",
		Nombre:       "Juan",
		Apellido:     "Pérez",
		Role:         model.RoleCiudadano,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func TestSolicitudRepository_CreateAndFind(t *testing.T) {
	testDB, repo := setupSolicitudTest(t)
	defer db.CleanupTestDB(testDB)

	user := crearCiudadano(t, testDB, "20111111112")

	solicitud := &model.Solicitud{
		UserID:             user.ID,
		Estado:             model.EstadoBorrador,
		TitularNombre:      "Panadería La Espiga",
		TitularCuit:        "20111111112",
		TitularTipo:        model.TitularFisica,
		DomicilioCalle:     "San Martín",
		DomicilioAltura:    "1200",
		DomicilioLocalidad: "Rosario",
		RubroTipo:          "comercio",
		RubroSubrubro:      "panaderia",
		RubroDescripcion:   "Elaboración de productos de panadería",
	}
	err := repo.Create(solicitud)
	require.NoError(t, err)
	assert.NotZero(t, solicitud.ID)
	assert.Equal(t, 1, solicitud.Version)

	found, err := repo.FindByID(solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoBorrador, found.Estado)
	assert.Equal(t, user.ID, found.User.ID)

	_, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSolicitudRepository_List(t *testing.T) {
	testDB, repo := setupSolicitudTest(t)
	defer db.CleanupTestDB(testDB)

	duenio := crearCiudadano(t, testDB, "20111111112")
	otro := crearCiudadano(t, testDB, "27222222228")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&model.Solicitud{
			UserID: duenio.ID,
			Estado: model.EstadoBorrador,
		}))
	}
	numero := "2025-000001"
	require.NoError(t, repo.Create(&model.Solicitud{
		UserID:        otro.ID,
		Estado:        model.EstadoPresentada,
		NumeroTramite: &numero,
	}))

	tests := []struct {
		name      string
		filter    SolicitudFilter
		wantCount int
		wantTotal int64
	}{
		{"sin filtro", SolicitudFilter{}, 4, 4},
		{"por estado", SolicitudFilter{Estado: model.EstadoPresentada}, 1, 1},
		{"por titular", SolicitudFilter{UserID: duenio.ID}, 3, 3},
		{"paginado", SolicitudFilter{Page: 2, Limit: 3}, 1, 4},
		{"estado sin filas", SolicitudFilter{Estado: model.EstadoAprobada}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solicitudes, total, err := repo.List(tt.filter)
			require.NoError(t, err)
			assert.Len(t, solicitudes, tt.wantCount)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestSolicitudRepository_UpdateEstadoConVersion(t *testing.T) {
	testDB, repo := setupSolicitudTest(t)
	defer db.CleanupTestDB(testDB)

	user := crearCiudadano(t, testDB, "20111111112")
	solicitud := &model.Solicitud{UserID: user.ID, Estado: model.EstadoBorrador}
	require.NoError(t, repo.Create(solicitud))

	numero := "2025-000001"
	solicitud.Estado = model.EstadoPresentada
	solicitud.NumeroTramite = &numero
	err := repo.UpdateEstadoConVersion(testDB, solicitud, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, solicitud.Version)

	found, err := repo.FindByID(solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPresentada, found.Estado)
	assert.Equal(t, 2, found.Version)

	// versión vieja: otra operación ya ganó
	solicitud.Estado = model.EstadoEnInspeccion
	err = repo.UpdateEstadoConVersion(testDB, solicitud, 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, apperrors.SolicitudVersionConflict, apperrors.CodeOf(err))

	found, err = repo.FindByID(solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPresentada, found.Estado)
}

func TestSolicitudRepository_NextNumeroTramite(t *testing.T) {
	testDB, repo := setupSolicitudTest(t)
	defer db.CleanupTestDB(testDB)

	n1, err := repo.NextNumeroTramite(testDB, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-000001", n1)

	n2, err := repo.NextNumeroTramite(testDB, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-000002", n2)

	// el contador es por año: un año nuevo arranca de uno
	n3, err := repo.NextNumeroTramite(testDB, 2026)
	require.NoError(t, err)
	assert.Equal(t, "2026-000001", n3)

	n4, err := repo.NextNumeroTramite(testDB, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-000003", n4)
}

func TestSolicitudRepository_CountPorEstado(t *testing.T) {
	testDB, repo := setupSolicitudTest(t)
	defer db.CleanupTestDB(testDB)

	user := crearCiudadano(t, testDB, "20111111112")
	estados := []model.EstadoSolicitud{
		model.EstadoBorrador,
		model.EstadoBorrador,
		model.EstadoPresentada,
		model.EstadoAprobada,
	}
	for i, estado := range estados {
		s := &model.Solicitud{UserID: user.ID, Estado: estado}
		if estado != model.EstadoBorrador {
			numero := fmt.Sprintf("2025-%06d", i)
			s.NumeroTramite = &numero
		}
		require.NoError(t, repo.Create(s))
	}

	counts, err := repo.CountPorEstado()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.EstadoBorrador])
	assert.Equal(t, int64(1), counts[model.EstadoPresentada])
	assert.Equal(t, int64(1), counts[model.EstadoAprobada])
	assert.Zero(t, counts[model.EstadoRechazada])
}
