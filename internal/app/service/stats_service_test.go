package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestStatsService_Dashboard(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	_, _, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	otra := h.presentada(t)
	_, err = h.inspecciones.Programar(ctx, h.admin, otra.ID, h.inspector.UserID, solicitud.CreatedAt)
	require.NoError(t, err)

	stats := NewStatsService(repository.NewSolicitudRepository(h.db))

	dashboard, err := stats.Dashboard(ctx, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dashboard.PorEstado[model.EstadoAprobada])
	assert.Equal(t, int64(1), dashboard.PorEstado[model.EstadoEnInspeccion])
	assert.Equal(t, int64(2), dashboard.Total)
	assert.Equal(t, 1, dashboard.DecididasUltimoAnio)
	assert.Len(t, dashboard.UltimosDoceMeses, 12)

	// el mes corriente registra la aprobación
	ultimo := dashboard.UltimosDoceMeses[len(dashboard.UltimosDoceMeses)-1]
	assert.Equal(t, 1, ultimo.Aprobadas)

	// sólo administradores
	_, err = stats.Dashboard(ctx, h.ciudadano)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}

func TestStatsService_ExportXLSX(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	aprobada, _, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	stats := NewStatsService(repository.NewSolicitudRepository(h.db))

	data, err := stats.ExportXLSX(ctx, h.admin)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Solicitudes")
	require.NoError(t, err)
	require.Len(t, rows, 2) // encabezado + una decidida
	assert.Equal(t, "Número de trámite", rows[0][0])
	assert.Equal(t, aprobada.Numero(), rows[1][0])
	assert.Equal(t, "aprobada", rows[1][1])
}
