package service

import (
	"context"
	"testing"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificadoService_Descargar(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	_, emitido, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	// el titular descarga su certificado
	certificado, err := h.certificados.Descargar(ctx, h.ciudadano, solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, emitido.Serial, certificado.Serial)
	assert.NotEmpty(t, certificado.Contenido)

	// la descarga queda auditada
	descargas, err := h.certificados.ListDescargas(ctx, h.admin, certificado.ID)
	require.NoError(t, err)
	require.Len(t, descargas, 1)
	assert.Equal(t, h.ciudadano.UserID, descargas[0].UserID)
	assert.Equal(t, solicitud.Numero(), descargas[0].NumeroTramite)

	// el registro de descargas es sólo para administradores
	_, err = h.certificados.ListDescargas(ctx, h.ciudadano, certificado.ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}

func TestCertificadoService_Descargar_NoAprobada(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.presentada(t)

	_, err := h.certificados.Descargar(ctx, h.ciudadano, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
	assert.Equal(t, apperrors.CertificadoNoAprobado, apperrors.CodeOf(err))
}

func TestCertificadoService_VerificarPublico(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	aprobada, certificado, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	verificacion, err := h.certificados.VerificarPublico(ctx, certificado.Serial)
	require.NoError(t, err)
	assert.True(t, verificacion.Valido)
	assert.True(t, verificacion.Vigente)
	assert.Equal(t, aprobada.Numero(), verificacion.NumeroTramite)
	assert.Equal(t, "Panadería La Espiga", verificacion.TitularNombre)

	// un serial inexistente es una verificación negativa, no un error
	negativa, err := h.certificados.VerificarPublico(ctx, "C-0000000000000000")
	require.NoError(t, err)
	assert.False(t, negativa.Valido)
	assert.Empty(t, negativa.NumeroTramite)
}

func TestCertificadoService_SerialNoDerivableDelTramite(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	aprobada, certificado, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	assert.NotContains(t, certificado.Serial, aprobada.Numero())

	var enDB model.Certificado
	require.NoError(t, h.db.Where("serial = ?", certificado.Serial).First(&enDB).Error)
	assert.Equal(t, solicitud.ID, enDB.SolicitudID)
}
