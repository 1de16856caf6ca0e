package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// harness con los servicios reales sobre una base sqlite en memoria
type lifecycleTest struct {
	db            *gorm.DB
	solicitudes   SolicitudService
	inspecciones  InspeccionService
	certificados  CertificadoService
	dispatcher    events.Dispatcher
	eventosVistos *[]events.Event

	ciudadano authz.Actor
	inspector authz.Actor
	admin     authz.Actor
}

func setupLifecycleTest(t *testing.T) *lifecycleTest {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	usuarios := map[string]struct {
		cuit string
		role model.UserRole
	}{
		"ciudadano": {"20111111112", model.RoleCiudadano},
		"inspector": {"27222222228", model.RoleInspector},
		"admin":     {"20555555556", model.RoleAdministrador},
	}
	actores := make(map[string]authz.Actor)
	for nombre, u := range usuarios {
		user := &model.User{
			Email:        nombre + "@example.com",
			CuitCuil:     u.cuit,
			PasswordHash: "hash",
			Nombre:       nombre,
			Apellido:     "Test",
			Role:         u.role,
		}
		require.NoError(t, testDB.Create(user).Error)
		actores[nombre] = authz.Actor{UserID: user.ID, Role: u.role}
	}

	solicitudRepo := repository.NewSolicitudRepository(testDB)
	inspeccionRepo := repository.NewInspeccionRepository(testDB)
	certificadoRepo := repository.NewCertificadoRepository(testDB)
	userRepo := repository.NewUserRepository(testDB)

	dispatcher := events.NewInMemoryDispatcher()
	var vistos []events.Event
	for _, tipo := range []events.Type{
		events.SolicitudPresentada, events.EstadoCambiado,
		events.InspeccionProgramada, events.ResultadoRegistrado,
		events.CertificadoEmitido,
	} {
		dispatcher.Subscribe(tipo, func(_ context.Context, e events.Event) {
			vistos = append(vistos, e)
		})
	}

	certCfg := &config.CertificadosConfig{
		VerificationBaseURL:  "http://localhost:8080/api/verificar",
		VigenciaDias:         30,
		AvisoVencimientoDias: 5,
	}

	return &lifecycleTest{
		db:            testDB,
		solicitudes:   NewSolicitudService(solicitudRepo, inspeccionRepo, certificadoRepo, render.NewHTMLRenderer(), dispatcher, certCfg, testDB),
		inspecciones:  NewInspeccionService(inspeccionRepo, solicitudRepo, userRepo, dispatcher, testDB),
		certificados:  NewCertificadoService(certificadoRepo, solicitudRepo, userRepo),
		dispatcher:    dispatcher,
		eventosVistos: &vistos,
		ciudadano:     actores["ciudadano"],
		inspector:     actores["inspector"],
		admin:         actores["admin"],
	}
}

func inputCompleto() SolicitudInput {
	return SolicitudInput{
		TitularTipo:          model.TitularFisica,
		TitularNombre:        "Panadería La Espiga",
		TitularCuit:          "20111111112",
		CuentaABL:            "123456-7",
		DomicilioCalle:       "San Martín",
		DomicilioAltura:      "1200",
		DomicilioLocalidad:   "Rosario",
		RubroTipo:            "comercio",
		RubroSubrubro:        "panaderia",
		RubroDescripcion:     "Elaboración y venta de productos de panadería",
		MetrosCuadrados:      85.5,
		TieneSanitarios:      true,
		CantidadTrabajadores: 3,
	}
}

// presentada deja una solicitud lista en estado presentada
func (h *lifecycleTest) presentada(t *testing.T) *model.Solicitud {
	ctx := context.Background()
	solicitud, err := h.solicitudes.CrearBorrador(ctx, h.ciudadano, inputCompleto())
	require.NoError(t, err)
	solicitud, err = h.solicitudes.Presentar(ctx, h.ciudadano, solicitud.ID)
	require.NoError(t, err)
	return solicitud
}

// enInspeccionAprobada deja la solicitud con inspección aprobada
func (h *lifecycleTest) enInspeccionAprobada(t *testing.T) *model.Solicitud {
	ctx := context.Background()
	solicitud := h.presentada(t)

	inspeccion, err := h.inspecciones.Programar(ctx, h.admin, solicitud.ID, h.inspector.UserID, time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	_, err = h.inspecciones.RegistrarResultado(ctx, h.inspector, inspeccion.ID, model.ResultadoAprobada, "Todo en regla")
	require.NoError(t, err)

	return solicitud
}

func TestSolicitudService_Presentar(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud, err := h.solicitudes.CrearBorrador(ctx, h.ciudadano, inputCompleto())
	require.NoError(t, err)
	assert.Equal(t, model.EstadoBorrador, solicitud.Estado)
	assert.Nil(t, solicitud.NumeroTramite)

	presentada, err := h.solicitudes.Presentar(ctx, h.ciudadano, solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPresentada, presentada.Estado)
	require.NotNil(t, presentada.NumeroTramite)
	assert.Regexp(t, `^\d{4}-\d{6}$`, *presentada.NumeroTramite)
	assert.Equal(t, 2, presentada.Version)

	// presentar de nuevo no es una transición válida
	_, err = h.solicitudes.Presentar(ctx, h.ciudadano, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))
}

func TestSolicitudService_Presentar_Incompleta(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	input := inputCompleto()
	input.RubroDescripcion = ""
	input.CuentaABL = ""
	solicitud, err := h.solicitudes.CrearBorrador(ctx, h.ciudadano, input)
	require.NoError(t, err)

	_, err = h.solicitudes.Presentar(ctx, h.ciudadano, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, apperrors.SolicitudCamposFaltantes, apperrors.CodeOf(err))
	assert.Contains(t, apperrors.MessageOf(err), "cuenta_abl")

	// sigue en borrador y sin número
	igual, err := h.solicitudes.Get(ctx, h.ciudadano, solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoBorrador, igual.Estado)
	assert.Nil(t, igual.NumeroTramite)
}

func TestSolicitudService_NumerosSecuenciales(t *testing.T) {
	h := setupLifecycleTest(t)

	primera := h.presentada(t)
	segunda := h.presentada(t)

	assert.NotEqual(t, *primera.NumeroTramite, *segunda.NumeroTramite)
}

func TestSolicitudService_Aprobar_SinInspeccion(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.presentada(t)

	// desde presentada no se puede aprobar
	_, _, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))

	// en inspección pero sin resultado aprobado tampoco
	inspeccion, err := h.inspecciones.Programar(ctx, h.admin, solicitud.ID, h.inspector.UserID, time.Now())
	require.NoError(t, err)
	_, _, err = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
	assert.Equal(t, apperrors.SolicitudSinInspeccion, apperrors.CodeOf(err))

	// con inspección rechazada sigue sin poder aprobarse
	_, err = h.inspecciones.RegistrarResultado(ctx, h.inspector, inspeccion.ID, model.ResultadoRechazada, "Sin sanitarios")
	require.NoError(t, err)
	_, _, err = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
}

func TestSolicitudService_Aprobar_ConReinspeccionPendiente(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	// una re-inspección programada bloquea la decisión hasta su resultado
	reinspeccion, err := h.inspecciones.Programar(ctx, h.admin, solicitud.ID, h.inspector.UserID, time.Now().Add(48*time.Hour))
	require.NoError(t, err)

	_, _, err = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
	assert.Equal(t, apperrors.SolicitudInspeccionPendiente, apperrors.CodeOf(err))

	// resuelta la re-inspección, la aprobación procede
	_, err = h.inspecciones.RegistrarResultado(ctx, h.inspector, reinspeccion.ID, model.ResultadoAprobada, "Observaciones subsanadas")
	require.NoError(t, err)
	_, _, err = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)
}

func TestSolicitudService_DecisionesConcurrentes(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	var wg sync.WaitGroup
	var errAprobar, errRechazar error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errAprobar = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	}()
	go func() {
		defer wg.Done()
		_, errRechazar = h.solicitudes.Rechazar(ctx, h.admin, solicitud.ID, "Documentación observada")
	}()
	wg.Wait()

	// una decisión gana; la otra encuentra el estado terminal
	if errAprobar == nil {
		require.Error(t, errRechazar)
		assert.Equal(t, apperrors.KindState, apperrors.KindOf(errRechazar))
	} else {
		require.NoError(t, errRechazar)
		assert.Equal(t, apperrors.KindState, apperrors.KindOf(errAprobar))
	}

	final, err := h.solicitudes.Get(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)
	assert.True(t, final.Estado.EsTerminal())
}

func TestSolicitudService_Aprobar_EmiteCertificado(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	aprobada, certificado, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoAprobada, aprobada.Estado)
	require.NotNil(t, aprobada.FechaVencimiento)
	require.NotNil(t, certificado)
	assert.Regexp(t, `^C-[0-9A-F]{16}$`, certificado.Serial)
	assert.Contains(t, certificado.CodigoVerificacion, "VER-"+aprobada.Numero())
	assert.NotEmpty(t, certificado.Contenido)

	// vigencia de 30 días
	esperado := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, esperado, *aprobada.FechaVencimiento, time.Minute)

	// sólo los no-ciudadanos y el titular ven la solicitud aprobada
	_, err = h.solicitudes.Get(ctx, h.ciudadano, solicitud.ID)
	assert.NoError(t, err)
}

func TestSolicitudService_Aprobar_Idempotente(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	_, primero, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	// re-aprobar devuelve el mismo certificado, sin emitir otro
	_, segundo, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)
	assert.Equal(t, primero.ID, segundo.ID)
	assert.Equal(t, primero.Serial, segundo.Serial)

	var total int64
	require.NoError(t, h.db.Model(&model.Certificado{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestSolicitudService_Rechazar(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	// sin motivo no hay rechazo
	_, err := h.solicitudes.Rechazar(ctx, h.admin, solicitud.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.ValidationMotivoRequired, apperrors.CodeOf(err))

	rechazada, err := h.solicitudes.Rechazar(ctx, h.admin, solicitud.ID, "Documentación apócrifa")
	require.NoError(t, err)
	assert.Equal(t, model.EstadoRechazada, rechazada.Estado)
	assert.Equal(t, "Documentación apócrifa", rechazada.MotivoDecision)

	// estado terminal: ni aprobar ni volver a rechazar
	_, _, err = h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.SolicitudEstadoTerminal, apperrors.CodeOf(err))

	_, err = h.solicitudes.Rechazar(ctx, h.admin, solicitud.ID, "otro motivo")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))
}

func TestSolicitudService_Autorizacion(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)

	// un ciudadano no aprueba ni rechaza
	_, _, err := h.solicitudes.Aprobar(ctx, h.ciudadano, solicitud.ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	_, err = h.solicitudes.Rechazar(ctx, h.inspector, solicitud.ID, "motivo")
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	// otro ciudadano no ve la solicitud ajena
	otro := authz.Actor{UserID: 999, Role: model.RoleCiudadano}
	_, err = h.solicitudes.Get(ctx, otro, solicitud.ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}

func TestSolicitudService_List_VisibilidadPorRol(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	h.presentada(t)
	h.presentada(t)

	// el ciudadano ve las suyas
	propias, total, err := h.solicitudes.List(ctx, h.ciudadano, repository.SolicitudFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, propias, 2)

	// el admin ve todas, con filtro por estado
	todas, total, err := h.solicitudes.List(ctx, h.admin, repository.SolicitudFilter{Estado: model.EstadoPresentada})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, todas, 2)

	// otro ciudadano no ve nada ajeno
	otro := authz.Actor{UserID: 999, Role: model.RoleCiudadano}
	ajenas, total, err := h.solicitudes.List(ctx, otro, repository.SolicitudFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, ajenas)
}

func TestSolicitudService_EventosPublicados(t *testing.T) {
	h := setupLifecycleTest(t)
	ctx := context.Background()

	solicitud := h.enInspeccionAprobada(t)
	_, _, err := h.solicitudes.Aprobar(ctx, h.admin, solicitud.ID)
	require.NoError(t, err)

	var tipos []events.Type
	for _, e := range *h.eventosVistos {
		tipos = append(tipos, e.Type)
	}
	assert.Contains(t, tipos, events.SolicitudPresentada)
	assert.Contains(t, tipos, events.InspeccionProgramada)
	assert.Contains(t, tipos, events.ResultadoRegistrado)
	assert.Contains(t, tipos, events.CertificadoEmitido)

	// el evento de certificado lleva el serial y el vencimiento
	for _, e := range *h.eventosVistos {
		if e.Type == events.CertificadoEmitido {
			assert.NotEmpty(t, e.CertSerial)
			assert.False(t, e.Vencimiento.IsZero())
		}
	}
}
