package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/config"
	"github.com/habilitaciones-ar/afap-backend/internal/app/controller"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/habilitaciones-ar/afap-backend/internal/events"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
	"github.com/habilitaciones-ar/afap-backend/internal/render"
	"github.com/habilitaciones-ar/afap-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type TestServer struct {
	Router      *gin.Engine
	DB          *gorm.DB
	AuthService service.AuthService
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	userRepo := repository.NewUserRepository(testDB)
	solicitudRepo := repository.NewSolicitudRepository(testDB)
	inspeccionRepo := repository.NewInspeccionRepository(testDB)
	certificadoRepo := repository.NewCertificadoRepository(testDB)
	notificacionRepo := repository.NewNotificacionRepository(testDB)

	dispatcher := events.NewInMemoryDispatcher()
	hub := websocket.NewHub()
	go hub.Run()

	certCfg := &config.CertificadosConfig{
		VerificationBaseURL:  "http://localhost:3000/verificar-certificado",
		VigenciaDias:         30,
		AvisoVencimientoDias: 5,
	}

	authService := service.NewAuthService(userRepo, "test-secret", 15*time.Minute, 7*24*time.Hour)
	solicitudService := service.NewSolicitudService(
		solicitudRepo, inspeccionRepo, certificadoRepo,
		render.NewHTMLRenderer(), dispatcher, certCfg, testDB)
	inspeccionService := service.NewInspeccionService(
		inspeccionRepo, solicitudRepo, userRepo, dispatcher, testDB)
	certificadoService := service.NewCertificadoService(certificadoRepo, solicitudRepo, userRepo)
	notificacionService := service.NewNotificacionService(notificacionRepo, userRepo, hub, service.NewLogMailer())
	notificacionService.SubscribirEventos(dispatcher)

	authController := controller.NewAuthController(authService, "test-secret")
	solicitudController := controller.NewSolicitudController(solicitudService)
	inspeccionController := controller.NewInspeccionController(inspeccionService)
	certificadoController := controller.NewCertificadoController(certificadoService)
	notificacionController := controller.NewNotificacionController(notificacionService)

	authMiddleware := middleware.NewAuthMiddleware("test-secret")
	admin := string(model.RoleAdministrador)
	inspector := string(model.RoleInspector)

	router := gin.New()

	router.GET("/api/verificar/:serial", certificadoController.VerificarPublico)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.GET("/me", authMiddleware.Authenticate(), authController.GetMe)
	}

	solicitudes := router.Group("/api/v1/solicitudes")
	solicitudes.Use(authMiddleware.Authenticate())
	{
		solicitudes.GET("", solicitudController.List)
		solicitudes.POST("", solicitudController.Crear)
		solicitudes.GET("/:id", solicitudController.Get)
		solicitudes.PUT("/:id", solicitudController.Actualizar)
		solicitudes.POST("/:id/presentar", solicitudController.Presentar)
		solicitudes.POST("/:id/aprobar", authMiddleware.RequireRole(admin), solicitudController.Aprobar)
		solicitudes.POST("/:id/rechazar", authMiddleware.RequireRole(admin), solicitudController.Rechazar)
		solicitudes.GET("/:id/inspecciones", inspeccionController.ListBySolicitud)
		solicitudes.POST("/:id/inspecciones", authMiddleware.RequireRole(admin, inspector), inspeccionController.Programar)
		solicitudes.GET("/:id/certificado", certificadoController.Descargar)
	}

	inspecciones := router.Group("/api/v1/inspecciones")
	inspecciones.Use(authMiddleware.Authenticate())
	{
		inspecciones.PUT("/:id/resultado", authMiddleware.RequireRole(inspector, admin), inspeccionController.RegistrarResultado)
	}

	notificaciones := router.Group("/api/v1/notificaciones")
	notificaciones.Use(authMiddleware.Authenticate())
	{
		notificaciones.GET("", notificacionController.List)
	}

	return &TestServer{
		Router:      router,
		DB:          testDB,
		AuthService: authService,
	}
}

func (ts *TestServer) request(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

// registrar crea un usuario vía API, le asigna el rol directo en la base y
// devuelve un token con ese rol.
func (ts *TestServer) registrar(t *testing.T, cuit, email string, role model.UserRole) string {
	t.Helper()

	w := ts.request(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"cuit_cuil": cuit,
		"email":     email,
		"password":  "secreto123",
		"nombre":    "Usuario",
		"apellido":  "De Prueba",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	if role != model.RoleCiudadano {
		require.NoError(t, ts.DB.Model(&model.User{}).
			Where("cuit_cuil = ?", cuit).
			Update("role", role).Error)
	}

	// login de nuevo para que el token lleve el rol actualizado
	w = ts.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"cuit_cuil": cuit,
		"password":  "secreto123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Tokens.AccessToken)
	return resp.Tokens.AccessToken
}

func borradorCompleto() map[string]interface{} {
	return map[string]interface{}{
		"titular_tipo":          "fisica",
		"titular_nombre":        "Panadería La Espiga",
		"titular_cuit":          "20111111112",
		"cuenta_abl":            "1234567",
		"domicilio_calle":       "San Martín",
		"domicilio_altura":      "1420",
		"domicilio_localidad":   "Rosario",
		"rubro_tipo":            "alimentos",
		"rubro_subrubro":        "panadería",
		"rubro_descripcion":     "Elaboración y venta de pan",
		"metros_cuadrados":      85.5,
		"tiene_sanitarios":      true,
		"cantidad_trabajadores": 3,
	}
}

func TestHabilitacionAprobada(t *testing.T) {
	ts := setupIntegrationTest(t)

	ciudadano := ts.registrar(t, "20111111112", "juan@example.com", model.RoleCiudadano)
	inspector := ts.registrar(t, "27222222228", "maria@example.com", model.RoleInspector)
	admin := ts.registrar(t, "20555555556", "carlos@example.com", model.RoleAdministrador)

	// 1. el ciudadano crea y presenta su solicitud
	t.Log("Paso 1: crear y presentar")
	w := ts.request(t, "POST", "/api/v1/solicitudes", ciudadano, borradorCompleto())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var crearResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &crearResp))
	solicitudID := crearResp.Solicitud.ID
	assert.Equal(t, model.EstadoBorrador, crearResp.Solicitud.Estado)

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/presentar", solicitudID), ciudadano, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var presentarResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presentarResp))
	assert.Equal(t, model.EstadoPresentada, presentarResp.Solicitud.Estado)
	assert.Regexp(t, `^\d{4}-\d{6}$`, presentarResp.Solicitud.Numero())

	// 2. aprobar sin inspección falla
	t.Log("Paso 2: aprobar sin inspección")
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/aprobar", solicitudID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// 3. el admin programa la inspección
	t.Log("Paso 3: programar inspección")
	var inspectorUser model.User
	require.NoError(t, ts.DB.Where("cuit_cuil = ?", "27222222228").First(&inspectorUser).Error)

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/inspecciones", solicitudID), admin, map[string]interface{}{
		"inspector_id":     inspectorUser.ID,
		"fecha_programada": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var programarResp struct {
		Inspeccion model.Inspeccion `json:"inspeccion"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &programarResp))

	// el ciudadano no puede programar
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/inspecciones", solicitudID), ciudadano, map[string]interface{}{
		"inspector_id":     inspectorUser.ID,
		"fecha_programada": time.Now().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 4. el inspector registra el resultado
	t.Log("Paso 4: registrar resultado")
	w = ts.request(t, "PUT", fmt.Sprintf("/api/v1/inspecciones/%d/resultado", programarResp.Inspeccion.ID), inspector, map[string]string{
		"resultado": "aprobada",
		"notas":     "Instalaciones en regla",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 5. el admin aprueba y se emite el certificado
	t.Log("Paso 5: aprobar")
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/aprobar", solicitudID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var aprobarResp struct {
		Solicitud   model.Solicitud   `json:"solicitud"`
		Certificado model.Certificado `json:"certificado"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &aprobarResp))
	assert.Equal(t, model.EstadoAprobada, aprobarResp.Solicitud.Estado)
	assert.Regexp(t, `^C-[0-9A-F]{16}$`, aprobarResp.Certificado.Serial)

	// aprobar de nuevo devuelve el mismo certificado
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/aprobar", solicitudID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var segundaResp struct {
		Certificado model.Certificado `json:"certificado"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &segundaResp))
	assert.Equal(t, aprobarResp.Certificado.Serial, segundaResp.Certificado.Serial)

	// 6. el titular descarga el certificado
	t.Log("Paso 6: descargar certificado")
	w = ts.request(t, "GET", fmt.Sprintf("/api/v1/solicitudes/%d/certificado", solicitudID), ciudadano, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Panadería La Espiga")

	// 7. verificación pública sin autenticación
	t.Log("Paso 7: verificación pública")
	w = ts.request(t, "GET", "/api/verificar/"+aprobarResp.Certificado.Serial, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var verificacion struct {
		Valido  bool `json:"valido"`
		Vigente bool `json:"vigente"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verificacion))
	assert.True(t, verificacion.Valido)
	assert.True(t, verificacion.Vigente)

	// serial desconocido: verificación negativa, no 404
	w = ts.request(t, "GET", "/api/verificar/C-0000000000000000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verificacion))
	assert.False(t, verificacion.Valido)

	// 8. el titular recibió las notificaciones del trámite
	t.Log("Paso 8: notificaciones")
	w = ts.request(t, "GET", "/api/v1/notificaciones", ciudadano, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var notifResp struct {
		Notificaciones []model.Notificacion `json:"notificaciones"`
		Total          int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notifResp))
	assert.GreaterOrEqual(t, notifResp.Total, 3) // presentación, inspección, certificado
}

func TestHabilitacionRechazada(t *testing.T) {
	ts := setupIntegrationTest(t)

	ciudadano := ts.registrar(t, "20111111112", "juan@example.com", model.RoleCiudadano)
	ts.registrar(t, "27222222228", "maria@example.com", model.RoleInspector)
	admin := ts.registrar(t, "20555555556", "carlos@example.com", model.RoleAdministrador)

	w := ts.request(t, "POST", "/api/v1/solicitudes", ciudadano, borradorCompleto())
	require.Equal(t, http.StatusCreated, w.Code)

	var crearResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &crearResp))
	solicitudID := crearResp.Solicitud.ID

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/presentar", solicitudID), ciudadano, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// rechazar directo desde presentada no es una transición válida
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/rechazar", solicitudID), admin, map[string]string{
		"motivo": "El rubro no está permitido en esa zona",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// la inspección pasa el trámite a en_inspeccion y habilita la decisión
	var inspectorUser model.User
	require.NoError(t, ts.DB.Where("cuit_cuil = ?", "27222222228").First(&inspectorUser).Error)
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/inspecciones", solicitudID), admin, map[string]interface{}{
		"inspector_id":     inspectorUser.ID,
		"fecha_programada": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// sin motivo no hay rechazo
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/rechazar", solicitudID), admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/rechazar", solicitudID), admin, map[string]string{
		"motivo": "El rubro no está permitido en esa zona",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rechazarResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rechazarResp))
	assert.Equal(t, model.EstadoRechazada, rechazarResp.Solicitud.Estado)
	assert.Equal(t, "El rubro no está permitido en esa zona", rechazarResp.Solicitud.MotivoDecision)

	// el estado terminal no admite más transiciones
	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/aprobar", solicitudID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// sin certificado no hay descarga
	w = ts.request(t, "GET", fmt.Sprintf("/api/v1/solicitudes/%d/certificado", solicitudID), ciudadano, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPresentacionIncompleta(t *testing.T) {
	ts := setupIntegrationTest(t)

	ciudadano := ts.registrar(t, "20111111112", "juan@example.com", model.RoleCiudadano)

	incompleto := borradorCompleto()
	delete(incompleto, "cuenta_abl")
	delete(incompleto, "rubro_tipo")

	w := ts.request(t, "POST", "/api/v1/solicitudes", ciudadano, incompleto)
	require.Equal(t, http.StatusCreated, w.Code)

	var crearResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &crearResp))

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/presentar", crearResp.Solicitud.ID), ciudadano, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SOLICITUD_CAMPOS_FALTANTES")
	assert.Contains(t, w.Body.String(), "cuenta_abl")
}

func TestVisibilidadEntreUsuarios(t *testing.T) {
	ts := setupIntegrationTest(t)

	titular := ts.registrar(t, "20111111112", "juan@example.com", model.RoleCiudadano)
	otro := ts.registrar(t, "20222222223", "pedro@example.com", model.RoleCiudadano)

	w := ts.request(t, "POST", "/api/v1/solicitudes", titular, borradorCompleto())
	require.Equal(t, http.StatusCreated, w.Code)

	var crearResp struct {
		Solicitud model.Solicitud `json:"solicitud"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &crearResp))
	solicitudID := crearResp.Solicitud.ID

	// otro ciudadano no ve ni edita la solicitud ajena
	w = ts.request(t, "GET", fmt.Sprintf("/api/v1/solicitudes/%d", solicitudID), otro, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, "POST", fmt.Sprintf("/api/v1/solicitudes/%d/presentar", solicitudID), otro, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// el listado sólo muestra las propias
	w = ts.request(t, "GET", "/api/v1/solicitudes", otro, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Equal(t, int64(0), listResp.Total)
}

func TestAccesoSinToken(t *testing.T) {
	ts := setupIntegrationTest(t)

	protectedRoutes := []string{
		"/api/v1/auth/me",
		"/api/v1/solicitudes",
		"/api/v1/notificaciones",
	}

	for _, route := range protectedRoutes {
		t.Run(route, func(t *testing.T) {
			req := httptest.NewRequest("GET", route, nil)
			w := httptest.NewRecorder()

			ts.Router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
