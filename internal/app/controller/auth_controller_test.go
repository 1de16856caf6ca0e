package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	"github.com/habilitaciones-ar/afap-backend/internal/db"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthControllerTest(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	userRepo := repository.NewUserRepository(testDB)
	authService := service.NewAuthService(userRepo, "test-secret", 15*time.Minute, 7*24*time.Hour)

	ctrl := NewAuthController(authService, "test-secret")
	authMiddleware := middleware.NewAuthMiddleware("test-secret")

	router := gin.New()
	router.POST("/register", ctrl.Register)
	router.POST("/login", ctrl.Login)
	router.GET("/me", authMiddleware.Authenticate(), ctrl.GetMe)

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	return w
}

func TestAuthController_Register_Success(t *testing.T) {
	router := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		CuitCuil: "20-11111111-2",
		Email:    "juan@example.com",
		Password: "secreto123",
		Nombre:   "Juan",
		Apellido: "Pérez",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.NotNil(t, response["user"])
	assert.NotNil(t, response["tokens"])

	user := response["user"].(map[string]interface{})
	assert.Equal(t, "20111111112", user["cuit_cuil"]) // normalizado
	assert.Equal(t, "ciudadano", user["role"])
}

func TestAuthController_Register_CuitInvalido(t *testing.T) {
	router := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		CuitCuil: "20111111113", // dígito verificador incorrecto
		Email:    "juan@example.com",
		Password: "secreto123",
		Nombre:   "Juan",
		Apellido: "Pérez",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_CUIT_INVALID")
}

func TestAuthController_Register_CamposFaltantes(t *testing.T) {
	router := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		CuitCuil: "20111111112",
		Password: "secreto123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_INVALID_INPUT")
}

func TestAuthController_Login(t *testing.T) {
	router := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		CuitCuil: "20111111112",
		Email:    "juan@example.com",
		Password: "secreto123",
		Nombre:   "Juan",
		Apellido: "Pérez",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, router, "/login", LoginRequest{
		CuitCuil: "20-11111111-2",
		Password: "secreto123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotNil(t, response["tokens"])

	// la contraseña incorrecta no revela si el usuario existe
	w = postJSON(t, router, "/login", LoginRequest{
		CuitCuil: "20111111112",
		Password: "otra",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_INVALID_CREDENTIALS")
}

func TestAuthController_GetMe(t *testing.T) {
	router := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		CuitCuil: "20111111112",
		Email:    "juan@example.com",
		Password: "secreto123",
		Nombre:   "Juan",
		Apellido: "Pérez",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var registro struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registro))
	require.NotEmpty(t, registro.Tokens.AccessToken)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+registro.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "20111111112")

	// sin token no hay perfil
	req = httptest.NewRequest("GET", "/me", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
