package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/service"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
	"github.com/habilitaciones-ar/afap-backend/pkg/util"
)

type AuthController struct {
	authService service.AuthService
	jwtSecret   string
}

func NewAuthController(authService service.AuthService, jwtSecret string) *AuthController {
	return &AuthController{
		authService: authService,
		jwtSecret:   jwtSecret,
	}
}

type RegisterRequest struct {
	CuitCuil string `json:"cuit_cuil" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Nombre   string `json:"nombre" binding:"required"`
	Apellido string `json:"apellido" binding:"required"`
	Telefono string `json:"telefono"`
}

type LoginRequest struct {
	CuitCuil string `json:"cuit_cuil" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Telefono string `json:"telefono"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type CambiarRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func userResponse(user *model.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"cuit_cuil": user.CuitCuil,
		"email":     user.Email,
		"nombre":    user.Nombre,
		"apellido":  user.Apellido,
		"telefono":  user.Telefono,
		"role":      user.Role,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	user, tokens, err := ctrl.authService.Register(service.RegisterInput{
		CuitCuil: req.CuitCuil,
		Email:    req.Email,
		Password: req.Password,
		Nombre:   req.Nombre,
		Apellido: req.Apellido,
		Telefono: req.Telefono,
	})
	if err != nil {
		log.Warn("Registration failed", map[string]interface{}{
			"email": req.Email,
			"error": err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id":   user.ID,
		"cuit_cuil": user.CuitCuil,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Usuario registrado",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.CuitCuil, req.Password)
	if err != nil {
		// no se distingue usuario inexistente de contraseña incorrecta
		log.Warn("Login failed", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Sesión iniciada",
		"user":    userResponse(user),
		"tokens":  tokens,
	})
}

// Logout revokes the current access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}
	token := parts[1]

	// la revocación dura lo que le queda de vida al token
	claims, err := util.ValidateToken(token, ctrl.jwtSecret)
	if err != nil {
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "El token de autenticación no es válido")
		return
	}

	expiry := time.Until(claims.ExpiresAt.Time)
	if expiry <= 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), token, expiry); err != nil {
		log.Error("Logout failed", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		apperrors.InternalError(c, "")
		return
	}

	log.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// RefreshToken issues a new token pair from a refresh token
// POST /api/v1/auth/refresh
func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	tokens, err := ctrl.authService.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn("Token refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// GetMe returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		log.Error("Failed to get user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// UpdateMe updates the authenticated user's profile
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "Tenés que iniciar sesión")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, req.Nombre, req.Apellido, req.Telefono)
	if err != nil {
		log.Error("Failed to update profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.Respond(c, err)
		return
	}

	log.Info("Profile updated", map[string]interface{}{
		"user_id": userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Perfil actualizado",
		"user":    userResponse(user),
	})
}

// CambiarRole changes a user's role (admin only, enforced by router)
// PUT /api/v1/usuarios/:id/role
func (ctrl *AuthController) CambiarRole(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := parseIDParam(c, "id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "El ID de usuario no es válido")
		return
	}

	var req CambiarRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Los datos ingresados no son válidos")
		return
	}

	user, err := ctrl.authService.CambiarRole(userID, model.UserRole(req.Role))
	if err != nil {
		log.Warn("Role change failed", map[string]interface{}{
			"target_user_id": userID,
			"role":           req.Role,
			"error":          err.Error(),
		})
		apperrors.Respond(c, err)
		return
	}

	adminID, _ := middleware.GetUserID(c)
	log.Info("User role changed", map[string]interface{}{
		"target_user_id": user.ID,
		"new_role":       user.Role,
		"changed_by":     adminID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Rol actualizado",
		"user":    userResponse(user),
	})
}

// ListInspectores lists users with the inspector role (admin only)
// GET /api/v1/usuarios/inspectores
func (ctrl *AuthController) ListInspectores(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	inspectores, err := ctrl.authService.ListInspectores()
	if err != nil {
		log.Error("Failed to list inspectors", err, nil)
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inspectores": inspectores,
		"total":       len(inspectores),
	})
}
