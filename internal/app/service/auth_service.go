package service

import (
	"context"
	"errors"
	"time"

	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	"github.com/habilitaciones-ar/afap-backend/internal/app/repository"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
	"github.com/habilitaciones-ar/afap-backend/pkg/logger"
	"github.com/habilitaciones-ar/afap-backend/pkg/redis"
	"github.com/habilitaciones-ar/afap-backend/pkg/util"
	"gorm.io/gorm"
)

// RegisterInput son los datos de alta de un ciudadano.
type RegisterInput struct {
	CuitCuil string
	Email    string
	Password string
	Nombre   string
	Apellido string
	Telefono string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(cuitCuil, password string) (*model.User, *util.TokenPair, error)
	Logout(ctx context.Context, token string, expiry time.Duration) error
	RefreshTokens(refreshToken string) (*util.TokenPair, error)
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, nombre, apellido, telefono string) (*model.User, error)
	// CambiarRole sólo puede invocarlo un administrador; el controller valida
	// el rol del actor antes de llegar acá.
	CambiarRole(userID uint, role model.UserRole) (*model.User, error)
	ListInspectores() ([]model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, *util.TokenPair, error) {
	cuit := util.NormalizeCuit(input.CuitCuil)

	logger.Info("Attempting user registration", map[string]interface{}{
		"cuit_cuil": cuit,
		"email":     input.Email,
	})

	if !util.ValidateCuit(cuit) {
		logger.Warn("Registration failed: invalid CUIT/CUIL", map[string]interface{}{
			"cuit_cuil": input.CuitCuil,
		})
		return nil, nil, apperrors.Validation(apperrors.AuthCuitInvalid,
			"El CUIT/CUIL ingresado no es válido")
	}

	existing, err := s.userRepo.FindByCuitCuil(cuit)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"cuit_cuil": cuit,
		})
		return nil, nil, apperrors.FromStore(err, nil)
	}
	if existing != nil {
		logger.Warn("Registration failed: CUIT/CUIL already registered", map[string]interface{}{
			"cuit_cuil": cuit,
		})
		return nil, nil, apperrors.Conflict(apperrors.AuthCuitExists,
			"Ya existe una cuenta registrada con ese CUIT/CUIL")
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"cuit_cuil": cuit,
		})
		return nil, nil, apperrors.Internal(apperrors.InternalServerError,
			"No se pudo completar el registro").Wrap(err)
	}

	user := &model.User{
		Email:        input.Email,
		CuitCuil:     cuit,
		PasswordHash: hashedPassword,
		Nombre:       input.Nombre,
		Apellido:     input.Apellido,
		Telefono:     input.Telefono,
		Role:         model.RoleCiudadano,
	}

	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"cuit_cuil": cuit,
		})
		return nil, nil, apperrors.FromStore(err, nil)
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.CuitCuil,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, apperrors.Internal(apperrors.InternalServerError,
			"No se pudo completar el registro").Wrap(err)
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id":   user.ID,
		"cuit_cuil": cuit,
		"role":      user.Role,
	})

	return user, tokens, nil
}

func (s *authService) Login(cuitCuil, password string) (*model.User, *util.TokenPair, error) {
	cuit := util.NormalizeCuit(cuitCuil)

	logger.Info("Login attempt", map[string]interface{}{
		"cuit_cuil": cuit,
	})

	user, err := s.userRepo.FindByCuitCuil(cuit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"cuit_cuil": cuit,
			})
			return nil, nil, apperrors.Authorization(apperrors.AuthInvalidCredentials,
				"CUIT/CUIL o contraseña incorrectos")
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"cuit_cuil": cuit,
		})
		return nil, nil, apperrors.FromStore(err, nil)
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"cuit_cuil": cuit,
			"user_id":   user.ID,
		})
		return nil, nil, apperrors.Authorization(apperrors.AuthInvalidCredentials,
			"CUIT/CUIL o contraseña incorrectos")
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.CuitCuil,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, apperrors.Internal(apperrors.InternalServerError,
			"No se pudo iniciar sesión").Wrap(err)
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id":   user.ID,
		"cuit_cuil": cuit,
		"role":      user.Role,
	})

	return user, tokens, nil
}

func (s *authService) Logout(ctx context.Context, token string, expiry time.Duration) error {
	if err := redis.BlacklistToken(ctx, token, expiry); err != nil {
		logger.Error("Failed to blacklist token on logout", err, nil)
		return apperrors.Internal(apperrors.InternalServerError,
			"No se pudo cerrar la sesión").Wrap(err)
	}

	logger.Info("User logged out, token blacklisted", nil)
	return nil
}

func (s *authService) RefreshTokens(refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil, apperrors.Authorization(apperrors.AuthTokenExpired,
				"La sesión expiró, iniciá sesión de nuevo")
		}
		return nil, apperrors.Authorization(apperrors.AuthTokenInvalid,
			"Token inválido")
	}

	// el rol puede haber cambiado desde la emisión del refresh token
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.AuthUserNotFound, "Usuario no encontrado"))
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.CuitCuil,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		return nil, apperrors.Internal(apperrors.InternalServerError,
			"No se pudo renovar la sesión").Wrap(err)
	}

	logger.Info("Tokens refreshed", map[string]interface{}{
		"user_id": user.ID,
	})
	return tokens, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.AuthUserNotFound, "Usuario no encontrado"))
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, nombre, apellido, telefono string) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.AuthUserNotFound, "Usuario no encontrado"))
	}

	updated := false
	if nombre != "" && nombre != user.Nombre {
		user.Nombre = nombre
		updated = true
	}
	if apellido != "" && apellido != user.Apellido {
		user.Apellido = apellido
		updated = true
	}
	if telefono != "" && telefono != user.Telefono {
		user.Telefono = telefono
		updated = true
	}

	if !updated {
		return user, nil
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *authService) CambiarRole(userID uint, role model.UserRole) (*model.User, error) {
	if role != model.RoleCiudadano && role != model.RoleInspector && role != model.RoleAdministrador {
		return nil, apperrors.Validation(apperrors.ValidationInvalidInput,
			"Rol desconocido")
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, apperrors.FromStore(err,
			apperrors.NotFoundError(apperrors.AuthUserNotFound, "Usuario no encontrado"))
	}

	if user.Role == role {
		return user, nil
	}

	anterior := user.Role
	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.FromStore(err, nil)
	}

	logger.Info("User role changed", map[string]interface{}{
		"user_id":       user.ID,
		"role_anterior": anterior,
		"role_nuevo":    role,
	})
	return user, nil
}

func (s *authService) ListInspectores() ([]model.User, error) {
	inspectores, err := s.userRepo.FindByRole(model.RoleInspector)
	if err != nil {
		return nil, apperrors.FromStore(err, nil)
	}
	return inspectores, nil
}
