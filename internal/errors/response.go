package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse estructura estándar de respuesta de error
type ErrorResponse struct {
	Error   string `json:"error"`   // código de error (ver codes.go)
	Message string `json:"message"` // mensaje para el usuario (en castellano)
}

// RespondWithError helper de respuesta de error
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// statusForKind mapea cada kind de error a un status HTTP estable.
func statusForKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindState:
		return http.StatusConflict
	case KindConflict:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Respond responde con el status/código/mensaje que corresponde al error
// tipado. Los errores no tipados se responden como error interno sin filtrar
// detalles.
func Respond(c *gin.Context, err error) {
	RespondWithError(c, statusForKind(KindOf(err)), CodeOf(err), MessageOf(err))
}

// Atajos usados por controllers y middleware

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Tenés que iniciar sesión"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "No estás autorizado para esta operación"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func ConflictResponse(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Ocurrió un error en el servidor. Intentá de nuevo más tarde"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}
