package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/habilitaciones-ar/afap-backend/internal/authz"
	"github.com/habilitaciones-ar/afap-backend/internal/middleware"
)

// currentActor arma el actor de autorización desde el contexto de gin. El
// segundo valor es false si la request no pasó por el middleware de
// autenticación.
func currentActor(c *gin.Context) (authz.Actor, bool) {
	userID, okID := middleware.GetUserID(c)
	role, okRole := middleware.GetUserRole(c)
	if !okID || !okRole {
		return authz.Actor{}, false
	}
	return authz.Actor{UserID: userID, Role: role}, true
}

// parseIDParam lee un parámetro de ruta numérico.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
