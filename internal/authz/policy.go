// Package authz concentra las reglas de acceso en una tabla explícita en vez
// de chequeos sueltos en cada handler. Toda operación sensible consulta acá.
package authz

import (
	"github.com/habilitaciones-ar/afap-backend/internal/app/model"
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
)

// Operation identifica una acción protegida del sistema.
type Operation string

const (
	OpSolicitudCrear      Operation = "solicitud:crear"
	OpSolicitudEditar     Operation = "solicitud:editar"
	OpSolicitudPresentar  Operation = "solicitud:presentar"
	OpSolicitudVer        Operation = "solicitud:ver"
	OpSolicitudListarTodo Operation = "solicitud:listar_todo"
	OpSolicitudAprobar    Operation = "solicitud:aprobar"
	OpSolicitudRechazar   Operation = "solicitud:rechazar"

	OpInspeccionProgramar Operation = "inspeccion:programar"
	OpInspeccionRegistrar Operation = "inspeccion:registrar"
	OpInspeccionVer       Operation = "inspeccion:ver"

	OpCertificadoDescargar Operation = "certificado:descargar"

	OpStatsVer Operation = "stats:ver"

	OpUsuarioCambiarRole Operation = "usuario:cambiar_role"
)

// rule describe quién puede ejecutar una operación. OwnerOK habilita al
// titular del recurso aunque su rol no figure en Roles.
type rule struct {
	Roles   []model.UserRole
	OwnerOK bool
}

var policy = map[Operation]rule{
	OpSolicitudCrear:      {Roles: []model.UserRole{model.RoleCiudadano, model.RoleAdministrador}},
	OpSolicitudEditar:     {OwnerOK: true},
	OpSolicitudPresentar:  {OwnerOK: true},
	OpSolicitudVer:        {Roles: []model.UserRole{model.RoleInspector, model.RoleAdministrador}, OwnerOK: true},
	OpSolicitudListarTodo: {Roles: []model.UserRole{model.RoleInspector, model.RoleAdministrador}},
	OpSolicitudAprobar:    {Roles: []model.UserRole{model.RoleAdministrador}},
	OpSolicitudRechazar:   {Roles: []model.UserRole{model.RoleAdministrador}},

	OpInspeccionProgramar: {Roles: []model.UserRole{model.RoleAdministrador, model.RoleInspector}},
	OpInspeccionRegistrar: {Roles: []model.UserRole{model.RoleInspector, model.RoleAdministrador}},
	OpInspeccionVer:       {Roles: []model.UserRole{model.RoleInspector, model.RoleAdministrador}, OwnerOK: true},

	OpCertificadoDescargar: {Roles: []model.UserRole{model.RoleAdministrador}, OwnerOK: true},

	OpStatsVer: {Roles: []model.UserRole{model.RoleAdministrador}},

	OpUsuarioCambiarRole: {Roles: []model.UserRole{model.RoleAdministrador}},
}

// Actor es quien intenta la operación.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

// Can informa si el actor puede ejecutar la operación. ownerID es el titular
// del recurso afectado; cero cuando la operación no refiere a un recurso ajeno.
func Can(actor Actor, op Operation, ownerID uint) bool {
	r, ok := policy[op]
	if !ok {
		return false
	}
	for _, role := range r.Roles {
		if actor.Role == role {
			return true
		}
	}
	if r.OwnerOK && ownerID != 0 && actor.UserID == ownerID {
		return true
	}
	return false
}

// Authorize es Can con el error de dominio ya armado.
func Authorize(actor Actor, op Operation, ownerID uint) error {
	if Can(actor, op, ownerID) {
		return nil
	}
	return apperrors.Authorization(apperrors.AuthzForbidden,
		"No tenés permiso para realizar esta operación")
}
