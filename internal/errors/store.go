package errors

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// FromStore traduce errores del almacenamiento al kind correspondiente.
// notFound es el error tipado a devolver cuando el registro no existe; con nil
// se devuelve un not-found genérico.
func FromStore(err error, notFound *Error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFound != nil {
			return notFound
		}
		return NotFoundError(ResourceNotFound, "El recurso no existe").Wrap(err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout(InternalStoreTimeout, "La base de datos no respondió a tiempo. Intentá de nuevo").Wrap(err)
	}

	errStr := strings.ToLower(err.Error())

	// Violaciones de unicidad de PostgreSQL (23505) y de SQLite
	if strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "unique constraint") ||
		strings.Contains(errStr, "unique failed") {
		return duplicateKeyError(errStr).Wrap(err)
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection refused") {
		return Timeout(InternalStoreTimeout, "La base de datos no respondió a tiempo. Intentá de nuevo").Wrap(err)
	}

	return Internal(InternalDatabaseError, "Ocurrió un error en el servidor. Intentá de nuevo más tarde").Wrap(err)
}

func duplicateKeyError(errStr string) *Error {
	if strings.Contains(errStr, "cuit_cuil") {
		return Conflict(AuthCuitExists, "El CUIT/CUIL ya está registrado")
	}
	if strings.Contains(errStr, "email") {
		return Conflict(AuthEmailExists, "El email ya está registrado")
	}
	if strings.Contains(errStr, "numero_tramite") {
		return Conflict(SolicitudVersionConflict, "El número de trámite ya fue asignado. Reintentá la operación")
	}
	if strings.Contains(errStr, "serial") {
		return Conflict(CertificadoSerialDup, "Colisión de serial de certificado. Reintentá la operación")
	}
	if strings.Contains(errStr, "solicitud_id") {
		return Conflict(ResourceAlreadyExists, "Ya existe un registro para esta solicitud")
	}
	return Conflict(ResourceAlreadyExists, "El registro ya existe")
}
