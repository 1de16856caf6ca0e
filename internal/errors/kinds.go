package errors

import (
	"errors"
	"fmt"
)

// Kind clasifica los errores del dominio. Cada operación devuelve siempre el
// kind más específico; la capa HTTP lo traduce a un status estable.
type Kind string

const (
	KindValidation    Kind = "validation"    // entrada inválida o incompleta, el caller debe corregir
	KindAuthorization Kind = "authorization" // rol/propiedad insuficiente, nunca se reintenta
	KindState         Kind = "state"         // operación inválida para el estado actual del trámite
	KindConflict      Kind = "conflict"      // colisión de unicidad o de versión, reintentable tras releer
	KindPrecondition  Kind = "precondition"  // regla de negocio no cumplida (ej: falta inspección aprobada)
	KindNotFound      Kind = "not_found"
	KindTimeout       Kind = "timeout" // almacenamiento no disponible, reintentable con backoff
	KindInternal      Kind = "internal"
)

// Error es el error tipado del núcleo: kind + código estable + mensaje para el
// usuario. Envuelve la causa original cuando existe.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is permite comparar contra sentinelas construidos con los mismos kind y code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error    { return newError(KindValidation, code, message) }
func Authorization(code, message string) *Error { return newError(KindAuthorization, code, message) }
func State(code, message string) *Error         { return newError(KindState, code, message) }
func Conflict(code, message string) *Error      { return newError(KindConflict, code, message) }
func Precondition(code, message string) *Error  { return newError(KindPrecondition, code, message) }
func NotFoundError(code, message string) *Error { return newError(KindNotFound, code, message) }
func Timeout(code, message string) *Error       { return newError(KindTimeout, code, message) }
func Internal(code, message string) *Error      { return newError(KindInternal, code, message) }

// Wrap conserva kind/code/message y agrega la causa.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// KindOf devuelve el kind de un error; KindInternal si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind informa si err pertenece al kind dado.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// CodeOf devuelve el código estable de un error, o INTERNAL_SERVER_ERROR.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalServerError
}

// MessageOf devuelve el mensaje para el usuario, o uno genérico.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Ocurrió un error en el servidor. Intentá de nuevo más tarde"
}
