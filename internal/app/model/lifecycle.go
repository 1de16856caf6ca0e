package model

import (
	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
)

type EventoSolicitud string // evento que dispara una transición de estado

const (
	EventoPresentar         EventoSolicitud = "presentar"
	EventoIniciarInspeccion EventoSolicitud = "iniciar_inspeccion"
	EventoAprobar           EventoSolicitud = "aprobar"
	EventoRechazar          EventoSolicitud = "rechazar"
)

// transiciones es la máquina de estados del trámite. Estados terminales no
// figuran como origen: nada sale de aprobada ni de rechazada.
var transiciones = map[EstadoSolicitud]map[EventoSolicitud]EstadoSolicitud{
	EstadoBorrador: {
		EventoPresentar: EstadoPresentada,
	},
	EstadoPresentada: {
		EventoIniciarInspeccion: EstadoEnInspeccion,
	},
	EstadoEnInspeccion: {
		EventoAprobar:  EstadoAprobada,
		EventoRechazar: EstadoRechazada,
	},
}

// Transicionar aplica el evento sobre el estado actual y devuelve el estado
// siguiente. Es una función pura: no toca almacenamiento ni side effects.
func Transicionar(desde EstadoSolicitud, evento EventoSolicitud) (EstadoSolicitud, error) {
	if desde.EsTerminal() {
		return desde, apperrors.State(
			apperrors.SolicitudEstadoTerminal,
			"El trámite ya tiene una decisión final y no admite cambios",
		)
	}

	hacia, ok := transiciones[desde][evento]
	if !ok {
		return desde, apperrors.State(
			apperrors.SolicitudEstadoInvalido,
			"La operación no es válida para el estado actual del trámite",
		)
	}

	return hacia, nil
}
