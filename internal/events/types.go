package events

import "time"

// Type identifica la clase de evento de dominio.
type Type string

const (
	// SolicitudPresentada se emite cuando un ciudadano presenta un borrador.
	SolicitudPresentada Type = "solicitud_presentada"
	// EstadoCambiado se emite en toda transición de estado de una solicitud.
	EstadoCambiado Type = "estado_cambiado"
	// InspeccionProgramada se emite al asignar un inspector a una solicitud.
	InspeccionProgramada Type = "inspeccion_programada"
	// ResultadoRegistrado se emite cuando un inspector carga el resultado.
	ResultadoRegistrado Type = "resultado_registrado"
	// CertificadoEmitido se emite junto con la aprobación de la solicitud.
	CertificadoEmitido Type = "certificado_emitido"
	// CertificadoPorVencer se emite desde el scheduler diario de vencimientos.
	CertificadoPorVencer Type = "certificado_por_vencer"
)

// Event es el payload que viaja por el dispatcher. Los campos opcionales
// quedan en cero cuando no aplican al tipo de evento.
type Event struct {
	Type          Type
	SolicitudID   uint
	NumeroTramite string
	UserID        uint
	EstadoDesde   string
	EstadoHasta   string
	Motivo        string
	InspectorID   uint
	CertSerial    string
	Vencimiento   time.Time
	OccurredAt    time.Time
}
