package model

import (
	"time"

	"gorm.io/gorm"
)

type ResultadoInspeccion string // resultado de la inspección en sitio

const (
	ResultadoPendiente ResultadoInspeccion = "pendiente" // programada, sin resultado cargado
	ResultadoAprobada  ResultadoInspeccion = "aprobada"
	ResultadoRechazada ResultadoInspeccion = "rechazada"
)

// Inspeccion registra una visita al local. El resultado es inmutable una vez
// cargado: una re-inspección es siempre una Inspeccion nueva.
type Inspeccion struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	SolicitudID uint                `gorm:"not null;index" json:"solicitud_id"` // inmutable
	InspectorID uint                `gorm:"not null;index" json:"inspector_id"`
	Resultado   ResultadoInspeccion `gorm:"type:varchar(20);default:'pendiente';index" json:"resultado"`

	FechaProgramada time.Time  `gorm:"not null" json:"fecha_programada"`
	FechaRealizada  *time.Time `json:"fecha_realizada,omitempty"`
	Notas           string     `gorm:"type:text" json:"notas,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Solicitud *Solicitud `gorm:"foreignKey:SolicitudID" json:"solicitud,omitempty"`
	Inspector *User      `gorm:"foreignKey:InspectorID" json:"inspector,omitempty"`
}

func (Inspeccion) TableName() string {
	return "inspecciones"
}
