package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificacionTipo string

const (
	NotificacionEstadoCambiado       NotificacionTipo = "estado_cambiado"
	NotificacionCertificadoEmitido   NotificacionTipo = "certificado_emitido"
	NotificacionInspeccionProgramada NotificacionTipo = "inspeccion_programada"
	NotificacionCertificadoPorVencer NotificacionTipo = "certificado_por_vencer"
)

// Notificacion es el aviso persistido para el titular del trámite. Se crea a
// partir de los eventos de transición y se empuja por WebSocket si el usuario
// está conectado.
type Notificacion struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Tipo NotificacionTipo `gorm:"type:varchar(50);not null;index" json:"tipo"`

	Titulo    string `gorm:"type:text;not null" json:"titulo"`
	Contenido string `gorm:"type:text;not null" json:"contenido"`

	Leida bool `gorm:"default:false;index" json:"leida"`

	SolicitudID *uint `gorm:"index" json:"solicitud_id,omitempty"`
}

func (Notificacion) TableName() string {
	return "notificaciones"
}
