package model

import (
	"time"

	"gorm.io/gorm"
)

// Certificado es el documento emitido al aprobar una solicitud. Se crea una
// sola vez, dentro de la misma transacción que pasa el trámite a aprobada, y
// es inmutable desde entonces.
type Certificado struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	SolicitudID uint   `gorm:"uniqueIndex;not null" json:"solicitud_id"` // 1:1 con la solicitud aprobada
	Serial      string `gorm:"uniqueIndex;not null;type:varchar(32)" json:"serial"` // formato sin relación con el número de trámite

	CodigoVerificacion string `gorm:"type:varchar(40)" json:"codigo_verificacion"`
	Contenido          []byte `gorm:"type:bytea" json:"-"` // documento renderizado
	ContentType        string `gorm:"type:varchar(100)" json:"content_type"`

	EmitidoEn time.Time      `gorm:"not null" json:"emitido_en"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Solicitud *Solicitud `gorm:"foreignKey:SolicitudID" json:"solicitud,omitempty"`
}

func (Certificado) TableName() string {
	return "certificados"
}

// DescargaCertificado es el registro de auditoría de cada descarga.
type DescargaCertificado struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CertificadoID uint      `gorm:"not null;index" json:"certificado_id"`
	SolicitudID   uint      `gorm:"not null;index" json:"solicitud_id"`
	NumeroTramite string    `gorm:"type:varchar(12)" json:"numero_tramite"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	UserNombre    string    `json:"user_nombre"`
	UserEmail     string    `json:"user_email"`
	CreatedAt     time.Time `json:"created_at"`
}

func (DescargaCertificado) TableName() string {
	return "descargas_certificado"
}
