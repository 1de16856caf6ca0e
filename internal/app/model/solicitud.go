package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type EstadoSolicitud string // estado del trámite AFAP

const (
	EstadoBorrador     EstadoSolicitud = "borrador"      // creada, todavía editable por el titular
	EstadoPresentada   EstadoSolicitud = "presentada"    // presentada, con número de trámite asignado
	EstadoEnInspeccion EstadoSolicitud = "en_inspeccion" // habilitada para inspecciones en sitio
	EstadoAprobada     EstadoSolicitud = "aprobada"      // terminal, con certificado emitido
	EstadoRechazada    EstadoSolicitud = "rechazada"     // terminal, con motivo registrado
)

type TitularTipo string // naturaleza jurídica del titular

const (
	TitularFisica   TitularTipo = "fisica"
	TitularJuridica TitularTipo = "juridica"
)

// Solicitud es el trámite de habilitación AFAP. Sólo las transiciones del
// servicio de solicitudes mutan el estado; nunca se borra físicamente.
type Solicitud struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	NumeroTramite *string         `gorm:"uniqueIndex;type:varchar(12)" json:"numero_tramite,omitempty"` // asignado al presentar, inmutable; nulo en borradores
	UserID        uint            `gorm:"not null;index" json:"user_id"`                                // titular, inmutable
	Estado        EstadoSolicitud `gorm:"type:varchar(20);default:'borrador';index" json:"estado"`
	Version       int             `gorm:"not null;default:1" json:"version"` // lock optimista por registro

	// Datos del titular del comercio
	TitularTipo   TitularTipo `gorm:"type:varchar(10)" json:"titular_tipo"`
	TitularNombre string      `json:"titular_nombre"`
	TitularCuit   string      `gorm:"type:varchar(11)" json:"titular_cuit"`
	CuentaABL     string      `json:"cuenta_abl"`

	// Domicilio del comercio
	DomicilioCalle     string `json:"domicilio_calle"`
	DomicilioAltura    string `json:"domicilio_altura"`
	DomicilioPiso      string `json:"domicilio_piso,omitempty"`
	DomicilioDepto     string `json:"domicilio_depto,omitempty"`
	DomicilioLocal     string `json:"domicilio_local,omitempty"`
	DomicilioLocalidad string `json:"domicilio_localidad"`

	// Rubro y características del local
	RubroTipo            string  `json:"rubro_tipo"`
	RubroSubrubro        string  `json:"rubro_subrubro"`
	RubroDescripcion     string  `gorm:"type:text" json:"rubro_descripcion"`
	MetrosCuadrados      float64 `json:"metros_cuadrados"`
	TechosCielorasos     string  `json:"techos_cielorasos,omitempty"`
	PisosMaterial        string  `json:"pisos_material,omitempty"`
	TieneSanitarios      bool    `json:"tiene_sanitarios"`
	CantidadTrabajadores int     `gorm:"default:1" json:"cantidad_trabajadores"`

	// Documentación presentada (URLs en el bucket de documentos)
	DocumentosURLs pq.StringArray `gorm:"type:text[]" json:"documentos_urls"`

	// Decisión
	MotivoDecision   string     `gorm:"type:text" json:"motivo_decision,omitempty"` // sólo en rechazos
	FechaVencimiento *time.Time `json:"fecha_vencimiento,omitempty"`                // vigencia de la autorización precaria

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Solicitud) TableName() string {
	return "solicitudes"
}

// Numero devuelve el número de trámite, o vacío si todavía es borrador.
func (s *Solicitud) Numero() string {
	if s.NumeroTramite == nil {
		return ""
	}
	return *s.NumeroTramite
}

// EsTerminal indica si el estado no admite más transiciones.
func (e EstadoSolicitud) EsTerminal() bool {
	return e == EstadoAprobada || e == EstadoRechazada
}

// CamposFaltantes devuelve los campos obligatorios que impiden presentar la
// solicitud. Vacío cuando está completa.
func (s *Solicitud) CamposFaltantes() []string {
	var faltantes []string

	if s.TitularTipo != TitularFisica && s.TitularTipo != TitularJuridica {
		faltantes = append(faltantes, "titular_tipo")
	}
	if s.TitularNombre == "" {
		faltantes = append(faltantes, "titular_nombre")
	}
	if s.TitularCuit == "" {
		faltantes = append(faltantes, "titular_cuit")
	}
	if s.CuentaABL == "" {
		faltantes = append(faltantes, "cuenta_abl")
	}
	if s.DomicilioCalle == "" {
		faltantes = append(faltantes, "domicilio_calle")
	}
	if s.DomicilioAltura == "" {
		faltantes = append(faltantes, "domicilio_altura")
	}
	if s.DomicilioLocalidad == "" {
		faltantes = append(faltantes, "domicilio_localidad")
	}
	if s.RubroTipo == "" {
		faltantes = append(faltantes, "rubro_tipo")
	}
	if s.RubroSubrubro == "" {
		faltantes = append(faltantes, "rubro_subrubro")
	}
	if s.RubroDescripcion == "" {
		faltantes = append(faltantes, "rubro_descripcion")
	}
	if s.MetrosCuadrados <= 0 {
		faltantes = append(faltantes, "metros_cuadrados")
	}

	return faltantes
}
