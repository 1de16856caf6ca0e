// Package render produce el documento del certificado de habilitación.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	apperrors "github.com/habilitaciones-ar/afap-backend/internal/errors"
)

// CertificadoData es todo lo que aparece impreso en el certificado.
type CertificadoData struct {
	NumeroTramite      string
	Serial             string
	CodigoVerificacion string
	TitularNombre      string
	TitularCuit        string
	DomicilioCompleto  string
	RubroDescripcion   string
	MetrosCuadrados    float64
	FechaEmision       time.Time
	FechaVencimiento   time.Time
	VerificationURL    string // apunta al endpoint público de verificación
}

// Renderer genera el cuerpo del certificado. La implementación por defecto
// emite HTML imprimible; un renderer PDF puede reemplazarla sin tocar el
// servicio de certificados.
type Renderer interface {
	Render(data CertificadoData) (content []byte, contentType string, err error)
}

const certTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Certificado de Habilitación {{.NumeroTramite}}</title>
<style>
body { font-family: Georgia, serif; margin: 3em; color: #1a1a1a; }
.marco { border: 3px double #2c4a6e; padding: 2.5em; position: relative; }
.marca-agua { position: absolute; top: 40%; left: 10%; font-size: 3em; color: rgba(44,74,110,0.08); transform: rotate(-25deg); }
h1 { text-align: center; color: #2c4a6e; }
.campo { margin: 0.4em 0; }
.campo b { display: inline-block; min-width: 14em; }
.codigo { margin-top: 2em; font-family: monospace; font-size: 1.1em; }
.legal { margin-top: 2em; font-size: 0.8em; color: #555; }
</style>
</head>
<body>
<div class="marco">
<div class="marca-agua">AUTORIZACIÓN PRECARIA</div>
<h1>Certificado de Habilitación Comercial</h1>
<p style="text-align:center">Trámite N° <b>{{.NumeroTramite}}</b> — Serie {{.Serial}}</p>
<div class="campo"><b>Titular:</b> {{.TitularNombre}}</div>
<div class="campo"><b>CUIT/CUIL:</b> {{.TitularCuit}}</div>
<div class="campo"><b>Domicilio del comercio:</b> {{.DomicilioCompleto}}</div>
<div class="campo"><b>Rubro habilitado:</b> {{.RubroDescripcion}}</div>
<div class="campo"><b>Superficie habilitada:</b> {{printf "%.1f" .MetrosCuadrados}} m²</div>
<div class="campo"><b>Fecha de emisión:</b> {{.FechaEmision.Format "02/01/2006"}}</div>
<div class="campo"><b>Válido hasta:</b> {{.FechaVencimiento.Format "02/01/2006"}}</div>
<div class="codigo">Código de verificación: {{.CodigoVerificacion}}</div>
<div class="campo"><b>Verificar autenticidad en:</b> {{.VerificationURL}}</div>
<p class="legal">La presente autorización precaria de funcionamiento se emite
conforme a la normativa vigente de habilitaciones comerciales. Reviste carácter
provisorio y queda sujeta a las inspecciones posteriores que la autoridad de
aplicación disponga. Debe exhibirse en el local en lugar visible.</p>
</div>
</body>
</html>
`

type htmlRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer construye el renderer HTML por defecto.
func NewHTMLRenderer() Renderer {
	return &htmlRenderer{
		tmpl: template.Must(template.New("certificado").Parse(certTemplate)),
	}
}

func (r *htmlRenderer) Render(data CertificadoData) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", apperrors.Internal(apperrors.CertificadoRenderError,
			"No se pudo generar el certificado").Wrap(fmt.Errorf("render certificado: %w", err))
	}
	return buf.Bytes(), "text/html; charset=utf-8", nil
}
