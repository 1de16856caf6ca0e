package model

import "fmt"

// TramiteCounter es el contador secuencial de números de trámite, con alcance
// por año calendario. La fila del año se toma con lock dentro de la misma
// transacción que presenta la solicitud, así la asignación no colisiona bajo
// concurrencia.
type TramiteCounter struct {
	Year       int `gorm:"primarykey" json:"year"`
	LastNumber int `gorm:"not null;default:0" json:"last_number"`
}

func (TramiteCounter) TableName() string {
	return "tramite_counters"
}

// FormatNumeroTramite arma el número público, ej: 2025-000123.
func FormatNumeroTramite(year, n int) string {
	return fmt.Sprintf("%d-%06d", year, n)
}
