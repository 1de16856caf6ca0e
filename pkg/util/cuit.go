package util

import (
	"strings"
)

// pesos del dígito verificador de CUIT/CUIL (algoritmo módulo 11 de AFIP)
var cuitPesos = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// NormalizeCuit quita guiones y espacios: "20-12345678-9" -> "20123456789".
func NormalizeCuit(cuit string) string {
	var b strings.Builder
	for _, r := range cuit {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCuit verifica largo, prefijo y dígito verificador de un CUIT/CUIL.
// Acepta el número con o sin guiones.
func ValidateCuit(cuit string) bool {
	n := NormalizeCuit(cuit)
	if len(n) != 11 {
		return false
	}

	// prefijos válidos: 20, 23, 24, 27 (personas), 30, 33, 34 (sociedades)
	switch n[:2] {
	case "20", "23", "24", "27", "30", "33", "34":
	default:
		return false
	}

	suma := 0
	for i := 0; i < 10; i++ {
		suma += int(n[i]-'0') * cuitPesos[i]
	}

	resto := suma % 11
	verificador := 11 - resto
	switch verificador {
	case 11:
		verificador = 0
	case 10:
		// 10 no es un dígito válido; esos CUIT no existen
		return false
	}

	return int(n[10]-'0') == verificador
}
