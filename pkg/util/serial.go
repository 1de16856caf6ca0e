package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateCertSerial genera el serial del certificado: hexadecimal aleatorio
// con prefijo fijo, ej "C-9F3A61D2B4E071C6". Formato deliberadamente sin
// relación con el número de trámite para que no se pueda inferir uno a partir
// del otro.
func GenerateCertSerial() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate serial: %w", err)
	}
	return "C-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// GenerateVerificationCode arma el código impreso en el certificado,
// ej "VER-2025-000123-202508251430".
func GenerateVerificationCode(numeroTramite string, emitido time.Time) string {
	return fmt.Sprintf("VER-%s-%s", numeroTramite, emitido.Format("200601021504"))
}
