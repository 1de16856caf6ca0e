package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignDocumento(t *testing.T) {
	s := NewDocumentoStorage("us-east-1", "afap-documentos", "test-key", "test-secret", "")

	upload, err := s.PresignDocumento(context.Background(), "escritura.pdf", "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.Key, "documentos/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".pdf"))
	assert.Contains(t, upload.UploadURL, "afap-documentos")
	assert.Contains(t, upload.FileURL, upload.Key)

	// cada carga recibe una clave distinta
	otro, err := s.PresignDocumento(context.Background(), "escritura.pdf", "application/pdf")
	require.NoError(t, err)
	assert.NotEqual(t, upload.Key, otro.Key)
}

func TestPresignDocumento_TipoNoPermitido(t *testing.T) {
	s := NewDocumentoStorage("us-east-1", "afap-documentos", "test-key", "test-secret", "")

	_, err := s.PresignDocumento(context.Background(), "instalador.exe", "application/x-msdownload")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTipoNoPermitido)
}

func TestPresignDocumento_FileURLConDominioPropio(t *testing.T) {
	s := NewDocumentoStorage("us-east-1", "afap-documentos", "test-key", "test-secret", "https://docs.afap.gob.ar")

	upload, err := s.PresignDocumento(context.Background(), "plano.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.FileURL, "https://docs.afap.gob.ar/documentos/"))
}
