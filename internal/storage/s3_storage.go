// Package storage maneja la documentación del trámite en S3. El ciudadano sube
// escaneos y fotos directo al bucket con una URL prefirmada y después adjunta
// la URL resultante al borrador de su solicitud.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	documentosFolder = "documentos"
	presignExpiry    = 15 * time.Minute
)

// ErrTipoNoPermitido indica un content type fuera de los aceptados para la
// documentación del trámite.
var ErrTipoNoPermitido = errors.New("tipo de documento no permitido")

// Sólo escaneos y fotos: PDF e imágenes.
var documentoContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
}

type DocumentoStorage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// PresignedUpload es la autorización de carga que recibe el cliente.
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

// NewDocumentoStorage arma el cliente S3. Sin credenciales explícitas usa la
// cadena por defecto del SDK (variables de entorno, ~/.aws, rol IAM).
func NewDocumentoStorage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *DocumentoStorage {
	var cfg aws.Config
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		var err error
		cfg, err = awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
		if err != nil {
			cfg = aws.Config{Region: region}
		}
	}

	return &DocumentoStorage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// PresignDocumento valida el tipo y devuelve una URL de carga directa al
// bucket, con una clave única bajo la carpeta de documentos.
func (s *DocumentoStorage) PresignDocumento(ctx context.Context, filename, contentType string) (*PresignedUpload, error) {
	if !documentoContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrTipoNoPermitido, contentType)
	}

	key := fmt.Sprintf("%s/%s%s", documentosFolder, uuid.New().String(), filepath.Ext(filename))

	presignClient := s3.NewPresignClient(s.client)
	presigned, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign documento upload: %w", err)
	}

	return &PresignedUpload{
		UploadURL: presigned.URL,
		FileURL:   s.fileURL(key),
		Key:       key,
	}, nil
}

// fileURL es la URL definitiva del documento: CloudFront/dominio propio si hay
// baseURL, la URL directa de S3 si no.
func (s *DocumentoStorage) fileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}
