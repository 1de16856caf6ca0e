package errors

// Códigos de error estables.
// Formato: CATEGORIA_DETALLE. El frontend mapea mensajes a partir del código.

const (
	// ==================== Autenticación (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login requerido
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // CUIT/CUIL o contraseña incorrectos
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // token vencido
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // token inválido
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // token revocado (logout)
	AuthEmailExists        = "AUTH_EMAIL_EXISTS"        // email duplicado
	AuthCuitExists         = "AUTH_CUIT_EXISTS"         // CUIT/CUIL duplicado
	AuthCuitInvalid        = "AUTH_CUIT_INVALID"        // CUIT/CUIL con dígito verificador inválido
	AuthUserNotFound       = "AUTH_USER_NOT_FOUND"

	// ==================== Autorización (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // sin permiso para la operación
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // sin información de rol
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // sólo administradores
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"     // sólo el titular del trámite

	// ==================== Validación (VALIDATION_) ====================
	ValidationInvalidInput   = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID      = "VALIDATION_INVALID_ID"
	ValidationRequired       = "VALIDATION_REQUIRED"
	ValidationMotivoRequired = "VALIDATION_MOTIVO_REQUIRED" // rechazo sin motivo

	// ==================== Solicitud (SOLICITUD_) ====================
	SolicitudNotFound            = "SOLICITUD_NOT_FOUND"
	SolicitudEstadoInvalido      = "SOLICITUD_ESTADO_INVALIDO"      // transición ilegal
	SolicitudEstadoTerminal      = "SOLICITUD_ESTADO_TERMINAL"      // aprobada/rechazada no admiten cambios
	SolicitudVersionConflict     = "SOLICITUD_VERSION_CONFLICT"     // modificación concurrente
	SolicitudSinInspeccion       = "SOLICITUD_SIN_INSPECCION"       // falta inspección aprobada
	SolicitudInspeccionPendiente = "SOLICITUD_INSPECCION_PENDIENTE" // re-inspección sin resultado bloquea la decisión
	SolicitudCamposFaltantes     = "SOLICITUD_CAMPOS_FALTANTES"     // datos obligatorios incompletos

	// ==================== Inspección (INSPECCION_) ====================
	InspeccionNotFound       = "INSPECCION_NOT_FOUND"
	InspeccionPendienteDup   = "INSPECCION_PENDIENTE_DUP"   // ya existe una inspección pendiente
	InspeccionResultadoFinal = "INSPECCION_RESULTADO_FINAL" // resultado ya registrado, inmutable
	InspeccionEstadoInvalido = "INSPECCION_ESTADO_INVALIDO" // la solicitud no admite inspecciones

	// ==================== Certificado (CERTIFICADO_) ====================
	CertificadoNotFound    = "CERTIFICADO_NOT_FOUND"
	CertificadoNoAprobado  = "CERTIFICADO_NO_APROBADO" // la solicitud no está aprobada
	CertificadoSerialDup   = "CERTIFICADO_SERIAL_DUP"
	CertificadoRenderError = "CERTIFICADO_RENDER_ERROR"

	// ==================== Recursos (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Notificaciones (NOTIFICATION_) ====================
	NotificationNotFound = "NOTIFICATION_NOT_FOUND"

	// ==================== Carga de archivos (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internos (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStoreTimeout  = "INTERNAL_STORE_TIMEOUT" // base de datos no respondió a tiempo
)
