package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // rol del usuario dentro del sistema

const (
	RoleCiudadano     UserRole = "ciudadano"     // solicitante de habilitaciones
	RoleInspector     UserRole = "inspector"     // realiza inspecciones en sitio
	RoleAdministrador UserRole = "administrador" // decide aprobaciones y rechazos
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`               // email (único)
	CuitCuil     string         `gorm:"uniqueIndex;not null;type:varchar(11)" json:"cuit_cuil"` // CUIT/CUIL sin guiones (único)
	PasswordHash string         `gorm:"not null" json:"-"`
	Nombre       string         `gorm:"not null" json:"nombre"`
	Apellido     string         `gorm:"not null" json:"apellido"`
	Telefono     string         `json:"telefono"`
	Role         UserRole       `gorm:"type:varchar(20);default:'ciudadano'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// NombreCompleto para notificaciones y certificados.
func (u *User) NombreCompleto() string {
	return u.Nombre + " " + u.Apellido
}
