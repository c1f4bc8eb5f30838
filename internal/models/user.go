package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleAdmin  = "admin"
	RoleLector = "lector"
)

// ValidRole reports whether role is one of the account roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleLector
}

// User is an authentication identity. The same person may hold one account
// per role.
type User struct {
	ID        uuid.UUID `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Nombre              string `json:"nombre"`
	Apellido            string `json:"apellido"`
	FechaNacimiento     string `json:"fechaNacimiento"`
	IDInstitucional     string `json:"idInstitucional"`
	Cedula              string `json:"cedula"`
	RolUniversidad      string `json:"rolUniversidad"`
	CorreoPersonal      string `json:"correoPersonal"`
	CorreoInstitucional string `json:"correoInstitucional,omitempty"`
	Role                string `json:"role"`

	// Internal only - never returned in JSON
	PasswordHash         string     `json:"-"`
	ResetPasswordToken   string     `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
}

// PreferredEmail is where account emails are delivered.
func (u *User) PreferredEmail() string {
	if u.CorreoInstitucional != "" {
		return u.CorreoInstitucional
	}
	return u.CorreoPersonal
}
