package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/unicatolica/registro-huellas/internal/auth"
	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/notify"
	"github.com/unicatolica/registro-huellas/internal/repository"
	"github.com/unicatolica/registro-huellas/pkg/utils"
)

const (
	resetTokenBytes = 20
	resetTokenTTL   = time.Hour
)

type RegisterInput struct {
	Nombre              string `json:"nombre"`
	Apellido            string `json:"apellido"`
	FechaNacimiento     string `json:"fechaNacimiento"`
	IDInstitucional     string `json:"idInstitucional"`
	Cedula              string `json:"cedula"`
	RolUniversidad      string `json:"rolUniversidad"`
	CorreoPersonal      string `json:"correoPersonal"`
	CorreoInstitucional string `json:"correoInstitucional"`
	Password            string `json:"password"`
	Role                string `json:"role"`
}

type LoginResult struct {
	Message  string `json:"message"`
	Role     string `json:"role"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Token    string `json:"token"`
}

// Accounts manages operator accounts (admins and readers).
type Accounts struct {
	users       repository.UserStore
	issuer      *auth.Issuer
	notifier    notify.Dispatcher
	clock       clock.Clock
	frontendURL string
	logger      *slog.Logger
}

type AccountsDeps struct {
	Users       repository.UserStore
	Issuer      *auth.Issuer
	Notifier    notify.Dispatcher
	Clock       clock.Clock
	FrontendURL string
	Logger      *slog.Logger
}

func NewAccounts(d AccountsDeps) *Accounts {
	return &Accounts{
		users:       d.Users,
		issuer:      d.Issuer,
		notifier:    d.Notifier,
		clock:       d.Clock,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		logger:      d.Logger,
	}
}

func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	required := []*string{&in.Nombre, &in.Apellido, &in.FechaNacimiento, &in.IDInstitucional,
		&in.Cedula, &in.RolUniversidad, &in.CorreoPersonal, &in.Password, &in.Role}
	for _, f := range required {
		if f != &in.Password {
			*f = strings.TrimSpace(*f)
		}
		if *f == "" {
			return nil, validationError("❌ Faltan datos")
		}
	}
	in.CorreoInstitucional = strings.TrimSpace(in.CorreoInstitucional)
	if !models.ValidRole(in.Role) {
		return nil, validationError("❌ Rol inválido")
	}

	u := &models.User{
		Nombre:              in.Nombre,
		Apellido:            in.Apellido,
		FechaNacimiento:     in.FechaNacimiento,
		IDInstitucional:     in.IDInstitucional,
		Cedula:              in.Cedula,
		RolUniversidad:      in.RolUniversidad,
		CorreoPersonal:      in.CorreoPersonal,
		CorreoInstitucional: in.CorreoInstitucional,
		Role:                in.Role,
	}

	existing, err := s.users.FindConflict(ctx, u)
	if err == nil {
		return nil, duplicateAccountError(conflictingField(u, existing), u.Role, nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageError("❌ Error en el registro", err)
	}

	u.PasswordHash, err = utils.HashPassword(in.Password)
	if err != nil {
		return nil, storageError("❌ Error en el registro", err)
	}

	err = s.users.Create(ctx, u)
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return nil, duplicateAccountError(dup.Field, u.Role, err)
	}
	if err != nil {
		return nil, storageError("❌ Error en el registro", err)
	}

	if err := s.notifier.NotifyAccountWelcome(ctx, u); err != nil {
		s.logger.Error("account welcome notification failed", "user_id", u.ID, "error", err)
	}
	return u, nil
}

func conflictingField(u, existing *models.User) string {
	switch {
	case existing.Cedula == u.Cedula:
		return "cedula"
	case existing.CorreoPersonal == u.CorreoPersonal:
		return "correoPersonal"
	default:
		return "correoInstitucional"
	}
}

func duplicateAccountError(field, role string, cause error) *Error {
	var what string
	switch field {
	case "cedula":
		what = "esta cédula"
	case "correoPersonal":
		what = "este correo personal"
	case "correoInstitucional":
		what = "este correo institucional"
	default:
		what = "estos datos"
	}
	return conflictError(fmt.Sprintf("❌ Ya existe un usuario con %s como %s", what, role), cause)
}

// List returns accounts, all of them when role is empty.
func (s *Accounts) List(ctx context.Context, role string) ([]models.User, error) {
	if role != "" && !models.ValidRole(role) {
		return nil, validationError("❌ Rol inválido")
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, storageError("❌ Error al obtener los usuarios", err)
	}
	return users, nil
}

func (s *Accounts) Login(ctx context.Context, correo, password, role string) (*LoginResult, error) {
	correo = strings.TrimSpace(correo)
	if correo == "" || password == "" || role == "" {
		return nil, validationError("❌ Faltan datos para iniciar sesión")
	}

	u, err := s.users.FindByEmailRole(ctx, correo, role)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedError("❌ Usuario no encontrado")
	}
	if err != nil {
		return nil, storageError("❌ Error en el inicio de sesión", err)
	}

	ok, err := utils.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, storageError("❌ Error en el inicio de sesión", err)
	}
	if !ok {
		return nil, unauthorizedError("❌ Contraseña incorrecta")
	}

	token, err := s.issuer.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, storageError("❌ Error en el inicio de sesión", err)
	}
	return &LoginResult{
		Message:  "✅ Inicio de sesión exitoso",
		Role:     u.Role,
		Nombre:   u.Nombre,
		Apellido: u.Apellido,
		Token:    token,
	}, nil
}

// VerifyReaderPassword checks the password of a reader account. A wrong
// password yields false without error.
func (s *Accounts) VerifyReaderPassword(ctx context.Context, correo, password string) (bool, error) {
	correo = strings.TrimSpace(correo)
	if correo == "" || password == "" {
		return false, validationError("❌ Faltan datos requeridos")
	}
	u, err := s.users.FindByEmailRole(ctx, correo, models.RoleLector)
	if errors.Is(err, repository.ErrNotFound) {
		return false, notFoundError("❌ Lector no encontrado")
	}
	if err != nil {
		return false, storageError("❌ Error al verificar contraseña", err)
	}
	ok, err := utils.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return false, storageError("❌ Error al verificar contraseña", err)
	}
	return ok, nil
}

// ForgotPassword stores a one-hour reset token and emails the reset link.
func (s *Accounts) ForgotPassword(ctx context.Context, correo string) error {
	correo = strings.TrimSpace(correo)
	if correo == "" {
		return validationError("❌ Se requiere el correo institucional")
	}
	u, err := s.users.FindByEmail(ctx, correo)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("Usuario no encontrado")
	}
	if err != nil {
		return storageError("Error al procesar la solicitud", err)
	}

	token, err := utils.RandomToken(resetTokenBytes)
	if err != nil {
		return storageError("Error al procesar la solicitud", err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, token, s.clock.Now().Add(resetTokenTTL)); err != nil {
		return storageError("Error al procesar la solicitud", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, u, s.ResetURL(token, u.CorreoInstitucional)); err != nil {
		s.logger.Error("password reset notification failed", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetURL builds the frontend link carried by the recovery email.
func (s *Accounts) ResetURL(token, correo string) string {
	return fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		s.frontendURL, url.QueryEscape(token), url.QueryEscape(correo))
}

func (s *Accounts) VerifyResetToken(ctx context.Context, correo, token string) error {
	_, err := s.validResetAccount(ctx, correo, token)
	return err
}

func (s *Accounts) ResetPassword(ctx context.Context, correo, token, newPassword string) error {
	if newPassword == "" {
		return validationError("❌ Se requiere la nueva contraseña")
	}
	u, err := s.validResetAccount(ctx, correo, token)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return storageError("Error al restablecer la contraseña", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return storageError("Error al restablecer la contraseña", err)
	}
	return nil
}

func (s *Accounts) validResetAccount(ctx context.Context, correo, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, validationError("Token inválido o usuario no encontrado")
	}
	u, err := s.users.FindByResetToken(ctx, strings.TrimSpace(correo), token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validationError("Token inválido o usuario no encontrado")
	}
	if err != nil {
		return nil, storageError("Error al verificar el token", err)
	}
	if u.ResetPasswordExpires == nil || u.ResetPasswordExpires.Before(s.clock.Now()) {
		return nil, validationError("El token ha expirado. Solicita uno nuevo.")
	}
	return u, nil
}
