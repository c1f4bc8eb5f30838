package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/unicatolica/registro-huellas/internal/models"
)

// PostgresUsers is the UserStore backed by the usuarios table.
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

const userColumns = `id, created_at, updated_at, nombre, apellido, fecha_nacimiento,
	id_institucional, cedula, rol_universidad, correo_personal,
	COALESCE(correo_institucional, ''), role, password_hash,
	COALESCE(reset_password_token, ''), reset_password_expires`

// constraintFields maps unique constraint names to the field they guard.
var constraintFields = map[string]string{
	"usuarios_cedula_role_key":               "cedula",
	"usuarios_correo_personal_role_key":      "correoPersonal",
	"usuarios_correo_institucional_role_key": "correoInstitucional",
}

func (s *PostgresUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usuarios (id, created_at, updated_at, nombre, apellido, fecha_nacimiento,
			id_institucional, cedula, rol_universidad, correo_personal, correo_institucional,
			role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
	`, u.ID, u.CreatedAt, u.UpdatedAt, u.Nombre, u.Apellido, u.FechaNacimiento,
		u.IDInstitucional, u.Cedula, u.RolUniversidad, u.CorreoPersonal, u.CorreoInstitucional,
		u.Role, u.PasswordHash)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if field, ok := constraintFields[pqErr.Constraint]; ok {
			return &DuplicateError{Field: field}
		}
		return &DuplicateError{Field: "registro"}
	}
	return err
}

func (s *PostgresUsers) FindConflict(ctx context.Context, u *models.User) (*models.User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+` FROM usuarios
		WHERE role = $1 AND (cedula = $2 OR correo_personal = $3
			OR ($4 <> '' AND correo_institucional = $4))
		LIMIT 1
	`, u.Role, u.Cedula, u.CorreoPersonal, u.CorreoInstitucional)
}

func (s *PostgresUsers) FindByEmailRole(ctx context.Context, correo, role string) (*models.User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+` FROM usuarios
		WHERE correo_institucional = $1 AND role = $2
	`, correo, role)
}

func (s *PostgresUsers) FindByEmail(ctx context.Context, correo string) (*models.User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+` FROM usuarios
		WHERE correo_institucional = $1
		ORDER BY created_at
		LIMIT 1
	`, correo)
}

func (s *PostgresUsers) FindByResetToken(ctx context.Context, correo, token string) (*models.User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+` FROM usuarios
		WHERE reset_password_token = $1 AND ($2 = '' OR correo_institucional = $2)
		LIMIT 1
	`, token, correo)
}

func (s *PostgresUsers) List(ctx context.Context, role string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM usuarios
		WHERE $1 = '' OR role = $1
		ORDER BY created_at
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *PostgresUsers) SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	return s.exec(ctx, `
		UPDATE usuarios SET reset_password_token = $1, reset_password_expires = $2, updated_at = NOW()
		WHERE id = $3
	`, token, expires, id)
}

func (s *PostgresUsers) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return s.exec(ctx, `
		UPDATE usuarios SET password_hash = $1, reset_password_token = NULL,
			reset_password_expires = NULL, updated_at = NOW()
		WHERE id = $2
	`, hash, id)
}

func (s *PostgresUsers) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUsers) queryOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var expires sql.NullTime
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Nombre, &u.Apellido, &u.FechaNacimiento,
		&u.IDInstitucional, &u.Cedula, &u.RolUniversidad, &u.CorreoPersonal,
		&u.CorreoInstitucional, &u.Role, &u.PasswordHash, &u.ResetPasswordToken, &expires)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		u.ResetPasswordExpires = &t
	}
	return &u, nil
}
