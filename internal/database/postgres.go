package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the account database and makes sure its tables exist.
func ConnectPostgres(ctx context.Context, postgresURI string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("✅ Connected to PostgreSQL")

	if err := InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("✅ PostgreSQL tables initialized")
	return db, nil
}

// InitPostgresTables creates the account tables if they don't exist.
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS usuarios (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			nombre VARCHAR(255) NOT NULL,
			apellido VARCHAR(255) NOT NULL,
			fecha_nacimiento VARCHAR(50) NOT NULL,
			id_institucional VARCHAR(100) NOT NULL,
			cedula VARCHAR(50) NOT NULL,
			rol_universidad VARCHAR(100) NOT NULL,
			correo_personal VARCHAR(255) NOT NULL,
			correo_institucional VARCHAR(255),
			role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'lector')),
			password_hash VARCHAR(255) NOT NULL,
			reset_password_token VARCHAR(255),
			reset_password_expires TIMESTAMP,
			CONSTRAINT usuarios_cedula_role_key UNIQUE (cedula, role),
			CONSTRAINT usuarios_correo_personal_role_key UNIQUE (correo_personal, role),
			CONSTRAINT usuarios_correo_institucional_role_key UNIQUE (correo_institucional, role)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_usuarios_role ON usuarios(role)`,
		`CREATE INDEX IF NOT EXISTS idx_usuarios_reset_token ON usuarios(reset_password_token)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
