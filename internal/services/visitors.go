package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

// VisitorInput is the registration form of a temporary visitor.
type VisitorInput struct {
	Nombre        string `json:"nombre"`
	Apellido      string `json:"apellido"`
	Cedula        string `json:"cedula"`
	RazonVisita   string `json:"razonVisita"`
	NumeroTarjeta string `json:"numeroTarjeta"`
}

// Visitors registers visitors and removes them once their validity ends.
type Visitors struct {
	persons repository.PersonStore
	clock   clock.Clock
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewVisitors(persons repository.PersonStore, clk clock.Clock, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *Visitors {
	if loc == nil {
		loc = time.UTC
	}
	return &Visitors{persons: persons, clock: clk, loc: loc, metrics: m, logger: logger}
}

// Register stores a visitor valid for one calendar month.
func (v *Visitors) Register(ctx context.Context, in VisitorInput) (*models.Person, error) {
	fields := []*string{&in.Nombre, &in.Apellido, &in.Cedula, &in.RazonVisita, &in.NumeroTarjeta}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			return nil, validationError("❌ Faltan datos requeridos")
		}
	}

	now := v.clock.Now().In(v.loc)
	expires := now.AddDate(0, 1, 0)
	p := &models.Person{
		Nombre:          in.Nombre,
		Apellido:        in.Apellido,
		Cedula:          in.Cedula,
		RazonVisita:     in.RazonVisita,
		NumeroTarjeta:   in.NumeroTarjeta,
		RolUniversidad:  models.RoleVisitante,
		FechaExpiracion: &expires,
		Fecha:           now.Format(dateLayout),
		Hora:            now.Format(timeLayout),
	}

	err := v.persons.Insert(ctx, p)
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return nil, conflictError("❌ Ya existe una persona con esta tarjeta", err)
	}
	if err != nil {
		return nil, storageError("❌ Error al registrar visitante", err)
	}
	return p, nil
}

// SweepExpired deletes every visitor whose validity ended before now.
func (v *Visitors) SweepExpired(ctx context.Context) (int64, error) {
	n, err := v.persons.DeleteExpiredVisitors(ctx, v.clock.Now())
	if err != nil {
		return 0, err
	}
	v.metrics.VisitorsSwept.Add(float64(n))
	return n, nil
}
