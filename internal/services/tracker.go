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
	"github.com/unicatolica/registro-huellas/internal/notify"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"

	// a lost insert race means another scan opened the session; one more
	// pass closes it
	scanAttempts = 2
)

// AccessPublisher receives every registered access for live dashboards.
type AccessPublisher interface {
	PublishAccess(ctx context.Context, ev AccessEvent) error
}

// PersonFinder resolves a card to its person. PersonCache and the plain
// store both satisfy it.
type PersonFinder interface {
	FindByCard(ctx context.Context, card string) (*models.Person, error)
}

// ScanResult is the outcome of one card scan.
type ScanResult struct {
	Tipo   string         `json:"tipo"`
	Acceso *models.Acceso `json:"acceso"`
}

// Tracker turns card scans into entry/exit records.
type Tracker struct {
	persons   PersonFinder
	accesses  repository.AccessStore
	clock     clock.Clock
	loc       *time.Location
	notifier  notify.Dispatcher
	publisher AccessPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type TrackerDeps struct {
	Persons   PersonFinder
	Accesses  repository.AccessStore
	Clock     clock.Clock
	Location  *time.Location
	Notifier  notify.Dispatcher
	Publisher AccessPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func NewTracker(d TrackerDeps) *Tracker {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		persons:   d.Persons,
		accesses:  d.Accesses,
		clock:     d.Clock,
		loc:       loc,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// RegisterScan closes the person's open session for today if there is one,
// otherwise opens a new one.
func (t *Tracker) RegisterScan(ctx context.Context, card string) (*ScanResult, error) {
	card = strings.TrimSpace(card)
	if card == "" {
		return nil, validationError("❌ Se requiere carnet o número de tarjeta")
	}

	person, err := t.persons.FindByCard(ctx, card)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("❌ Persona no encontrada")
	}
	if err != nil {
		return nil, storageError("❌ Error al registrar acceso", err)
	}

	now := t.clock.Now().In(t.loc)
	fecha := now.Format(dateLayout)
	hora := now.Format(timeLayout)
	key := repository.SessionKey{PersonaID: person.ID, Fecha: fecha}

	var result *ScanResult
	for attempt := 0; attempt < scanAttempts && result == nil; attempt++ {
		result, err = t.toggle(ctx, person, key, hora)
		if errors.Is(err, repository.ErrDuplicate) {
			t.logger.Warn("concurrent scan opened the session first, retrying", "card", card, "fecha", fecha)
			continue
		}
		if err != nil {
			return nil, storageError("❌ Error al registrar acceso", err)
		}
	}
	if result == nil {
		return nil, storageError("❌ Error al registrar acceso", err)
	}

	t.metrics.Scans.WithLabelValues(result.Tipo).Inc()
	t.afterScan(ctx, person, result)
	return result, nil
}

func (t *Tracker) toggle(ctx context.Context, person *models.Person, key repository.SessionKey, hora string) (*ScanResult, error) {
	closed, err := t.accesses.CloseOpen(ctx, key, hora)
	if err == nil {
		return &ScanResult{Tipo: models.AccessSalida, Acceso: closed}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	acceso := &models.Acceso{
		PersonaID:      person.ID,
		Nombre:         person.FullName(),
		RolUniversidad: person.RolUniversidad,
		Carnet:         person.Carnet,
		NumeroTarjeta:  person.NumeroTarjeta,
		Fecha:          key.Fecha,
		HoraEntrada:    hora,
		Abierto:        true,
	}
	if err := t.accesses.Insert(ctx, acceso); err != nil {
		return nil, err
	}
	return &ScanResult{Tipo: models.AccessEntrada, Acceso: acceso}, nil
}

// afterScan runs the side effects of a registered scan. Their failures are
// logged and never reach the caller.
func (t *Tracker) afterScan(ctx context.Context, person *models.Person, r *ScanResult) {
	hora := r.Acceso.HoraEntrada
	if r.Tipo == models.AccessSalida {
		hora = r.Acceso.HoraSalida
	}

	notice := notify.AccessNotice{
		To:     person.ContactEmail(),
		Tipo:   r.Tipo,
		Nombre: r.Acceso.Nombre,
		Fecha:  r.Acceso.Fecha,
		Hora:   hora,
	}
	if err := t.notifier.NotifyAccess(ctx, notice); err != nil {
		t.metrics.NotificationsFailed.WithLabelValues("access").Inc()
		t.logger.Error("access notification failed", "card", r.Acceso.Carnet, "error", err)
	}

	if t.publisher != nil {
		ev := AccessEvent{Tipo: r.Tipo, Acceso: *r.Acceso}
		if err := t.publisher.PublishAccess(ctx, ev); err != nil {
			t.logger.Error("access feed publish failed", "error", err)
		}
	}
}
