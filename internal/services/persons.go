package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/notify"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

// requiredPersonFields must be non-empty on registration, checked in order.
var requiredPersonFields = []string{
	"nombre", "apellido", "fechaNacimiento", "idInstitucional",
	"cedula", "rolUniversidad", "correoPersonal", "carnet",
}

// Persons maintains the person directory.
type Persons struct {
	store    repository.PersonStore
	cache    *PersonCache
	photos   PhotoUploader
	notifier notify.Dispatcher
	clock    clock.Clock
	loc      *time.Location
	logger   *slog.Logger
}

type PersonsDeps struct {
	Store    repository.PersonStore
	Cache    *PersonCache  // optional
	Photos   PhotoUploader // optional; without it photos are kept in the record
	Notifier notify.Dispatcher
	Clock    clock.Clock
	Location *time.Location
	Logger   *slog.Logger
}

func NewPersons(d PersonsDeps) *Persons {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Persons{
		store:    d.Store,
		cache:    d.Cache,
		photos:   d.Photos,
		notifier: d.Notifier,
		clock:    d.Clock,
		loc:      loc,
		logger:   d.Logger,
	}
}

// Finder returns the card lookup used by scans, cached when Redis is wired.
func (s *Persons) Finder() PersonFinder {
	if s.cache != nil {
		return s.cache
	}
	return s.store
}

// Save registers a person. Unknown fields are ignored.
func (s *Persons) Save(ctx context.Context, fields map[string]string, photo *Photo) (*models.Person, error) {
	p := &models.Person{}
	setFields(p, fields)
	for _, name := range requiredPersonFields {
		if v, _ := p.Lookup(name); v == "" {
			return nil, validationError(fmt.Sprintf("El campo %s es requerido", name))
		}
	}

	now := s.clock.Now().In(s.loc)
	p.Fecha = now.Format(dateLayout)
	p.Hora = now.Format(timeLayout)

	if photo != nil {
		if err := s.attachPhoto(ctx, photo, &p.Imagen, &p.ImagenURL); err != nil {
			return nil, err
		}
		p.ImagenMimeType = photo.MimeType
	}

	if err := s.store.Insert(ctx, p); err != nil {
		return nil, personWriteError(err, "Error al guardar los datos")
	}

	if err := s.notifier.NotifyPersonWelcome(ctx, p); err != nil {
		s.logger.Error("person welcome notification failed", "carnet", p.Carnet, "error", err)
	}
	return p, nil
}

func (s *Persons) List(ctx context.Context) ([]models.Person, error) {
	persons, err := s.store.List(ctx)
	if err != nil {
		return nil, storageError("❌ Error al obtener los datos", err)
	}
	return persons, nil
}

// Update edits the allow-listed fields of a record and optionally its photo.
func (s *Persons) Update(ctx context.Context, id string, fields map[string]string, photo *Photo) (*models.Person, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFoundError("❌ Registro no encontrado")
	}
	before, err := s.store.Get(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("❌ Registro no encontrado")
	}
	if err != nil {
		return nil, storageError("❌ Error al actualizar el registro", err)
	}

	upd := repository.PersonUpdate{Fields: map[string]string{}}
	allowed := before.TextFields()
	for k, v := range fields {
		if _, ok := allowed[k]; ok {
			upd.Fields[k] = v
		}
	}
	if photo != nil {
		if err := s.attachPhoto(ctx, photo, &upd.Imagen, &upd.ImagenURL); err != nil {
			return nil, err
		}
		upd.ImagenMimeType = photo.MimeType
	}

	after, err := s.store.Update(ctx, oid, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("❌ Registro no encontrado")
	}
	if err != nil {
		return nil, personWriteError(err, "❌ Error al actualizar el registro")
	}

	s.invalidate(ctx, before)
	s.invalidate(ctx, after)
	return after, nil
}

func (s *Persons) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFoundError("❌ Registro no encontrado")
	}
	deleted, err := s.store.Delete(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundError("❌ Registro no encontrado")
	}
	if err != nil {
		return storageError("❌ Error al eliminar el registro", err)
	}
	s.invalidate(ctx, deleted)
	return nil
}

// Image returns the record owning a photo. Either ImagenURL or Imagen is set.
func (s *Persons) Image(ctx context.Context, id string) (*models.Person, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFoundError("Imagen no encontrada")
	}
	p, err := s.store.Get(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Imagen no encontrada")
	}
	if err != nil {
		return nil, storageError("Error al obtener la imagen", err)
	}
	if p.ImagenURL == "" && len(p.Imagen) == 0 {
		return nil, notFoundError("Imagen no encontrada")
	}
	return p, nil
}

// FindByCard looks a person up by carnet or visitor card number.
func (s *Persons) FindByCard(ctx context.Context, card string) (*models.Person, error) {
	card = strings.TrimSpace(card)
	if card == "" {
		return nil, validationError("❌ El número de carnet es requerido")
	}
	p, err := s.Finder().FindByCard(ctx, card)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("❌ Persona no encontrada")
	}
	if err != nil {
		return nil, storageError("❌ Error al buscar en la base de datos", err)
	}
	return p, nil
}

func (s *Persons) attachPhoto(ctx context.Context, photo *Photo, data *[]byte, url *string) error {
	if s.photos == nil {
		*data = photo.Data
		return nil
	}
	u, err := s.photos.Upload(ctx, *photo)
	if err != nil {
		return storageError("❌ Error al guardar la imagen", err)
	}
	*url = u
	return nil
}

func (s *Persons) invalidate(ctx context.Context, p *models.Person) {
	if s.cache != nil && p != nil {
		s.cache.Invalidate(ctx, p)
	}
}

func setFields(p *models.Person, fields map[string]string) {
	targets := p.TextFields()
	for k, v := range fields {
		if ptr, ok := targets[k]; ok {
			*ptr = strings.TrimSpace(v)
		}
	}
}

func personWriteError(err error, msg string) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		switch dup.Field {
		case "carnet":
			return conflictError("❌ Ya existe una persona con este carnet", err)
		case "numeroTarjeta":
			return conflictError("❌ Ya existe una persona con este número de tarjeta", err)
		}
		return conflictError("❌ Registro duplicado", err)
	}
	return storageError(msg, err)
}
