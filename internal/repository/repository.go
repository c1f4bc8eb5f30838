// Package repository holds the storage contracts of the service and their
// MongoDB, PostgreSQL and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unicatolica/registro-huellas/internal/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule.
	ErrDuplicate = errors.New("repository: duplicate key")
)

// DuplicateError names the field whose uniqueness rule was violated.
// errors.Is(err, ErrDuplicate) holds for it.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("repository: duplicate %s", e.Field)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// cardField is one card identifier a person is scanned by.
type cardField struct {
	field string
	value string
}

// cards lists the non-empty card identifiers of p. A card value identifies
// one person across both fields: a visitor's numeroTarjeta may not equal
// anyone's carnet and vice versa.
func cards(p *models.Person) []cardField {
	var out []cardField
	if p.Carnet != "" {
		out = append(out, cardField{"carnet", p.Carnet})
	}
	if p.NumeroTarjeta != "" {
		out = append(out, cardField{"numeroTarjeta", p.NumeroTarjeta})
	}
	return out
}

// Match is how a Condition compares a field.
type Match int

const (
	MatchExact     Match = iota // field == value
	MatchSubstring              // case-insensitive literal substring
	MatchPresent                // field set and non-empty
	MatchAbsent                 // field missing or empty
)

// Condition is one typed predicate of a listing query.
type Condition struct {
	Field string
	Value string
	Match Match
}

// SortKey orders a listing. Field "_id" sorts by record id.
type SortKey struct {
	Field string
	Desc  bool
}

// ListQuery is a filtered, sorted, paginated listing.
type ListQuery struct {
	Conditions []Condition
	Sort       []SortKey
	Skip       int64
	Limit      int64
}

// PersonUpdate carries the allow-listed fields of a person edit.
type PersonUpdate struct {
	Fields         map[string]string
	Imagen         []byte
	ImagenMimeType string
	ImagenURL      string
}

// SessionKey identifies the open access session of a person on a day. It
// is the same pair the open-session uniqueness index covers, so a card
// change during the day still closes the session opened under the old card.
type SessionKey struct {
	PersonaID primitive.ObjectID
	Fecha     string
}

// PersonStore is the person directory.
type PersonStore interface {
	Insert(ctx context.Context, p *models.Person) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Person, error)
	// FindByCard matches card against carnet or numeroTarjeta.
	FindByCard(ctx context.Context, card string) (*models.Person, error)
	List(ctx context.Context) ([]models.Person, error)
	Update(ctx context.Context, id primitive.ObjectID, upd PersonUpdate) (*models.Person, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Person, error)
	Exists(ctx context.Context, field, value string) (bool, error)
	Search(ctx context.Context, q ListQuery) ([]models.Person, int64, error)
	// DeleteExpiredVisitors removes visitors whose expiration is before now.
	DeleteExpiredVisitors(ctx context.Context, now time.Time) (int64, error)
}

// AccessStore holds attendance sessions.
type AccessStore interface {
	// CloseOpen atomically sets the exit time of the most recently created
	// open session for key. Returns ErrNotFound when there is none.
	CloseOpen(ctx context.Context, key SessionKey, horaSalida string) (*models.Acceso, error)
	// Insert stores a new open session. Returns ErrDuplicate when the person
	// already has an open session that day.
	Insert(ctx context.Context, a *models.Acceso) error
	Search(ctx context.Context, q ListQuery) ([]models.Acceso, int64, error)
}

// FileStore keeps uploaded files.
type FileStore interface {
	Save(ctx context.Context, f *models.File) error
}

// UserStore holds authentication accounts.
type UserStore interface {
	// Create returns a *DuplicateError naming cedula, correoPersonal or
	// correoInstitucional when the (field, role) pair already exists.
	Create(ctx context.Context, u *models.User) error
	// FindConflict returns an account clashing with u on any unique pair.
	FindConflict(ctx context.Context, u *models.User) (*models.User, error)
	FindByEmailRole(ctx context.Context, correoInstitucional, role string) (*models.User, error)
	FindByEmail(ctx context.Context, correoInstitucional string) (*models.User, error)
	// FindByResetToken ignores correoInstitucional when empty.
	FindByResetToken(ctx context.Context, correoInstitucional, token string) (*models.User, error)
	// List returns all accounts, or those of role when non-empty.
	List(ctx context.Context, role string) ([]models.User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	// UpdatePassword stores the new hash and clears any reset token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
