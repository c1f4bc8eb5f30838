package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unicatolica/registro-huellas/internal/models"
)

// The Memory stores keep everything in process. They honor the same
// uniqueness and ordering rules as the database-backed stores and back the
// handler and service tests.

// MemoryPersons is an in-process PersonStore.
type MemoryPersons struct {
	mu      sync.RWMutex
	persons []models.Person
}

func NewMemoryPersons() *MemoryPersons {
	return &MemoryPersons{}
}

// cardTaken reports which card field of p holds a value another record
// already uses in either card field.
func (s *MemoryPersons) cardTaken(p *models.Person) string {
	for _, c := range cards(p) {
		for i := range s.persons {
			other := &s.persons[i]
			if other.ID != p.ID && (other.Carnet == c.value || other.NumeroTarjeta == c.value) {
				return c.field
			}
		}
	}
	return ""
}

func (s *MemoryPersons) Insert(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if field := s.cardTaken(p); field != "" {
		return &DuplicateError{Field: field}
	}
	s.persons = append(s.persons, clonePerson(*p))
	return nil
}

func (s *MemoryPersons) Get(_ context.Context, id primitive.ObjectID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		p := clonePerson(s.persons[i])
		return &p, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryPersons) FindByCard(_ context.Context, card string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.Carnet == card || p.NumeroTarjeta == card {
			out := clonePerson(p)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryPersons) List(ctx context.Context) ([]models.Person, error) {
	persons, _, err := s.Search(ctx, ListQuery{Sort: []SortKey{{Field: "nombre"}, {Field: "apellido"}, {Field: "_id"}}})
	return persons, err
}

func (s *MemoryPersons) Update(_ context.Context, id primitive.ObjectID, upd PersonUpdate) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := clonePerson(s.persons[i])
	fields := p.TextFields()
	for k, v := range upd.Fields {
		if ptr, ok := fields[k]; ok {
			*ptr = v
		}
	}
	if len(upd.Imagen) > 0 {
		p.Imagen = upd.Imagen
		p.ImagenMimeType = upd.ImagenMimeType
	}
	if upd.ImagenURL != "" {
		p.ImagenURL = upd.ImagenURL
		p.ImagenMimeType = upd.ImagenMimeType
	}
	if field := s.cardTaken(&p); field != "" {
		return nil, &DuplicateError{Field: field}
	}
	s.persons[i] = p
	out := clonePerson(p)
	return &out, nil
}

func (s *MemoryPersons) Delete(_ context.Context, id primitive.ObjectID) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := s.persons[i]
	s.persons = append(s.persons[:i], s.persons[i+1:]...)
	return &p, nil
}

func (s *MemoryPersons) Exists(_ context.Context, field, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.persons {
		if v, ok := s.persons[i].Lookup(field); ok && v == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryPersons) Search(_ context.Context, q ListQuery) ([]models.Person, int64, error) {
	s.mu.RLock()
	items := make([]models.Person, len(s.persons))
	for i, p := range s.persons {
		items[i] = clonePerson(p)
	}
	s.mu.RUnlock()

	page, total := searchSlice(items, q, func(p *models.Person, field string) (string, bool) {
		if field == "_id" {
			return p.ID.Hex(), true
		}
		return p.Lookup(field)
	})
	return page, total, nil
}

func (s *MemoryPersons) DeleteExpiredVisitors(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.persons[:0]
	var n int64
	for _, p := range s.persons {
		if p.Expired(now) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	s.persons = kept
	return n, nil
}

func (s *MemoryPersons) index(id primitive.ObjectID) int {
	for i := range s.persons {
		if s.persons[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePerson(p models.Person) models.Person {
	if p.Imagen != nil {
		p.Imagen = append([]byte(nil), p.Imagen...)
	}
	if p.FechaExpiracion != nil {
		t := *p.FechaExpiracion
		p.FechaExpiracion = &t
	}
	return p
}

// MemoryAccesses is an in-process AccessStore.
type MemoryAccesses struct {
	mu       sync.Mutex
	accesses []models.Acceso
}

func NewMemoryAccesses() *MemoryAccesses {
	return &MemoryAccesses{}
}

func (s *MemoryAccesses) CloseOpen(_ context.Context, key SessionKey, horaSalida string) (*models.Acceso, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// newest first, same as sorting by _id descending
	for i := len(s.accesses) - 1; i >= 0; i-- {
		a := &s.accesses[i]
		if a.PersonaID != key.PersonaID || a.Fecha != key.Fecha || !a.Open() {
			continue
		}
		a.HoraSalida = horaSalida
		a.Abierto = false
		out := *a
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryAccesses) Insert(_ context.Context, a *models.Acceso) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Abierto {
		for _, other := range s.accesses {
			if other.Abierto && other.PersonaID == a.PersonaID && other.Fecha == a.Fecha {
				return &DuplicateError{Field: "sesion"}
			}
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.accesses = append(s.accesses, *a)
	return nil
}

func (s *MemoryAccesses) Search(_ context.Context, q ListQuery) ([]models.Acceso, int64, error) {
	s.mu.Lock()
	items := append([]models.Acceso(nil), s.accesses...)
	s.mu.Unlock()

	page, total := searchSlice(items, q, func(a *models.Acceso, field string) (string, bool) {
		if field == "_id" {
			return a.ID.Hex(), true
		}
		return a.Lookup(field)
	})
	return page, total, nil
}

// MemoryFiles is an in-process FileStore.
type MemoryFiles struct {
	mu    sync.Mutex
	files []models.File
}

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{}
}

func (s *MemoryFiles) Save(_ context.Context, f *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	s.files = append(s.files, *f)
	return nil
}

// Len reports how many files were saved.
func (s *MemoryFiles) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// MemoryUsers is an in-process UserStore.
type MemoryUsers struct {
	mu    sync.RWMutex
	users []models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{}
}

func conflictField(a, b *models.User) string {
	if a.Role != b.Role {
		return ""
	}
	switch {
	case a.Cedula == b.Cedula:
		return "cedula"
	case a.CorreoPersonal == b.CorreoPersonal:
		return "correoPersonal"
	case a.CorreoInstitucional != "" && a.CorreoInstitucional == b.CorreoInstitucional:
		return "correoInstitucional"
	}
	return ""
}

func (s *MemoryUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if field := conflictField(u, &s.users[i]); field != "" {
			return &DuplicateError{Field: field}
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users = append(s.users, *u)
	return nil
}

func (s *MemoryUsers) FindConflict(_ context.Context, u *models.User) (*models.User, error) {
	return s.find(func(other *models.User) bool { return conflictField(u, other) != "" })
}

func (s *MemoryUsers) FindByEmailRole(_ context.Context, correo, role string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.CorreoInstitucional == correo && u.Role == role })
}

func (s *MemoryUsers) FindByEmail(_ context.Context, correo string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.CorreoInstitucional == correo })
}

func (s *MemoryUsers) FindByResetToken(_ context.Context, correo, token string) (*models.User, error) {
	return s.find(func(u *models.User) bool {
		if u.ResetPasswordToken == "" || u.ResetPasswordToken != token {
			return false
		}
		return correo == "" || u.CorreoInstitucional == correo
	})
}

func (s *MemoryUsers) List(_ context.Context, role string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.User{}
	for _, u := range s.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *MemoryUsers) SetResetToken(_ context.Context, id uuid.UUID, token string, expires time.Time) error {
	return s.update(id, func(u *models.User) {
		u.ResetPasswordToken = token
		u.ResetPasswordExpires = &expires
	})
}

func (s *MemoryUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
	})
}

func (s *MemoryUsers) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.users {
		if match(&s.users[i]) {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUsers) update(id uuid.UUID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			fn(&s.users[i])
			s.users[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// searchSlice filters, sorts and pages items the way the Mongo stores do.
func searchSlice[T any](items []T, q ListQuery, field func(*T, string) (string, bool)) ([]T, int64) {
	matched := make([]T, 0, len(items))
	for i := range items {
		if matchesAll(&items[i], q.Conditions, field) {
			matched = append(matched, items[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, k := range q.Sort {
			a, _ := field(&matched[i], k.Field)
			b, _ := field(&matched[j], k.Field)
			if a == b {
				continue
			}
			if k.Desc {
				return a > b
			}
			return a < b
		}
		return false
	})

	total := int64(len(matched))
	start := q.Skip
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total
}

func matchesAll[T any](item *T, conds []Condition, field func(*T, string) (string, bool)) bool {
	for _, c := range conds {
		v, set := field(item, c.Field)
		switch c.Match {
		case MatchExact:
			if !set || v != c.Value {
				return false
			}
		case MatchSubstring:
			if !set || !strings.Contains(strings.ToLower(v), strings.ToLower(c.Value)) {
				return false
			}
		case MatchPresent:
			if !set {
				return false
			}
		case MatchAbsent:
			if set {
				return false
			}
		}
	}
	return true
}
