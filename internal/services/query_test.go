package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

func seedAccesses(t *testing.T, store *repository.MemoryAccesses) {
	t.Helper()
	ctx := context.Background()
	rows := []models.Acceso{
		{Nombre: "Ana Ruiz", Carnet: "A1", Fecha: "2024-01-10", HoraEntrada: "08:00:00", HoraSalida: "17:00:00"},
		{Nombre: "Ana Ruiz", Carnet: "A1", Fecha: "2024-01-11", HoraEntrada: "08:00:00"},
		{Nombre: "Luis Gómez", Carnet: "L1", RolUniversidad: "Docente", Fecha: "2024-01-11", HoraEntrada: "09:00:00"},
		{Nombre: "Visita", NumeroTarjeta: "V1", RolUniversidad: models.RoleVisitante, Fecha: "2024-01-11", HoraEntrada: "10:00:00", HoraSalida: "11:00:00"},
	}
	for i := range rows {
		rows[i].PersonaID = primitive.NewObjectID()
		if err := store.Insert(ctx, &rows[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestQueryAccessesFilters(t *testing.T) {
	t.Parallel()
	accesses := repository.NewMemoryAccesses()
	seedAccesses(t, accesses)
	q := NewQuery(repository.NewMemoryPersons(), accesses)

	tests := []struct {
		query string
		want  int64
	}{
		{"", 4},
		{"nombre=ana", 2},
		{"fecha=2024-01-11", 3},
		{"tipo=entrada", 2},
		{"tipo=salida", 2},
		{"tipo=entrada&fecha=2024-01-11", 2},
		{"rolUniversidad=Docente", 1},
		{"numeroTarjeta=V1", 1},
		{"nombre=", 4},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			params, _ := url.ParseQuery(tt.query)
			page, err := q.Accesses(context.Background(), params)
			if err != nil {
				t.Fatal(err)
			}
			if page.Total != tt.want || int64(len(page.Items)) != tt.want {
				t.Errorf("total = %d items = %d, want %d", page.Total, len(page.Items), tt.want)
			}
		})
	}
}

func TestQueryAccessesNewestFirst(t *testing.T) {
	t.Parallel()
	accesses := repository.NewMemoryAccesses()
	seedAccesses(t, accesses)
	q := NewQuery(repository.NewMemoryPersons(), accesses)

	page, err := q.Accesses(context.Background(), url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Items[0].HoraEntrada != "10:00:00" || page.Items[3].Fecha != "2024-01-10" {
		t.Fatalf("order = %+v", page.Items)
	}
	if page.Page != 1 || page.Limit != 10 {
		t.Fatalf("defaults = page %d limit %d", page.Page, page.Limit)
	}
}

func TestQueryRejectsBadParameters(t *testing.T) {
	t.Parallel()
	q := NewQuery(repository.NewMemoryPersons(), repository.NewMemoryAccesses())

	tests := []struct {
		query string
		msg   string
	}{
		{"horaSalida=x", "❌ Filtro no permitido: horaSalida"},
		{"$where=1", "❌ Filtro no permitido: $where"},
		{"tipo=ambos", "❌ Valor de tipo inválido: ambos"},
		{"page=0", "❌ Parámetro page inválido: 0"},
		{"limit=abc", "❌ Parámetro limit inválido: abc"},
		{"page=-2", "❌ Parámetro page inválido: -2"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			params, _ := url.ParseQuery(tt.query)
			_, err := q.Accesses(context.Background(), params)
			wantKind(t, err, KindValidation)
			var svcErr *Error
			if !errors.As(err, &svcErr) || svcErr.Message != tt.msg {
				t.Errorf("message = %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestQueryClampsLimit(t *testing.T) {
	t.Parallel()
	q := NewQuery(repository.NewMemoryPersons(), repository.NewMemoryAccesses())
	page, err := q.Accesses(context.Background(), url.Values{"limit": {"5000"}})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != maxLimit {
		t.Fatalf("limit = %d, want %d", page.Limit, maxLimit)
	}
}

func TestQueryPersonsPagesWithoutOverlap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	persons := repository.NewMemoryPersons()
	for i := 0; i < 23; i++ {
		_ = persons.Insert(ctx, &models.Person{
			Nombre:         "Persona",
			Apellido:       fmt.Sprintf("%02d", i%5),
			RolUniversidad: "Estudiante",
			Carnet:         fmt.Sprintf("C%02d", i),
		})
	}
	q := NewQuery(persons, repository.NewMemoryAccesses())

	seen := map[string]bool{}
	for p := 1; p <= 3; p++ {
		page, err := q.Persons(ctx, url.Values{"page": {fmt.Sprint(p)}, "limit": {"10"}})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 23 {
			t.Fatalf("total = %d", page.Total)
		}
		for _, item := range page.Items {
			if seen[item.Carnet] {
				t.Fatalf("%s repeated across pages", item.Carnet)
			}
			seen[item.Carnet] = true
		}
	}
	if len(seen) != 23 {
		t.Fatalf("saw %d persons, want 23", len(seen))
	}
}

func TestQueryPersonsMatching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	persons := repository.NewMemoryPersons()
	_ = persons.Insert(ctx, &models.Person{Nombre: "Ana", Carnet: "A12", Carrera: "Ingeniería (Sistemas)"})
	_ = persons.Insert(ctx, &models.Person{Nombre: "Mariana", Carnet: "A123"})
	q := NewQuery(persons, repository.NewMemoryAccesses())

	tests := []struct {
		query string
		want  int64
	}{
		{"nombre=ANA", 2},
		{"carnet=A12", 1},
		{"carrera=(sistemas)", 1},
		{"carrera=.*", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			params, _ := url.ParseQuery(tt.query)
			page, err := q.Persons(ctx, params)
			if err != nil {
				t.Fatal(err)
			}
			if page.Total != tt.want {
				t.Errorf("total = %d, want %d", page.Total, tt.want)
			}
		})
	}

	_, err := q.Persons(ctx, url.Values{"imagen": {"x"}})
	wantKind(t, err, KindValidation)
}
