package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Page is one page of a listing.
type Page[T any] struct {
	Total int64
	Page  int64
	Limit int64
	Items []T
}

// accessFilters is the allow-list of history filters.
var accessFilters = map[string]repository.Match{
	"nombre":         repository.MatchSubstring,
	"rolUniversidad": repository.MatchExact,
	"carnet":         repository.MatchExact,
	"numeroTarjeta":  repository.MatchExact,
	"fecha":          repository.MatchExact,
}

var accessSort = []repository.SortKey{
	{Field: "fecha", Desc: true},
	{Field: "horaEntrada", Desc: true},
	{Field: "_id", Desc: true},
}

var personSort = []repository.SortKey{
	{Field: "nombre"},
	{Field: "apellido"},
	{Field: "_id"},
}

// personExact are directory fields compared whole; every other text field
// is a substring match.
var personExact = map[string]bool{
	"carnet":         true,
	"numeroTarjeta":  true,
	"rolUniversidad": true,
}

// Query serves the paginated directory and history listings.
type Query struct {
	persons  repository.PersonStore
	accesses repository.AccessStore
}

func NewQuery(persons repository.PersonStore, accesses repository.AccessStore) *Query {
	return &Query{persons: persons, accesses: accesses}
}

// Accesses lists access sessions. Supported filters: nombre, rolUniversidad,
// carnet, numeroTarjeta, fecha and tipo. tipo selects on the exit time:
// entrada returns only sessions still open (no horaSalida), salida only
// closed ones. A closed session has an entry time too but does not match
// tipo=entrada; omit tipo to list every session.
func (q *Query) Accesses(ctx context.Context, params url.Values) (*Page[models.Acceso], error) {
	page, limit, err := pagination(params)
	if err != nil {
		return nil, err
	}

	var conds []repository.Condition
	for key, values := range params {
		if key == "page" || key == "limit" {
			continue
		}
		value := first(values)
		if value == "" {
			continue
		}
		if key == "tipo" {
			switch value {
			case models.AccessEntrada:
				conds = append(conds, repository.Condition{Field: "horaSalida", Match: repository.MatchAbsent})
			case models.AccessSalida:
				conds = append(conds, repository.Condition{Field: "horaSalida", Match: repository.MatchPresent})
			default:
				return nil, validationError(fmt.Sprintf("❌ Valor de tipo inválido: %s", value))
			}
			continue
		}
		match, ok := accessFilters[key]
		if !ok {
			return nil, validationError(fmt.Sprintf("❌ Filtro no permitido: %s", key))
		}
		conds = append(conds, repository.Condition{Field: key, Value: value, Match: match})
	}

	items, total, err := q.accesses.Search(ctx, repository.ListQuery{
		Conditions: conds,
		Sort:       accessSort,
		Skip:       (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, storageError("Error al obtener historial de accesos", err)
	}
	return &Page[models.Acceso]{Total: total, Page: page, Limit: limit, Items: items}, nil
}

// Persons lists directory records filtered by any person text field.
func (q *Query) Persons(ctx context.Context, params url.Values) (*Page[models.Person], error) {
	page, limit, err := pagination(params)
	if err != nil {
		return nil, err
	}

	allowed := (&models.Person{}).TextFields()
	var conds []repository.Condition
	for key, values := range params {
		if key == "page" || key == "limit" {
			continue
		}
		value := first(values)
		if value == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return nil, validationError(fmt.Sprintf("❌ Filtro no permitido: %s", key))
		}
		match := repository.MatchSubstring
		if personExact[key] {
			match = repository.MatchExact
		}
		conds = append(conds, repository.Condition{Field: key, Value: value, Match: match})
	}

	items, total, err := q.persons.Search(ctx, repository.ListQuery{
		Conditions: conds,
		Sort:       personSort,
		Skip:       (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, storageError("Error al obtener historial de personas", err)
	}
	return &Page[models.Person]{Total: total, Page: page, Limit: limit, Items: items}, nil
}

func pagination(params url.Values) (page, limit int64, err error) {
	page, err = positiveParam(params, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = positiveParam(params, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

func positiveParam(params url.Values, key string, def int64) (int64, error) {
	raw := params.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return 0, validationError(fmt.Sprintf("❌ Parámetro %s inválido: %s", key, raw))
	}
	return n, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
