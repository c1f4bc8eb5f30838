package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/unicatolica/registro-huellas/internal/services"
)

// AccessFeed hands out live access events to WebSocket clients.
type AccessFeed interface {
	Subscribe() (<-chan services.AccessEvent, func())
}

// Handler serves the HTTP API on top of the services.
type Handler struct {
	tracker  *services.Tracker
	visitors *services.Visitors
	query    *services.Query
	persons  *services.Persons
	importer *services.Importer
	accounts *services.Accounts
	files    *services.Files
	feed     AccessFeed
	origins  map[string]bool
	logger   *slog.Logger
}

type Deps struct {
	Tracker        *services.Tracker
	Visitors       *services.Visitors
	Query          *services.Query
	Persons        *services.Persons
	Importer       *services.Importer
	Accounts       *services.Accounts
	Files          *services.Files
	Feed           AccessFeed // optional
	AllowedOrigins []string   // WebSocket origin check; empty allows any
	Logger         *slog.Logger
}

func New(d Deps) *Handler {
	origins := make(map[string]bool, len(d.AllowedOrigins))
	for _, o := range d.AllowedOrigins {
		origins[o] = true
	}
	return &Handler{
		tracker:  d.Tracker,
		visitors: d.Visitors,
		query:    d.Query,
		persons:  d.Persons,
		importer: d.Importer,
		accounts: d.Accounts,
		files:    d.Files,
		feed:     d.Feed,
		origins:  origins,
		logger:   d.Logger,
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// writeError maps a service error to its status code. Storage causes are
// logged and never sent to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		h.logger.Error("unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindValidation, services.KindConflict:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindUnauthorized:
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(svcErr.Message, "method", r.Method, "path", r.URL.Path, "error", svcErr.Err)
	}
	respondError(w, status, svcErr.Message)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
