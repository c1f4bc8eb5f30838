package handlers

import (
	"net/http"

	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/services"
)

type scanRequest struct {
	Carnet string `json:"carnet"`
}

// RegisterAccess toggles the entry/exit session of the scanned card.
func (h *Handler) RegisterAccess(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Se requiere carnet o número de tarjeta")
		return
	}

	res, err := h.tracker.RegisterScan(r.Context(), req.Carnet)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "✅ Entrada registrada"
	if res.Tipo == models.AccessSalida {
		msg = "✅ Salida registrada"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"tipo":    res.Tipo,
		"acceso":  res.Acceso,
	})
}

// RegisterVisitor stores a visitor valid for one month.
func (h *Handler) RegisterVisitor(w http.ResponseWriter, r *http.Request) {
	var in services.VisitorInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Faltan datos requeridos")
		return
	}
	if _, err := h.visitors.Register(r.Context(), in); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "✅ Visitante registrado exitosamente"})
}

// ListAccesses serves the paginated session history.
func (h *Handler) ListAccesses(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.Accesses(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":   page.Total,
		"page":    page.Page,
		"limit":   page.Limit,
		"accesos": page.Items,
	})
}

// ListPersons serves the paginated directory.
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.Persons(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":    page.Total,
		"page":     page.Page,
		"limit":    page.Limit,
		"personas": page.Items,
	})
}
