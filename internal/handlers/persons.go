package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unicatolica/registro-huellas/internal/services"
)

const (
	defaultImageMimeType = "image/jpeg"

	// multipart bodies carry a file of up to MaxUploadSize plus form fields
	maxFormSize = services.MaxUploadSize + 1<<20
)

// SavePerson registers a person from a multipart form (optional "imagen"
// file) or a JSON body.
func (h *Handler) SavePerson(w http.ResponseWriter, r *http.Request) {
	fields, photo, err := personForm(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.persons.Save(r.Context(), fields, photo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Datos guardados correctamente",
		"huella":  p,
	})
}

func (h *Handler) ListHuellas(w http.ResponseWriter, r *http.Request) {
	persons, err := h.persons.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, persons)
}

func (h *Handler) UpdateHuella(w http.ResponseWriter, r *http.Request) {
	fields, photo, err := personForm(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.persons.Update(r.Context(), chi.URLParam(r, "id"), fields, photo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "✅ Registro actualizado correctamente",
		"huella":  p,
	})
}

func (h *Handler) DeleteHuella(w http.ResponseWriter, r *http.Request) {
	if err := h.persons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "✅ Registro eliminado correctamente"})
}

// HuellaImage redirects to the uploaded photo or streams the stored bytes.
func (h *Handler) HuellaImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.persons.Image(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if p.ImagenURL != "" {
		http.Redirect(w, r, p.ImagenURL, http.StatusFound)
		return
	}
	mimeType := p.ImagenMimeType
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	w.Header().Set("Content-Type", mimeType)
	w.Write(p.Imagen)
}

func (h *Handler) FindByCarnet(w http.ResponseWriter, r *http.Request) {
	p, err := h.persons.FindByCard(r.Context(), chi.URLParam(r, "carnet"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"persona": p,
		"message": "✅ Persona encontrada",
	})
}

// ImportPersons loads persons from an uploaded Excel workbook.
func (h *Handler) ImportPersons(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "No se ha proporcionado ningún archivo",
		})
		return
	}
	defer file.Close()

	res, err := h.importer.Import(r.Context(), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var errores []string
	if len(res.Errors) > 0 {
		errores = res.Errors
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Se importaron %d personas correctamente", res.Imported),
		"errores": errores,
	})
}

// personForm reads person fields and the optional photo. Multipart values
// and JSON strings are accepted; other JSON values are stringified.
func personForm(w http.ResponseWriter, r *http.Request) (map[string]string, *services.Photo, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	fields := map[string]string{}

	if mediaType != "multipart/form-data" {
		var body map[string]any
		if err := decodeJSON(w, r, &body); err != nil {
			return nil, nil, errors.New("❌ Cuerpo de la solicitud inválido")
		}
		for k, v := range body {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case nil:
			default:
				b, _ := json.Marshal(val)
				fields[k] = string(b)
			}
		}
		return fields, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		return nil, nil, errors.New("❌ El archivo supera el tamaño máximo de 10 MB")
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	file, header, err := r.FormFile("imagen")
	if errors.Is(err, http.ErrMissingFile) {
		return fields, nil, nil
	}
	if err != nil {
		return nil, nil, errors.New("❌ Error al leer la imagen")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errors.New("❌ Error al leer la imagen")
	}
	return fields, &services.Photo{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
