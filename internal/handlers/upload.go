package handlers

import (
	"io"
	"net/http"
)

// UploadFile stores a multipart "file" in the files collection.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	saved, err := h.files.Save(r.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "File uploaded and saved to database successfully!",
		"fileId":  saved.ID.Hex(),
	})
}
