package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unicatolica/registro-huellas/internal/services"
)

type credentials struct {
	CorreoInstitucional string `json:"correoInstitucional"`
	Password            string `json:"password"`
	Role                string `json:"role"`
}

type resetRequest struct {
	CorreoInstitucional string `json:"correoInstitucional"`
	Token               string `json:"token"`
	NuevaPassword       string `json:"nuevaPassword"`
	NewPassword         string `json:"newPassword"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Faltan datos")
		return
	}
	if _, err := h.accounts.Register(r.Context(), in); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "✅ Usuario registrado correctamente"})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context(), chi.URLParam(r, "role"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Faltan datos para iniciar sesión")
		return
	}
	res, err := h.accounts.Login(r.Context(), c.CorreoInstitucional, c.Password, c.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// VerifyPassword confirms a reader's password before privileged kiosk actions.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Faltan datos requeridos")
		return
	}
	ok, err := h.accounts.VerifyReaderPassword(r.Context(), c.CorreoInstitucional, c.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]bool{"verified": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "❌ Se requiere el correo institucional")
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), c.CorreoInstitucional); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Se ha enviado un correo con instrucciones para recuperar su contraseña",
	})
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Token inválido o usuario no encontrado")
		return
	}
	if err := h.accounts.VerifyResetToken(r.Context(), req.CorreoInstitucional, req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token válido"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Token inválido o usuario no encontrado")
		return
	}
	password := req.NuevaPassword
	if password == "" {
		password = req.NewPassword
	}
	if err := h.accounts.ResetPassword(r.Context(), req.CorreoInstitucional, req.Token, password); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contraseña restablecida correctamente. Ya puedes iniciar sesión.",
	})
}
