package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unicatolica/registro-huellas/internal/auth"
	"github.com/unicatolica/registro-huellas/internal/handlers"
	"github.com/unicatolica/registro-huellas/internal/middleware"
	"github.com/unicatolica/registro-huellas/internal/models"
)

// SetupRoutes registers the API. With a nil issuer every route is open;
// otherwise account and directory mutations need an admin token and the
// kiosk and history routes need an admin or lector token.
func SetupRoutes(r chi.Router, h *handlers.Handler, issuer *auth.Issuer) {
	adminOnly := guard(issuer, models.RoleAdmin)
	staff := guard(issuer, models.RoleAdmin, models.RoleLector)

	r.Get("/health", h.Health)

	// Credentials
	r.Post("/api/login", h.Login)
	r.Post("/api/verify-password", h.VerifyPassword)
	r.Post("/api/forgot-password", h.ForgotPassword)
	r.Post("/api/verify-token", h.VerifyToken)
	r.Post("/api/reset-password", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(staff)

		// Access control kiosk
		r.Post("/api/registrar-acceso", h.RegisterAccess)
		r.Post("/api/registrar-visitante", h.RegisterVisitor)
		r.Get("/api/buscar-carnet/{carnet}", h.FindByCarnet)

		// History and directory
		r.Get("/api/accesos", h.ListAccesses)
		r.Get("/api/personas", h.ListPersons)
		r.Get("/api/huellas", h.ListHuellas)
		r.Get("/api/huellas/{id}/imagen", h.HuellaImage)

		// Live feed for guard dashboards
		r.Get("/ws/accesos", h.AccessFeedSocket)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminOnly)

		r.Post("/api/register", h.Register)
		r.Get("/api/usuarios", h.ListUsers)
		r.Get("/api/usuarios/{role}", h.ListUsers)

		r.Post("/api/save", h.SavePerson)
		r.Put("/api/huellas/{id}", h.UpdateHuella)
		r.Delete("/api/huellas/{id}", h.DeleteHuella)
		r.Post("/api/personas/importar", h.ImportPersons)
		r.Post("/upload", h.UploadFile)
	})
}

func guard(issuer *auth.Issuer, roles ...string) func(http.Handler) http.Handler {
	if issuer == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RequireRole(issuer, roles...)
}
