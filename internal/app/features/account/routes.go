// internal/app/features/account/routes.go
package account

import (
	"github.com/go-chi/chi/v5"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
)

// Routes returns the account API, mounted under /api/account.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.ServeLoginStatus)
	r.Post("/login", h.HandleLogin)
	r.Get("/logout", h.HandleLogout)
	r.Post("/logout", h.HandleLogout)
	r.Post("/register", h.HandleRegister)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
	})
	return r
}
