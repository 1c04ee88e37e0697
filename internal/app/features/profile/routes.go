// internal/app/features/profile/routes.go
package profile

import (
	"net/http"

	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/mvc"
)

// Register adds the Profile controller to the convention router. Every
// action requires a signed-in user.
func Register(rt *mvc.Router, h *Handler, sm *auth.SessionManager) {
	rt.Handle("Profile", "Index", sm.RequireSignedIn(http.HandlerFunc(h.ServeProfile)))
	rt.Handle("Profile", "Password", sm.RequireSignedIn(http.HandlerFunc(h.HandleChangePassword)))
}
