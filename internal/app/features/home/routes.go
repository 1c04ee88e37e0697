// internal/app/features/home/routes.go
package home

import "github.com/ipt-ti2/iptgram/internal/app/system/mvc"

// Register adds the Home controller's actions to the convention router.
func Register(rt *mvc.Router, h *Handler) {
	rt.HandleFunc("Home", "Index", h.ServeIndex)
}
