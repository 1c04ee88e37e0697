// internal/app/features/shared/views/views.go
package shared

import (
	"embed"
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
)

// Embed the shared template files.
//
//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "shared",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}

// RenderStatus renders a full page with an explicit status code. The engine
// buffers the page, so a template failure never leaves half a page behind.
func RenderStatus(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, name, data)
}
