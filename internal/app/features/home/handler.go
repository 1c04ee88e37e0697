// internal/app/features/home/handler.go
package home

import (
	"html/template"
	"net/http"

	shared "github.com/ipt-ti2/iptgram/internal/app/features/shared/views"
	"github.com/ipt-ti2/iptgram/internal/app/system/htmlsanitize"
	"github.com/ipt-ti2/iptgram/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Site    viewdata.Site
	Welcome template.HTML // sanitised once at construction
	Log     *zap.Logger
}

// NewHandler sanitises welcomeHTML up front; the result is reused for every
// request.
func NewHandler(site viewdata.Site, welcomeHTML string, logger *zap.Logger) *Handler {
	return &Handler{
		Site:    site,
		Welcome: htmlsanitize.PrepareForDisplay(welcomeHTML),
		Log:     logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Home/Index – landing                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type homeData struct {
	viewdata.BaseVM
	Welcome template.HTML
}

func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data := homeData{
		BaseVM:  viewdata.NewBaseVM(r, h.Site, "Home"),
		Welcome: h.Welcome,
	}
	shared.RenderStatus(w, r, "home", http.StatusOK, data)
}
