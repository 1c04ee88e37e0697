// internal/app/features/errors/errors.go
package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler renders error responses and recovers panics for the pipeline.
// In dev mode a recovered panic produces the developer exception page; in
// any other mode the client gets a bare 500 and the detail goes to the log.
type Handler struct {
	Dev    bool
	Policy auth.CookiePolicy
	Log    *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(dev bool, policy auth.CookiePolicy, logger *zap.Logger) *Handler {
	return &Handler{
		Dev:    dev,
		Policy: policy,
		Log:    logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Panic recovery                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// Recover is the pipeline stage that turns panics into 500 responses.
func (h *Handler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			h.Log.Error("panic serving request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
				zap.ByteString("stack", stack),
			)
			if h.Dev {
				renderDevException(w, r, fmt.Sprint(rec), string(stack))
				return
			}
			h.InternalError(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}

// InternalError writes a generic 500. API paths get an empty body.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	if h.Policy.IsAPIPath(r.URL.Path) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	renderStatusPage(w, r, http.StatusInternalServerError, "Something went wrong", "An error occurred while processing your request.")
}

// NotFound serves 404s for the convention router. API paths get an empty body.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if h.Policy.IsAPIPath(r.URL.Path) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	renderStatusPage(w, r, http.StatusNotFound, "Page not found", "The page you requested does not exist.")
}
