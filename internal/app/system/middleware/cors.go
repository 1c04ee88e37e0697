// internal/app/system/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORSOptions configures the CORS stage. An empty AllowedOrigins list (or one
// containing "*") admits every origin; with AllowCredentials the request
// origin is echoed back rather than "*", which browsers require for
// credentialed requests.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int // seconds a preflight result may be cached
}

// AllowsAnyOrigin reports whether every origin is admitted.
func (o CORSOptions) AllowsAnyOrigin() bool {
	if len(o.AllowedOrigins) == 0 {
		return true
	}
	for _, origin := range o.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// DefaultCORSOptions allows any origin, header and method, with credentials.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{AllowCredentials: true, MaxAge: 300}
}

// corsMethods is every method the app serves; go-chi/cors has no method wildcard.
var corsMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// CORS returns the CORS stage.
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	}
	if o.AllowsAnyOrigin() {
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	} else {
		allowed := make(map[string]struct{}, len(o.AllowedOrigins))
		for _, origin := range o.AllowedOrigins {
			allowed[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
		}
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool {
			_, ok := allowed[strings.ToLower(origin)]
			return ok
		}
	}
	return cors.Handler(opts)
}
