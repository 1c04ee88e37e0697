package mvc

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type ctxKey struct{}

// RouteValues returns the values the convention router matched for r.
func RouteValues(r *http.Request) Values {
	v, _ := r.Context().Value(ctxKey{}).(Values)
	return v
}

// WithRouteValues stores v on the request context.
func WithRouteValues(r *http.Request, v Values) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, v))
}

// Router dispatches requests to controller actions through one template.
// Controller and action names match case-insensitively. Registration happens
// at startup; ServeHTTP only reads.
type Router struct {
	template *Template
	actions  map[string]map[string]http.Handler
	notFound http.Handler
	log      *zap.Logger
}

// NewRouter creates a router for the given template.
func NewRouter(t *Template, logger *zap.Logger) *Router {
	return &Router{
		template: t,
		actions:  make(map[string]map[string]http.Handler),
		notFound: http.NotFoundHandler(),
		log:      logger,
	}
}

// Handle registers h for controller/action.
func (rt *Router) Handle(controller, action string, h http.Handler) {
	c := strings.ToLower(controller)
	if rt.actions[c] == nil {
		rt.actions[c] = make(map[string]http.Handler)
	}
	rt.actions[c][strings.ToLower(action)] = h
}

// HandleFunc registers f for controller/action.
func (rt *Router) HandleFunc(controller, action string, f http.HandlerFunc) {
	rt.Handle(controller, action, f)
}

// NotFound replaces the handler used when nothing matches.
func (rt *Router) NotFound(h http.Handler) {
	rt.notFound = h
}

// Resolve matches path against the template and looks up the action handler.
func (rt *Router) Resolve(path string) (Values, http.Handler, bool) {
	vals, ok := rt.template.Match(path)
	if !ok {
		return nil, nil, false
	}
	actions, ok := rt.actions[strings.ToLower(vals.Controller())]
	if !ok {
		return vals, nil, false
	}
	h, ok := actions[strings.ToLower(vals.Action())]
	if !ok {
		return vals, nil, false
	}
	return vals, h, true
}

// ServeHTTP dispatches r or falls through to the not-found handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vals, h, ok := rt.Resolve(r.URL.Path)
	if !ok {
		rt.log.Debug("no route", zap.String("path", r.URL.Path))
		rt.notFound.ServeHTTP(w, r)
		return
	}
	h.ServeHTTP(w, WithRouteValues(r, vals))
}

// Routes lists registered "controller/action" pairs, sorted.
func (rt *Router) Routes() []string {
	var out []string
	for c, actions := range rt.actions {
		for a := range actions {
			out = append(out, c+"/"+a)
		}
	}
	sort.Strings(out)
	return out
}
