// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is satisfied by every user store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB      Pinger
	Backend string
	Log     *zap.Logger
}

// NewHandler constructs a health Handler over the configured database.
func NewHandler(db Pinger, backend string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Backend: backend,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"sqlite", "database":"connected" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Backend:  h.Backend,
		Database: "connected",
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Error("health-check: database ping failed", zap.String("backend", h.Backend), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	_ = json.NewEncoder(w).Encode(resp)
}
