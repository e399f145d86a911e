package handlers

import (
	"context"
	"net/http"
	"time"

	"expense-ledger/internal/logging"

	"github.com/go-chi/render"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports liveness and whether the database answers a ping.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	if err := h.db.Ping(ctx); err != nil {
		h.logger(r, "handlers.Health").WarnContext(r.Context(), "database ping failed", logging.Err(err))
		resp = healthResponse{Status: "degraded", Database: "unavailable"}
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
