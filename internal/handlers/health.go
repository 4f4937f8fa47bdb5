package handlers

import (
	"net/http"
)

// HealthHandler reports process liveness and database reachability.
type HealthHandler struct {
	Check HealthChecker
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Check != nil {
		if err := h.Check(ctx); err != nil {
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "database unreachable",
			})
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
