package handlers

import "net/http"

// QuotaHandler reports storage usage.
type QuotaHandler struct {
	Quota QuotaProvider
}

// Snapshot handles GET /api/v1/quota.
func (h QuotaHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	quota, err := h.Quota.Snapshot(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, quota)
}
