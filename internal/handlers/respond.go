package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediavault/backend/internal/logging"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/middleware"
	"github.com/mediavault/backend/internal/models"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// requireUser resolves the authenticated user id placed on the context by
// the identity middleware. A missing id means the route was mounted without
// that middleware, so the request is rejected.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return "", false
	}
	return userID, true
}

// quotaSnapshot fetches a fresh usage snapshot for a mutating response.
// Snapshot failures degrade to a zero value rather than failing the request
// that already committed; the error is logged.
func quotaSnapshot(ctx context.Context, quota QuotaProvider, userID string) models.QuotaSnapshot {
	snap, err := quota.Snapshot(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("quota snapshot failed", "error", err, "userId", userID)
	}
	return snap
}

// respondError maps the core error taxonomy onto HTTP status classes.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, media.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, media.ErrCyclicMove), errors.Is(err, media.ErrNotInTrash), errors.Is(err, media.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, media.ErrInvalidParent), errors.Is(err, media.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, media.ErrAccessDenied):
		status = http.StatusForbidden
		message = "locked folder access denied"
	default:
		logging.FromContext(ctx).Error("request failed", "error", err)
	}

	respondJSON(ctx, w, status, map[string]string{"error": message})
}
