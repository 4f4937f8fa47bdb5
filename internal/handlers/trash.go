package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mediavault/backend/internal/logging"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

// TrashHandler implements the soft-delete, restore, and reclamation endpoints.
type TrashHandler struct {
	Lifecycle MediaLifecycle
	Quota     QuotaProvider
}

type bulkRequest struct {
	MediaIDs []string `json:"mediaIds"`
}

type bulkResponse struct {
	Processed int                  `json:"processed"`
	Quota     models.QuotaSnapshot `json:"quota"`
}

// List handles GET /api/v1/trash.
func (h TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	assets, err := h.Lifecycle.List(ctx, userID, media.AssetFilter{State: models.AssetStateTrashed})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, assetListResponse{Assets: assets})
}

// Trash handles POST /api/v1/media/{id}/trash.
func (h TrashHandler) Trash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asset, err := h.Lifecycle.Trash(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	quota := quotaSnapshot(ctx, h.Quota, userID)
	respondJSON(ctx, w, http.StatusOK, assetResponse{Asset: asset, Quota: quota})
}

// Restore handles POST /api/v1/trash/{id}/restore.
func (h TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asset, err := h.Lifecycle.Restore(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	quota := quotaSnapshot(ctx, h.Quota, userID)
	respondJSON(ctx, w, http.StatusOK, assetResponse{Asset: asset, Quota: quota})
}

// Delete handles DELETE /api/v1/trash/{id}. Only trashed assets may be
// permanently removed.
func (h TrashHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Lifecycle.DeletePermanently(ctx, userID, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}

	quota := quotaSnapshot(ctx, h.Quota, userID)
	respondJSON(ctx, w, http.StatusOK, map[string]any{"status": "deleted", "quota": quota})
}

// BulkTrash handles POST /api/v1/trash/bulk.
func (h TrashHandler) BulkTrash(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.Lifecycle.BulkTrash)
}

// BulkRestore handles POST /api/v1/trash/bulk/restore.
func (h TrashHandler) BulkRestore(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.Lifecycle.BulkRestore)
}

func (h TrashHandler) bulk(w http.ResponseWriter, r *http.Request, op func(context.Context, string, []string) (int, error)) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid bulk payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.MediaIDs) == 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "mediaIds is required"})
		return
	}

	processed, err := op(ctx, userID, req.MediaIDs)
	if err != nil {
		// Partial progress is reported alongside the failure.
		logging.FromContext(ctx).Error("bulk operation aborted", "error", err, "processed", processed)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]any{
			"error":     "bulk operation failed",
			"processed": processed,
		})
		return
	}

	respondJSON(ctx, w, http.StatusOK, bulkResponse{Processed: processed, Quota: quotaSnapshot(ctx, h.Quota, userID)})
}
