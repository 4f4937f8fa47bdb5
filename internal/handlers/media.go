package handlers

import (
	"net/http"
	"strconv"

	"github.com/mediavault/backend/internal/logging"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

// maxUploadMemory bounds the multipart form's in-memory buffer; larger
// files spill over to temporary disk storage.
const maxUploadMemory = 32 << 20

// MediaHandler implements upload, listing, and per-asset flag endpoints.
type MediaHandler struct {
	Lifecycle MediaLifecycle
	Quota     QuotaProvider
}

type assetResponse struct {
	Asset models.Asset         `json:"asset"`
	Quota models.QuotaSnapshot `json:"quota"`
}

type assetListResponse struct {
	Assets []models.Asset `json:"assets"`
}

// Upload handles POST /api/v1/media. The request is a multipart form with a
// "file" part plus "mediaType" and optional "albumId" fields.
func (h MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid multipart upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("upload missing file part", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "file part is required"})
		return
	}
	defer file.Close()

	var albumID *string
	if v := r.FormValue("albumId"); v != "" {
		albumID = &v
	}

	asset, err := h.Lifecycle.Upload(ctx, userID, media.UploadParams{
		Name:      header.Filename,
		MediaType: r.FormValue("mediaType"),
		SizeBytes: header.Size,
		AlbumID:   albumID,
		Content:   file,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	quota := quotaSnapshot(ctx, h.Quota, userID)
	respondJSON(ctx, w, http.StatusCreated, assetResponse{Asset: asset, Quota: quota})
}

// List handles GET /api/v1/media. Locked assets are excluded; they are only
// reachable through the locked-folder endpoints.
func (h MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	notLocked := false
	filter := media.AssetFilter{
		State:  models.AssetStateActive,
		Locked: &notLocked,
	}

	if v := r.URL.Query().Get("favorite"); v != "" {
		favorite, err := strconv.ParseBool(v)
		if err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "favorite must be a boolean"})
			return
		}
		filter.Favorite = &favorite
	}
	if v := r.URL.Query().Get("albumId"); v != "" {
		filter.AlbumID = &v
	}

	assets, err := h.Lifecycle.List(ctx, userID, filter)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, assetListResponse{Assets: assets})
}

// Favorite handles POST /api/v1/media/{id}/favorite.
func (h MediaHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asset, err := h.Lifecycle.ToggleFavorite(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, asset)
}

// Lock handles POST /api/v1/media/{id}/lock.
func (h MediaHandler) Lock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	asset, err := h.Lifecycle.ToggleLock(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, asset)
}
