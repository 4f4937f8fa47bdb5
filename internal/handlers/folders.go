package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mediavault/backend/internal/logging"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

// FolderHandler implements the folder and album tree endpoints.
type FolderHandler struct {
	Folders FolderManager
}

type createFolderRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	IsFolder    bool    `json:"isFolder"`
	ParentID    *string `json:"parentId"`
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

type moveFolderRequest struct {
	NewParentID *string `json:"newParentId"`
}

type folderMediaRequest struct {
	MediaID string `json:"mediaId"`
}

type folderListResponse struct {
	Folders []models.Folder `json:"folders"`
}

type folderPathResponse struct {
	Path []media.Crumb `json:"path"`
}

// Create handles POST /api/v1/folders.
func (h FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid create folder payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	folder, err := h.Folders.Create(ctx, userID, media.CreateFolderParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsFolder:    req.IsFolder,
		ParentID:    req.ParentID,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, folder)
}

// Rename handles POST /api/v1/folders/{id}/rename.
func (h FolderHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req renameFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid rename payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	folder, err := h.Folders.Rename(ctx, userID, r.PathValue("id"), req.Name)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, folder)
}

// Move handles POST /api/v1/folders/{id}/move.
func (h FolderHandler) Move(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req moveFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid move payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	folder, err := h.Folders.Move(ctx, userID, r.PathValue("id"), req.NewParentID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, folder)
}

// Delete handles DELETE /api/v1/folders/{id}.
func (h FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Folders.Delete(ctx, userID, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Path handles GET /api/v1/folders/{id}/path.
func (h FolderHandler) Path(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	crumbs, err := h.Folders.Path(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, folderPathResponse{Path: crumbs})
}

// AddMedia handles POST /api/v1/folders/{id}/media.
func (h FolderHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req folderMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid add media payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.MediaID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "mediaId is required"})
		return
	}

	if err := h.Folders.AddMedia(ctx, userID, r.PathValue("id"), req.MediaID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "added"})
}

// RemoveMedia handles DELETE /api/v1/folders/{id}/media/{mediaId}.
func (h FolderHandler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Folders.RemoveMedia(ctx, userID, r.PathValue("id"), r.PathValue("mediaId")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}

// ListChildren handles GET /api/v1/folders/{id}/children.
func (h FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	folders, err := h.Folders.ListChildren(ctx, userID, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, folderListResponse{Folders: folders})
}

// ListRoots handles GET /api/v1/folders.
func (h FolderHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	folders, err := h.Folders.ListRoots(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, folderListResponse{Folders: folders})
}
