package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mediavault/backend/internal/logging"
	"github.com/mediavault/backend/internal/models"
)

// LockedHandler implements the password-gated locked-folder endpoints.
type LockedHandler struct {
	Locked LockedFolder
}

type lockedPasswordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

type unlockResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type lockedListResponse struct {
	Assets []models.LockedAsset `json:"assets"`
}

type lockedAccessResponse struct {
	URL string `json:"url"`
}

// SetPassword handles POST /api/v1/locked/password.
func (h LockedHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req lockedPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid set password payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Locked.SetPassword(ctx, userID, req.Password); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "password set"})
}

// ChangePassword handles PUT /api/v1/locked/password. The active unlock
// session, if any, is revoked.
func (h LockedHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid change password payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Locked.ChangePassword(ctx, userID, req.Current, req.Next); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "password changed"})
}

// Unlock handles POST /api/v1/locked/unlock.
func (h LockedHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req lockedPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid unlock payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	expires, err := h.Locked.Unlock(ctx, userID, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, unlockResponse{ExpiresAt: expires})
}

// Relock handles POST /api/v1/locked/relock.
func (h LockedHandler) Relock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Locked.Relock(ctx, userID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "relocked"})
}

// List handles GET /api/v1/locked. Each asset carries a short-lived access
// token for fetching its content.
func (h LockedHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	assets, err := h.Locked.ListLocked(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, lockedListResponse{Assets: assets})
}

// Access handles GET /api/v1/locked/access. The token query parameter is
// exchanged for the asset's storage URL.
func (h LockedHandler) Access(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	url, err := h.Locked.AccessByToken(ctx, userID, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, lockedAccessResponse{URL: url})
}
