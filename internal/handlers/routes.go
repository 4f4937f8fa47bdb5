package handlers

import (
	"net/http"

	"github.com/mediavault/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Folders       FolderManager
	Lifecycle     MediaLifecycle
	Locked        LockedFolder
	Quota         QuotaProvider
	Health        HealthChecker
	UploadLimiter middleware.RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Every
// /api/v1 route requires the gateway identity header; uploads additionally
// pass through the per-user rate limiter.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Check: deps.Health}
	folders := FolderHandler{Folders: deps.Folders}
	assets := MediaHandler{Lifecycle: deps.Lifecycle, Quota: deps.Quota}
	trash := TrashHandler{Lifecycle: deps.Lifecycle, Quota: deps.Quota}
	locked := LockedHandler{Locked: deps.Locked}
	quota := QuotaHandler{Quota: deps.Quota}

	mux.Handle("/healthz", health)

	api := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, middleware.Identity(handler))
	}

	upload := http.Handler(http.HandlerFunc(assets.Upload))
	if deps.UploadLimiter != nil {
		upload = middleware.Limit(deps.UploadLimiter)(upload)
	}
	mux.Handle("POST /api/v1/media", middleware.Identity(upload))

	api("GET /api/v1/media", assets.List)
	api("POST /api/v1/media/{id}/favorite", assets.Favorite)
	api("POST /api/v1/media/{id}/lock", assets.Lock)
	api("POST /api/v1/media/{id}/trash", trash.Trash)

	api("POST /api/v1/folders", folders.Create)
	api("GET /api/v1/folders", folders.ListRoots)
	api("POST /api/v1/folders/{id}/rename", folders.Rename)
	api("POST /api/v1/folders/{id}/move", folders.Move)
	api("DELETE /api/v1/folders/{id}", folders.Delete)
	api("GET /api/v1/folders/{id}/path", folders.Path)
	api("GET /api/v1/folders/{id}/children", folders.ListChildren)
	api("POST /api/v1/folders/{id}/media", folders.AddMedia)
	api("DELETE /api/v1/folders/{id}/media/{mediaId}", folders.RemoveMedia)

	api("GET /api/v1/trash", trash.List)
	api("POST /api/v1/trash/{id}/restore", trash.Restore)
	api("DELETE /api/v1/trash/{id}", trash.Delete)
	api("POST /api/v1/trash/bulk", trash.BulkTrash)
	api("POST /api/v1/trash/bulk/restore", trash.BulkRestore)

	api("POST /api/v1/locked/password", locked.SetPassword)
	api("PUT /api/v1/locked/password", locked.ChangePassword)
	api("POST /api/v1/locked/unlock", locked.Unlock)
	api("POST /api/v1/locked/relock", locked.Relock)
	api("GET /api/v1/locked", locked.List)
	api("GET /api/v1/locked/access", locked.Access)

	api("GET /api/v1/quota", quota.Snapshot)
}
