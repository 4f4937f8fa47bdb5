package handlers

import (
	"context"
	"time"

	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

// FolderManager captures the folder-tree operations required by the HTTP handlers.
type FolderManager interface {
	Create(ctx context.Context, userID string, params media.CreateFolderParams) (models.Folder, error)
	Rename(ctx context.Context, userID, folderID, name string) (models.Folder, error)
	Move(ctx context.Context, userID, folderID string, newParentID *string) (models.Folder, error)
	Delete(ctx context.Context, userID, folderID string) error
	Path(ctx context.Context, userID, folderID string) ([]media.Crumb, error)
	AddMedia(ctx context.Context, userID, folderID, assetID string) error
	RemoveMedia(ctx context.Context, userID, folderID, assetID string) error
	ListChildren(ctx context.Context, userID, folderID string) ([]models.Folder, error)
	ListRoots(ctx context.Context, userID string) ([]models.Folder, error)
}

// MediaLifecycle captures the asset lifecycle operations required by the handlers.
type MediaLifecycle interface {
	Upload(ctx context.Context, userID string, params media.UploadParams) (models.Asset, error)
	List(ctx context.Context, userID string, filter media.AssetFilter) ([]models.Asset, error)
	ToggleFavorite(ctx context.Context, userID, assetID string) (models.Asset, error)
	ToggleLock(ctx context.Context, userID, assetID string) (models.Asset, error)
	Trash(ctx context.Context, userID, assetID string) (models.Asset, error)
	Restore(ctx context.Context, userID, assetID string) (models.Asset, error)
	DeletePermanently(ctx context.Context, userID, assetID string) error
	BulkTrash(ctx context.Context, userID string, assetIDs []string) (int, error)
	BulkRestore(ctx context.Context, userID string, assetIDs []string) (int, error)
}

// LockedFolder captures the locked-folder gate operations required by the handlers.
type LockedFolder interface {
	SetPassword(ctx context.Context, userID, password string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
	Unlock(ctx context.Context, userID, password string) (time.Time, error)
	Relock(ctx context.Context, userID string) error
	ListLocked(ctx context.Context, userID string) ([]models.LockedAsset, error)
	AccessByToken(ctx context.Context, userID, token string) (string, error)
}

// QuotaProvider computes storage usage snapshots.
type QuotaProvider interface {
	Snapshot(ctx context.Context, userID string) (models.QuotaSnapshot, error)
}

// HealthChecker reports backing-store reachability for the health endpoint.
type HealthChecker func(ctx context.Context) error
