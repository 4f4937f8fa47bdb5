package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/models"
)

// DefaultTrashRetention is how long a trashed asset survives before the sweep
// reclaims it.
const DefaultTrashRetention = 15 * 24 * time.Hour

// LifecycleService moves assets through their lifecycle: creation on upload,
// favorite and lock toggles, trash/restore, and permanent deletion.
type LifecycleService struct {
	assets    AssetStore
	folders   *FolderService
	objects   ObjectStorage
	locks     *KeyLock
	retention time.Duration
	logger    *slog.Logger

	NowFunc func() time.Time
}

// NewLifecycleService constructs the lifecycle engine. A non-positive
// retention falls back to DefaultTrashRetention.
func NewLifecycleService(assets AssetStore, folders *FolderService, objects ObjectStorage, locks *KeyLock, retention time.Duration, logger *slog.Logger) *LifecycleService {
	if locks == nil {
		panic("media: key lock must not be nil")
	}
	if retention <= 0 {
		retention = DefaultTrashRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{
		assets:    assets,
		folders:   folders,
		objects:   objects,
		locks:     locks,
		retention: retention,
		logger:    logger,
	}
}

func (s *LifecycleService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// UploadParams carries everything needed to store a new asset.
type UploadParams struct {
	Name      string
	MediaType string
	SizeBytes int64
	AlbumID   *string
	Content   io.Reader
}

// Upload stores the content in object storage and records the asset. The
// album, when given, is resolved before anything is written so a bad album id
// does not strand the asset in the main library; the object is written before
// the record so that a failed upload never leaves a record behind.
func (s *LifecycleService) Upload(ctx context.Context, userID string, params UploadParams) (models.Asset, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Asset{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if params.MediaType != models.MediaTypeImage && params.MediaType != models.MediaTypeVideo {
		return models.Asset{}, fmt.Errorf("%w: media type must be image or video", ErrInvalidInput)
	}
	if params.SizeBytes < 0 {
		return models.Asset{}, fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}
	if params.AlbumID != nil {
		if _, err := s.folders.folders.Get(ctx, userID, *params.AlbumID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.Asset{}, fmt.Errorf("%w: album %s does not exist", ErrInvalidParent, *params.AlbumID)
			}
			return models.Asset{}, fmt.Errorf("resolve album: %w", err)
		}
	}

	stored, err := s.objects.Put(ctx, name, params.MediaType, params.Content)
	if err != nil {
		return models.Asset{}, fmt.Errorf("store object: %w", err)
	}

	asset := models.Asset{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: name,
		MediaType:    params.MediaType,
		StorageURL:   stored.URL,
		StorageID:    stored.ID,
		SizeBytes:    params.SizeBytes,
		State:        models.AssetStateActive,
		CreatedAt:    s.now(),
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		return models.Asset{}, fmt.Errorf("create asset record: %w", err)
	}

	if params.AlbumID != nil {
		// The album can disappear between the resolve above and the attach.
		// The object and record are committed at this point, so hand the
		// asset back with the error instead of pretending it does not exist.
		if err := s.folders.AddMedia(ctx, userID, *params.AlbumID, asset.ID); err != nil {
			return asset, fmt.Errorf("attach uploaded asset to album: %w", err)
		}
		asset.AlbumID = params.AlbumID
	}

	return asset, nil
}

// List returns the user's assets matching the filter.
func (s *LifecycleService) List(ctx context.Context, userID string, filter AssetFilter) ([]models.Asset, error) {
	return s.assets.List(ctx, userID, filter)
}

// ToggleFavorite flips the favorite flag and returns the updated asset.
func (s *LifecycleService) ToggleFavorite(ctx context.Context, userID, assetID string) (models.Asset, error) {
	release := s.locks.Lock(assetID)
	defer release()

	asset, err := s.assets.Get(ctx, userID, assetID)
	if err != nil {
		return models.Asset{}, err
	}

	asset.Favorite = !asset.Favorite
	if err := s.assets.Update(ctx, asset); err != nil {
		return models.Asset{}, fmt.Errorf("toggle favorite: %w", err)
	}

	return asset, nil
}

// ToggleLock flips the locked flag. There is deliberately no "already locked"
// failure mode; the operation is a toggle, not a set.
func (s *LifecycleService) ToggleLock(ctx context.Context, userID, assetID string) (models.Asset, error) {
	release := s.locks.Lock(assetID)
	defer release()

	asset, err := s.assets.Get(ctx, userID, assetID)
	if err != nil {
		return models.Asset{}, err
	}

	if asset.IsLocked {
		asset.IsLocked = false
		asset.LockedAt = nil
	} else {
		now := s.now()
		asset.IsLocked = true
		asset.LockedAt = &now
	}

	if err := s.assets.Update(ctx, asset); err != nil {
		return models.Asset{}, fmt.Errorf("toggle lock: %w", err)
	}

	return asset, nil
}

// Trash moves an asset into the trash and schedules its reclamation after the
// retention window. Trashing a trashed asset is a no-op.
func (s *LifecycleService) Trash(ctx context.Context, userID, assetID string) (models.Asset, error) {
	release := s.locks.Lock(assetID)
	defer release()
	return s.trashLocked(ctx, userID, assetID)
}

func (s *LifecycleService) trashLocked(ctx context.Context, userID, assetID string) (models.Asset, error) {
	asset, err := s.assets.Get(ctx, userID, assetID)
	if err != nil {
		return models.Asset{}, err
	}
	if asset.Trashed() {
		return asset, nil
	}

	now := s.now()
	deadline := now.Add(s.retention)
	asset.State = models.AssetStateTrashed
	asset.TrashedAt = &now
	asset.ScheduledDeleteAt = &deadline

	if err := s.assets.Update(ctx, asset); err != nil {
		return models.Asset{}, fmt.Errorf("trash asset: %w", err)
	}

	return asset, nil
}

// Restore brings a trashed asset back to the active state, clearing both
// trash timestamps. Restoring an active asset is a no-op.
func (s *LifecycleService) Restore(ctx context.Context, userID, assetID string) (models.Asset, error) {
	release := s.locks.Lock(assetID)
	defer release()
	return s.restoreLocked(ctx, userID, assetID)
}

func (s *LifecycleService) restoreLocked(ctx context.Context, userID, assetID string) (models.Asset, error) {
	asset, err := s.assets.Get(ctx, userID, assetID)
	if err != nil {
		return models.Asset{}, err
	}
	if !asset.Trashed() {
		return asset, nil
	}

	asset.State = models.AssetStateActive
	asset.TrashedAt = nil
	asset.ScheduledDeleteAt = nil

	if err := s.assets.Update(ctx, asset); err != nil {
		return models.Asset{}, fmt.Errorf("restore asset: %w", err)
	}

	return asset, nil
}

// DeletePermanently destroys a trashed asset: the external object is released
// best effort and the record is removed. Active assets are rejected with
// ErrNotInTrash.
func (s *LifecycleService) DeletePermanently(ctx context.Context, userID, assetID string) error {
	asset, release, err := s.lockAssetWithAlbum(ctx, userID, assetID)
	if err != nil {
		return err
	}
	defer release()

	if !asset.Trashed() {
		return ErrNotInTrash
	}

	return s.reclaimLocked(ctx, asset)
}

// SweepExpired reclaims every trashed asset whose scheduled delete time has
// passed. It is safe to run concurrently with user-initiated restores:
// whichever side wins, the loser sees a no-longer-matching asset and skips.
func (s *LifecycleService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.assets.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired assets: %w", err)
	}

	reclaimed := 0
	for _, candidate := range expired {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}

		asset, release, err := s.lockAssetWithAlbum(ctx, candidate.UserID, candidate.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return reclaimed, err
		}

		// Re-check under the lock: a concurrent restore wins the race.
		if !asset.Trashed() || asset.ScheduledDeleteAt == nil || asset.ScheduledDeleteAt.After(s.now()) {
			release()
			continue
		}

		err = s.reclaimLocked(ctx, asset)
		release()
		if err != nil {
			return reclaimed, err
		}
		reclaimed++
	}

	return reclaimed, nil
}

// lockAssetWithAlbum acquires the asset key together with its current folder
// key in a single ordered acquisition, re-reading the asset afterwards to
// confirm the key set is still the right one.
func (s *LifecycleService) lockAssetWithAlbum(ctx context.Context, userID, assetID string) (models.Asset, func(), error) {
	for attempt := 0; attempt < addMediaRetries; attempt++ {
		asset, err := s.assets.Get(ctx, userID, assetID)
		if err != nil {
			return models.Asset{}, nil, err
		}

		keys := []string{assetID}
		if asset.AlbumID != nil {
			keys = append(keys, *asset.AlbumID)
		}
		release := s.locks.LockKeys(keys...)

		current, err := s.assets.Get(ctx, userID, assetID)
		if err != nil {
			release()
			return models.Asset{}, nil, err
		}
		if sameAlbum(asset.AlbumID, current.AlbumID) {
			return current, release, nil
		}
		release()
	}

	return models.Asset{}, nil, fmt.Errorf("lock asset %s: membership kept changing", assetID)
}

// reclaimLocked releases the external object and removes the asset record.
// A failed release is logged and the record is removed regardless; an
// orphaned remote object is preferable to a trash ledger that never shrinks.
// The caller must hold the asset key and, when the asset belongs to a folder,
// that folder's key.
func (s *LifecycleService) reclaimLocked(ctx context.Context, asset models.Asset) error {
	if err := s.objects.Delete(ctx, asset.StorageID, asset.MediaType); err != nil {
		s.logger.Warn("release stored object failed",
			"userId", asset.UserID, "assetId", asset.ID, "storageId", asset.StorageID, "error", err)
	}

	if asset.AlbumID != nil {
		if err := s.folders.detachMediaLocked(ctx, asset.UserID, *asset.AlbumID, asset.ID); err != nil {
			return fmt.Errorf("detach reclaimed asset: %w", err)
		}
	}

	if err := s.assets.Delete(ctx, asset.UserID, asset.ID); err != nil {
		return fmt.Errorf("delete asset record: %w", err)
	}

	return nil
}

// BulkTrash trashes each listed asset, skipping ids that do not resolve under
// the caller. It reports how many assets were trashed; the batch is not
// atomic and already-applied items stay applied if the context is cancelled.
func (s *LifecycleService) BulkTrash(ctx context.Context, userID string, assetIDs []string) (int, error) {
	return s.bulk(ctx, userID, assetIDs, s.trashLocked)
}

// BulkRestore restores each listed asset with the same batch contract as
// BulkTrash.
func (s *LifecycleService) BulkRestore(ctx context.Context, userID string, assetIDs []string) (int, error) {
	return s.bulk(ctx, userID, assetIDs, s.restoreLocked)
}

func (s *LifecycleService) bulk(ctx context.Context, userID string, assetIDs []string, op func(context.Context, string, string) (models.Asset, error)) (int, error) {
	applied := 0
	for _, assetID := range assetIDs {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		release := s.locks.Lock(assetID)
		_, err := op(ctx, userID, assetID)
		release()

		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return applied, err
		}
		applied++
	}
	return applied, nil
}
