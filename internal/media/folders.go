package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/models"
)

// maxAncestorHops bounds every parent-chain walk. A legitimate tree is never
// this deep, so exceeding the cap is treated as a cycle.
const maxAncestorHops = 1000

// addMediaRetries bounds how often AddMedia re-reads an asset whose folder
// membership changed between the read and the lock acquisition.
const addMediaRetries = 3

// Crumb is one element of a folder path, root first.
type Crumb struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsFolder bool   `json:"isFolder"`
}

// FolderService maintains the per-user folder forest and the bidirectional
// folder/asset membership: an asset's album reference and the owning folder's
// media list always agree, and a folder's cover URL always reflects its first
// member.
type FolderService struct {
	folders FolderStore
	assets  AssetStore
	locks   *KeyLock
	logger  *slog.Logger

	NowFunc func() time.Time
}

// NewFolderService constructs the folder tree service.
func NewFolderService(folders FolderStore, assets AssetStore, locks *KeyLock, logger *slog.Logger) *FolderService {
	if locks == nil {
		panic("media: key lock must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderService{
		folders: folders,
		assets:  assets,
		locks:   locks,
		logger:  logger,
	}
}

func (s *FolderService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// CreateFolderParams carries the caller-supplied attributes of a new folder.
type CreateFolderParams struct {
	Name        string
	Description string
	Category    string
	IsFolder    bool
	ParentID    *string
}

// Create adds a folder under the given parent, or at root level when the
// parent is nil. The parent must resolve under the same user.
func (s *FolderService) Create(ctx context.Context, userID string, params CreateFolderParams) (models.Folder, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Folder{}, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	if params.ParentID != nil {
		if _, err := s.folders.Get(ctx, userID, *params.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.Folder{}, ErrInvalidParent
			}
			return models.Folder{}, fmt.Errorf("resolve parent folder: %w", err)
		}
	}

	now := s.now()
	folder := models.Folder{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: params.Description,
		Category:    params.Category,
		IsFolder:    params.IsFolder,
		ParentID:    params.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		return models.Folder{}, fmt.Errorf("create folder: %w", err)
	}

	return folder, nil
}

// Rename updates a folder's display name.
func (s *FolderService) Rename(ctx context.Context, userID, folderID, name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	release := s.locks.Lock(folderID)
	defer release()

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return models.Folder{}, err
	}

	folder.Name = name
	folder.UpdatedAt = s.now()
	if err := s.folders.Update(ctx, folder); err != nil {
		return models.Folder{}, fmt.Errorf("rename folder: %w", err)
	}

	return folder, nil
}

// AddMedia attaches an asset to a folder. If the asset already belongs to a
// different folder it is detached from that folder first; an asset is never a
// member of two folders at once. Re-adding an existing member is a no-op.
func (s *FolderService) AddMedia(ctx context.Context, userID, folderID, assetID string) error {
	for attempt := 0; attempt < addMediaRetries; attempt++ {
		asset, err := s.assets.Get(ctx, userID, assetID)
		if err != nil {
			return err
		}

		keys := []string{folderID, assetID}
		if asset.AlbumID != nil && *asset.AlbumID != folderID {
			keys = append(keys, *asset.AlbumID)
		}
		release := s.locks.LockKeys(keys...)

		// The membership may have moved between the read and the lock; if it
		// did, the key set is stale and the locks must be taken again.
		current, err := s.assets.Get(ctx, userID, assetID)
		if err != nil {
			release()
			return err
		}
		if !sameAlbum(asset.AlbumID, current.AlbumID) {
			release()
			continue
		}

		err = s.addMediaLocked(ctx, userID, folderID, current)
		release()
		return err
	}

	return fmt.Errorf("add media: membership of asset %s kept changing", assetID)
}

func (s *FolderService) addMediaLocked(ctx context.Context, userID, folderID string, asset models.Asset) error {
	if asset.AlbumID != nil && *asset.AlbumID == folderID {
		return nil
	}

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return err
	}

	if asset.AlbumID != nil {
		source, err := s.folders.Get(ctx, userID, *asset.AlbumID)
		if err == nil {
			source.MediaIDs = removeID(source.MediaIDs, asset.ID)
			s.refreshCover(ctx, &source)
			source.UpdatedAt = s.now()
			if err := s.folders.Update(ctx, source); err != nil {
				return fmt.Errorf("detach asset from folder %s: %w", source.ID, err)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("resolve source folder: %w", err)
		}
	}

	folder.MediaIDs = append(folder.MediaIDs, asset.ID)
	s.refreshCover(ctx, &folder)
	folder.UpdatedAt = s.now()
	if err := s.folders.Update(ctx, folder); err != nil {
		return fmt.Errorf("attach asset to folder %s: %w", folder.ID, err)
	}

	asset.AlbumID = &folder.ID
	if err := s.assets.Update(ctx, asset); err != nil {
		return fmt.Errorf("update asset album: %w", err)
	}

	return nil
}

// RemoveMedia detaches an asset from a folder, clearing its album reference
// back to the main library. Removing a non-member is a no-op.
func (s *FolderService) RemoveMedia(ctx context.Context, userID, folderID, assetID string) error {
	release := s.locks.LockKeys(folderID, assetID)
	defer release()

	if _, err := s.folders.Get(ctx, userID, folderID); err != nil {
		return err
	}

	asset, err := s.assets.Get(ctx, userID, assetID)
	if err != nil {
		return err
	}

	if asset.AlbumID == nil || *asset.AlbumID != folderID {
		return nil
	}

	if err := s.detachMediaLocked(ctx, userID, folderID, assetID); err != nil {
		return err
	}

	asset.AlbumID = nil
	if err := s.assets.Update(ctx, asset); err != nil {
		return fmt.Errorf("clear asset album: %w", err)
	}

	return nil
}

// detachMediaLocked removes an asset from a folder's media list and refreshes
// the cover. The caller must already hold the folder key; a folder that no
// longer exists is treated as already detached.
func (s *FolderService) detachMediaLocked(ctx context.Context, userID, folderID, assetID string) error {
	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("resolve folder: %w", err)
	}

	folder.MediaIDs = removeID(folder.MediaIDs, assetID)
	s.refreshCover(ctx, &folder)
	folder.UpdatedAt = s.now()
	if err := s.folders.Update(ctx, folder); err != nil {
		return fmt.Errorf("detach asset from folder %s: %w", folder.ID, err)
	}

	return nil
}

// Move reparents a folder. The ancestor chain of the new parent is walked to
// the root first and the move is rejected before any mutation if the folder
// itself appears in that chain. The folder and its new parent are locked as a
// pair so opposite-direction moves serialise and the loser re-reads the
// committed edge instead of checking a stale tree.
func (s *FolderService) Move(ctx context.Context, userID, folderID string, newParentID *string) (models.Folder, error) {
	keys := []string{folderID}
	if newParentID != nil {
		keys = append(keys, *newParentID)
	}
	release := s.locks.LockKeys(keys...)
	defer release()

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return models.Folder{}, err
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return models.Folder{}, ErrCyclicMove
		}

		parent, err := s.folders.Get(ctx, userID, *newParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.Folder{}, ErrInvalidParent
			}
			return models.Folder{}, fmt.Errorf("resolve new parent: %w", err)
		}

		if err := s.ensureNotDescendant(ctx, userID, folderID, parent); err != nil {
			return models.Folder{}, err
		}
	}

	folder.ParentID = newParentID
	folder.UpdatedAt = s.now()
	if err := s.folders.Update(ctx, folder); err != nil {
		return models.Folder{}, fmt.Errorf("move folder: %w", err)
	}

	return folder, nil
}

// ensureNotDescendant walks from candidate parent to the root and fails with
// ErrCyclicMove if folderID occurs anywhere on the chain.
func (s *FolderService) ensureNotDescendant(ctx context.Context, userID, folderID string, parent models.Folder) error {
	current := parent
	for hops := 0; ; hops++ {
		if current.ID == folderID {
			return ErrCyclicMove
		}
		if current.ParentID == nil {
			return nil
		}
		if hops >= maxAncestorHops {
			return ErrCyclicMove
		}

		next, err := s.folders.Get(ctx, userID, *current.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Orphaned ancestor: the chain ends here, so no cycle.
				s.logger.Warn("folder ancestor unresolved during move",
					"userId", userID, "folderId", current.ID, "parentId", *current.ParentID)
				return nil
			}
			return fmt.Errorf("walk ancestor chain: %w", err)
		}
		current = next
	}
}

// Path returns the chain of folders from the root down to folderID. A broken
// parent link truncates the path at the orphaned node rather than failing;
// the inconsistency is logged.
func (s *FolderService) Path(ctx context.Context, userID, folderID string) ([]Crumb, error) {
	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	crumbs := []Crumb{{ID: folder.ID, Name: folder.Name, IsFolder: folder.IsFolder}}
	current := folder
	for hops := 0; current.ParentID != nil && hops < maxAncestorHops; hops++ {
		next, err := s.folders.Get(ctx, userID, *current.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.logger.Warn("folder ancestor unresolved in path walk",
					"userId", userID, "folderId", current.ID, "parentId", *current.ParentID)
				break
			}
			return nil, fmt.Errorf("walk folder path: %w", err)
		}
		crumbs = append(crumbs, Crumb{ID: next.ID, Name: next.Name, IsFolder: next.IsFolder})
		current = next
	}

	for i, j := 0, len(crumbs)-1; i < j; i, j = i+1, j-1 {
		crumbs[i], crumbs[j] = crumbs[j], crumbs[i]
	}

	return crumbs, nil
}

// Delete removes a folder and, depth first, every descendant folder. Member
// assets are never deleted; their album references are cleared back to the
// main library.
func (s *FolderService) Delete(ctx context.Context, userID, folderID string) error {
	if _, err := s.folders.Get(ctx, userID, folderID); err != nil {
		return err
	}
	return s.deleteTree(ctx, userID, folderID, 0)
}

func (s *FolderService) deleteTree(ctx context.Context, userID, folderID string, depth int) error {
	if depth > maxAncestorHops {
		return fmt.Errorf("delete folder %s: tree deeper than %d levels", folderID, maxAncestorHops)
	}

	id := folderID
	children, err := s.folders.ListChildren(ctx, userID, &id)
	if err != nil {
		return fmt.Errorf("list folder children: %w", err)
	}
	for _, child := range children {
		if err := s.deleteTree(ctx, userID, child.ID, depth+1); err != nil {
			return err
		}
	}

	release := s.locks.Lock(folderID)
	defer release()

	if err := s.assets.DetachAlbum(ctx, userID, folderID); err != nil {
		return fmt.Errorf("detach folder media: %w", err)
	}
	if err := s.folders.Delete(ctx, userID, folderID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete folder: %w", err)
	}

	return nil
}

// ListChildren returns the direct child folders of folderID.
func (s *FolderService) ListChildren(ctx context.Context, userID, folderID string) ([]models.Folder, error) {
	if _, err := s.folders.Get(ctx, userID, folderID); err != nil {
		return nil, err
	}
	id := folderID
	return s.folders.ListChildren(ctx, userID, &id)
}

// ListRoots returns the user's root-level folders.
func (s *FolderService) ListRoots(ctx context.Context, userID string) ([]models.Folder, error) {
	return s.folders.ListChildren(ctx, userID, nil)
}

// refreshCover re-derives the folder's cover URL from its first member. An
// unresolvable first member degrades to an empty cover and is logged.
func (s *FolderService) refreshCover(ctx context.Context, folder *models.Folder) {
	folder.CoverURL = ""
	if len(folder.MediaIDs) == 0 {
		return
	}

	first, err := s.assets.Get(ctx, folder.UserID, folder.MediaIDs[0])
	if err != nil {
		s.logger.Warn("cover asset unresolved",
			"userId", folder.UserID, "folderId", folder.ID, "assetId", folder.MediaIDs[0], "error", err)
		return
	}
	folder.CoverURL = first.StorageURL
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func sameAlbum(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
