package media

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mediavault/backend/internal/models"
)

// NewInMemoryAssetStore returns an AssetStore backed by an in-memory map.
func NewInMemoryAssetStore() *InMemoryAssetStore {
	return &InMemoryAssetStore{assets: make(map[string]models.Asset)}
}

// InMemoryAssetStore implements AssetStore for tests and local development.
type InMemoryAssetStore struct {
	mu     sync.RWMutex
	assets map[string]models.Asset
}

// Create stores a new asset record.
func (s *InMemoryAssetStore) Create(_ context.Context, asset models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; ok {
		return ErrConflict
	}
	s.assets[asset.ID] = cloneAsset(asset)
	return nil
}

// Get returns an asset scoped by its owner.
func (s *InMemoryAssetStore) Get(_ context.Context, userID, id string) (models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[id]
	if !ok || asset.UserID != userID {
		return models.Asset{}, ErrNotFound
	}
	return cloneAsset(asset), nil
}

// Update replaces an existing asset record, scoped by its owner.
func (s *InMemoryAssetStore) Update(_ context.Context, asset models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.assets[asset.ID]
	if !ok || existing.UserID != asset.UserID {
		return ErrNotFound
	}
	s.assets[asset.ID] = cloneAsset(asset)
	return nil
}

// Delete removes an asset record, scoped by its owner.
func (s *InMemoryAssetStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[id]
	if !ok || asset.UserID != userID {
		return ErrNotFound
	}
	delete(s.assets, id)
	return nil
}

// List returns the user's assets matching the filter, newest first.
func (s *InMemoryAssetStore) List(_ context.Context, userID string, filter AssetFilter) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Asset
	for _, asset := range s.assets {
		if asset.UserID != userID || !matchesFilter(asset, filter) {
			continue
		}
		out = append(out, cloneAsset(asset))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SumSize totals the sizes of the user's assets matching the filter.
func (s *InMemoryAssetStore) SumSize(_ context.Context, userID string, filter AssetFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, asset := range s.assets {
		if asset.UserID == userID && matchesFilter(asset, filter) {
			total += asset.SizeBytes
		}
	}
	return total, nil
}

// DetachAlbum clears the album reference of every asset in the folder.
func (s *InMemoryAssetStore) DetachAlbum(_ context.Context, userID, albumID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, asset := range s.assets {
		if asset.UserID == userID && asset.AlbumID != nil && *asset.AlbumID == albumID {
			asset.AlbumID = nil
			s.assets[id] = asset
		}
	}
	return nil
}

// ListExpired returns trashed assets across all users whose scheduled delete
// time is at or before the cutoff.
func (s *InMemoryAssetStore) ListExpired(_ context.Context, cutoff time.Time) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Asset
	for _, asset := range s.assets {
		if asset.State == models.AssetStateTrashed && asset.ScheduledDeleteAt != nil && !asset.ScheduledDeleteAt.After(cutoff) {
			out = append(out, cloneAsset(asset))
		}
	}
	return out, nil
}

func matchesFilter(asset models.Asset, filter AssetFilter) bool {
	if filter.State != "" && asset.State != filter.State {
		return false
	}
	if filter.Locked != nil && asset.IsLocked != *filter.Locked {
		return false
	}
	if filter.Favorite != nil && asset.Favorite != *filter.Favorite {
		return false
	}
	if filter.AlbumID != nil {
		if asset.AlbumID == nil || *asset.AlbumID != *filter.AlbumID {
			return false
		}
	}
	return true
}

func cloneAsset(asset models.Asset) models.Asset {
	out := asset
	out.AlbumID = cloneString(asset.AlbumID)
	out.LockedAt = cloneTime(asset.LockedAt)
	out.TrashedAt = cloneTime(asset.TrashedAt)
	out.ScheduledDeleteAt = cloneTime(asset.ScheduledDeleteAt)
	return out
}

// NewInMemoryFolderStore returns a FolderStore backed by an in-memory map.
func NewInMemoryFolderStore() *InMemoryFolderStore {
	return &InMemoryFolderStore{folders: make(map[string]models.Folder)}
}

// InMemoryFolderStore implements FolderStore for tests and local development.
type InMemoryFolderStore struct {
	mu      sync.RWMutex
	folders map[string]models.Folder
}

// Create stores a new folder record.
func (s *InMemoryFolderStore) Create(_ context.Context, folder models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[folder.ID]; ok {
		return ErrConflict
	}
	s.folders[folder.ID] = cloneFolder(folder)
	return nil
}

// Get returns a folder scoped by its owner.
func (s *InMemoryFolderStore) Get(_ context.Context, userID, id string) (models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok || folder.UserID != userID {
		return models.Folder{}, ErrNotFound
	}
	return cloneFolder(folder), nil
}

// Update replaces an existing folder record, scoped by its owner.
func (s *InMemoryFolderStore) Update(_ context.Context, folder models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.folders[folder.ID]
	if !ok || existing.UserID != folder.UserID {
		return ErrNotFound
	}
	s.folders[folder.ID] = cloneFolder(folder)
	return nil
}

// Delete removes a folder record, scoped by its owner.
func (s *InMemoryFolderStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.UserID != userID {
		return ErrNotFound
	}
	delete(s.folders, id)
	return nil
}

// ListChildren returns the folders directly under parentID (nil for roots),
// ordered folders-before-albums then by name.
func (s *InMemoryFolderStore) ListChildren(_ context.Context, userID string, parentID *string) ([]models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Folder
	for _, folder := range s.folders {
		if folder.UserID != userID {
			continue
		}
		if parentID == nil {
			if folder.ParentID != nil {
				continue
			}
		} else if folder.ParentID == nil || *folder.ParentID != *parentID {
			continue
		}
		out = append(out, cloneFolder(folder))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFolder != out[j].IsFolder {
			return out[i].IsFolder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func cloneFolder(folder models.Folder) models.Folder {
	out := folder
	out.ParentID = cloneString(folder.ParentID)
	out.MediaIDs = append([]string(nil), folder.MediaIDs...)
	return out
}

// NewInMemoryLockedSessionStore returns a LockedSessionStore backed by an
// in-memory map.
func NewInMemoryLockedSessionStore() *InMemoryLockedSessionStore {
	return &InMemoryLockedSessionStore{sessions: make(map[string]models.LockedSession)}
}

// InMemoryLockedSessionStore implements LockedSessionStore for tests and
// local development.
type InMemoryLockedSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.LockedSession
}

// Get returns the user's locked-folder session.
func (s *InMemoryLockedSessionStore) Get(_ context.Context, userID string) (models.LockedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return models.LockedSession{}, ErrNotFound
	}
	session.SessionExpires = cloneTime(session.SessionExpires)
	return session, nil
}

// Save stores or updates the user's locked-folder session.
func (s *InMemoryLockedSessionStore) Save(_ context.Context, session models.LockedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.SessionExpires = cloneTime(session.SessionExpires)
	s.sessions[session.UserID] = session
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

var _ AssetStore = (*InMemoryAssetStore)(nil)
var _ FolderStore = (*InMemoryFolderStore)(nil)
var _ LockedSessionStore = (*InMemoryLockedSessionStore)(nil)
