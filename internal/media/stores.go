package media

import (
	"context"
	"io"
	"time"

	"github.com/mediavault/backend/internal/models"
)

// AssetFilter narrows asset listings and size aggregations. Nil pointer
// fields are ignored.
type AssetFilter struct {
	State    string
	Locked   *bool
	Favorite *bool
	AlbumID  *string
}

// AssetStore is the persistence contract for media assets. Every operation is
// scoped to a user id and reports ErrNotFound when the id does not resolve
// under that user.
type AssetStore interface {
	Create(ctx context.Context, asset models.Asset) error
	Get(ctx context.Context, userID, id string) (models.Asset, error)
	Update(ctx context.Context, asset models.Asset) error
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, filter AssetFilter) ([]models.Asset, error)
	SumSize(ctx context.Context, userID string, filter AssetFilter) (int64, error)

	// DetachAlbum clears the album reference of every asset that currently
	// belongs to the given folder.
	DetachAlbum(ctx context.Context, userID, albumID string) error

	// ListExpired returns trashed assets across all users whose scheduled
	// delete time is at or before the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]models.Asset, error)
}

// FolderStore is the persistence contract for the per-user folder forest.
type FolderStore interface {
	Create(ctx context.Context, folder models.Folder) error
	Get(ctx context.Context, userID, id string) (models.Folder, error)
	Update(ctx context.Context, folder models.Folder) error
	Delete(ctx context.Context, userID, id string) error

	// ListChildren returns the folders directly under parentID (nil for root
	// level), ordered isFolder descending then name ascending.
	ListChildren(ctx context.Context, userID string, parentID *string) ([]models.Folder, error)
}

// LockedSessionStore persists per-user locked-folder sessions.
type LockedSessionStore interface {
	Get(ctx context.Context, userID string) (models.LockedSession, error)
	Save(ctx context.Context, session models.LockedSession) error
}

// StoredObject identifies an uploaded object in external storage.
type StoredObject struct {
	URL string
	ID  string
}

// ObjectStorage is the external object-store collaborator. Put must return a
// usable URL/id pair on success; Delete is best effort.
type ObjectStorage interface {
	Put(ctx context.Context, name, mediaType string, r io.Reader) (StoredObject, error)
	Delete(ctx context.Context, id, mediaType string) error
}
