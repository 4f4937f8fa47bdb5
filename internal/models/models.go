package models

import "time"

// MediaType values for an asset.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Lifecycle states for an asset. Locking is an orthogonal flag, not a state.
const (
	AssetStateActive  = "active"
	AssetStateTrashed = "trashed"
)

// Asset represents one media item together with its object-storage reference.
// An asset belongs to exactly one user and to at most one folder; a nil
// AlbumID means it lives in the main library.
type Asset struct {
	ID           string
	UserID       string
	OriginalName string
	MediaType    string
	StorageURL   string
	StorageID    string
	SizeBytes    int64

	AlbumID  *string
	Favorite bool

	State    string
	IsLocked bool
	LockedAt *time.Time

	TrashedAt         *time.Time
	ScheduledDeleteAt *time.Time

	CreatedAt time.Time
}

// Trashed reports whether the asset currently sits in the trash.
func (a Asset) Trashed() bool {
	return a.State == AssetStateTrashed
}

// Folder is a node in a per-user tree. It may contain child folders and holds
// direct media membership in MediaIDs, whose order is the display order.
// CoverURL is derived: always the storage URL of MediaIDs[0], or empty.
type Folder struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Category    string
	IsFolder    bool
	ParentID    *string
	MediaIDs    []string
	CoverURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LockedSession records a user's locked-folder access grant. A session with
// HasAccess set but SessionExpires in the past is equivalent to no access.
type LockedSession struct {
	UserID         string
	PasswordHash   string
	HasAccess      bool
	SessionExpires *time.Time
}

// QuotaSnapshot summarises a user's storage usage at a point in time.
type QuotaSnapshot struct {
	Used       int64   `json:"used"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// LockedAsset pairs a locked asset with the capability token that authorises
// one short-lived access to its content.
type LockedAsset struct {
	Asset Asset
	Token string
}
