package media

import "errors"

var (
	// ErrNotFound indicates the record does not exist or is not owned by the
	// caller. The two cases are deliberately indistinguishable so that ids
	// belonging to other users never leak existence.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInvalidParent indicates the requested parent folder does not resolve.
	ErrInvalidParent = errors.New("invalid parent folder")
	// ErrCyclicMove indicates a folder move that would create a cycle.
	ErrCyclicMove = errors.New("folder move would create a cycle")
	// ErrNotInTrash indicates a permanent delete on an asset that is not trashed.
	ErrNotInTrash = errors.New("asset is not in the trash")
	// ErrAccessDenied indicates a missing or expired locked-folder session.
	ErrAccessDenied = errors.New("locked folder access denied")
	// ErrInvalidInput indicates a missing required field or malformed value.
	ErrInvalidInput = errors.New("invalid input")
)
