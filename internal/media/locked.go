package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mediavault/backend/internal/models"
)

// DefaultLockedSessionTTL is how long a password-verified locked-folder
// session stays valid.
const DefaultLockedSessionTTL = 5 * time.Minute

// DefaultAccessTokenWindow is the validity window of a per-access capability
// token. Tokens are accepted for the current and the immediately previous
// window so a listing stays usable across the window boundary.
const DefaultAccessTokenWindow = 5 * time.Minute

const minLockedPasswordLength = 4

// LockedFolderService gates access to locked assets behind a short-lived,
// password-reverified session. Listing hands out capability tokens derived
// from the asset id and a coarse time window; AccessByToken recomputes the
// same derivation, so a token is only honoured while its window is fresh.
type LockedFolderService struct {
	sessions   LockedSessionStore
	assets     AssetStore
	secret     []byte
	sessionTTL time.Duration
	window     time.Duration

	NowFunc func() time.Time
}

// NewLockedFolderService constructs the access gate. The secret keys the
// capability-token derivation and must stay stable for a token's lifetime.
func NewLockedFolderService(sessions LockedSessionStore, assets AssetStore, secret []byte, sessionTTL, tokenWindow time.Duration) *LockedFolderService {
	if len(secret) == 0 {
		panic("media: locked folder secret must not be empty")
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultLockedSessionTTL
	}
	if tokenWindow <= 0 {
		tokenWindow = DefaultAccessTokenWindow
	}
	return &LockedFolderService{
		sessions:   sessions,
		assets:     assets,
		secret:     secret,
		sessionTTL: sessionTTL,
		window:     tokenWindow,
	}
}

func (s *LockedFolderService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// SetPassword establishes the locked-folder password for a user who has none.
func (s *LockedFolderService) SetPassword(ctx context.Context, userID, password string) error {
	if len(password) < minLockedPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minLockedPasswordLength)
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load locked session: %w", err)
	}
	if session.PasswordHash != "" {
		return fmt.Errorf("%w: locked folder password already set", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash locked folder password: %w", err)
	}

	session.UserID = userID
	session.PasswordHash = string(hash)
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save locked session: %w", err)
	}

	return nil
}

// ChangePassword rotates the locked-folder password after verifying the
// current one. Any open session is revoked.
func (s *LockedFolderService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < minLockedPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minLockedPasswordLength)
	}

	session, err := s.verifyPassword(ctx, userID, current)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash locked folder password: %w", err)
	}

	session.PasswordHash = string(hash)
	session.HasAccess = false
	session.SessionExpires = nil
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save locked session: %w", err)
	}

	return nil
}

// Unlock verifies the password and grants a session valid for the configured
// TTL, returning the expiry instant.
func (s *LockedFolderService) Unlock(ctx context.Context, userID, password string) (time.Time, error) {
	session, err := s.verifyPassword(ctx, userID, password)
	if err != nil {
		return time.Time{}, err
	}

	expires := s.now().Add(s.sessionTTL)
	session.HasAccess = true
	session.SessionExpires = &expires
	if err := s.sessions.Save(ctx, session); err != nil {
		return time.Time{}, fmt.Errorf("save locked session: %w", err)
	}

	return expires, nil
}

// Relock revokes the user's locked-folder session immediately.
func (s *LockedFolderService) Relock(ctx context.Context, userID string) error {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load locked session: %w", err)
	}

	session.HasAccess = false
	session.SessionExpires = nil
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save locked session: %w", err)
	}

	return nil
}

// CheckAccess reports whether the user holds an unexpired locked-folder
// session. Expiry is checked lazily; nothing sweeps stale sessions.
func (s *LockedFolderService) CheckAccess(ctx context.Context, userID string) (bool, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load locked session: %w", err)
	}

	if !session.HasAccess || session.SessionExpires == nil {
		return false, nil
	}
	return session.SessionExpires.After(s.now()), nil
}

// ListLocked returns the user's locked, non-trashed assets ordered by lock
// time descending, each paired with a fresh capability token.
func (s *LockedFolderService) ListLocked(ctx context.Context, userID string) ([]models.LockedAsset, error) {
	assets, err := s.lockedAssets(ctx, userID)
	if err != nil {
		return nil, err
	}

	window := s.currentWindow()
	out := make([]models.LockedAsset, 0, len(assets))
	for _, asset := range assets {
		out = append(out, models.LockedAsset{
			Asset: asset,
			Token: s.token(asset.ID, window),
		})
	}

	return out, nil
}

// AccessByToken resolves a capability token to the storage URL of a locked
// asset. Tokens from the current and previous window are accepted; anything
// older reports ErrNotFound.
func (s *LockedFolderService) AccessByToken(ctx context.Context, userID, token string) (string, error) {
	assets, err := s.lockedAssets(ctx, userID)
	if err != nil {
		return "", err
	}

	window := s.currentWindow()
	for _, asset := range assets {
		for _, candidate := range []string{s.token(asset.ID, window), s.token(asset.ID, window-1)} {
			if hmac.Equal([]byte(candidate), []byte(token)) {
				return asset.StorageURL, nil
			}
		}
	}

	return "", ErrNotFound
}

func (s *LockedFolderService) lockedAssets(ctx context.Context, userID string) ([]models.Asset, error) {
	ok, err := s.CheckAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	locked := true
	assets, err := s.assets.List(ctx, userID, AssetFilter{State: models.AssetStateActive, Locked: &locked})
	if err != nil {
		return nil, fmt.Errorf("list locked assets: %w", err)
	}

	sort.SliceStable(assets, func(i, j int) bool {
		a, b := assets[i].LockedAt, assets[j].LockedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return assets, nil
}

func (s *LockedFolderService) verifyPassword(ctx context.Context, userID, password string) (models.LockedSession, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.LockedSession{}, ErrAccessDenied
		}
		return models.LockedSession{}, fmt.Errorf("load locked session: %w", err)
	}
	if session.PasswordHash == "" {
		return models.LockedSession{}, ErrAccessDenied
	}

	if err := bcrypt.CompareHashAndPassword([]byte(session.PasswordHash), []byte(password)); err != nil {
		return models.LockedSession{}, ErrAccessDenied
	}

	return session, nil
}

func (s *LockedFolderService) currentWindow() int64 {
	return s.now().Unix() / int64(s.window.Seconds())
}

func (s *LockedFolderService) token(assetID string, window int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(assetID))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(window, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
