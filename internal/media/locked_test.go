package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediavault/backend/internal/models"
)

type lockedHarness struct {
	svc      *LockedFolderService
	assets   *InMemoryAssetStore
	sessions *InMemoryLockedSessionStore
}

func newLockedHarness(t *testing.T) *lockedHarness {
	t.Helper()
	assets := NewInMemoryAssetStore()
	sessions := NewInMemoryLockedSessionStore()
	svc := NewLockedFolderService(sessions, assets, []byte("test-secret"), DefaultLockedSessionTTL, DefaultAccessTokenWindow)
	return &lockedHarness{svc: svc, assets: assets, sessions: sessions}
}

func (h *lockedHarness) seedLockedAsset(t *testing.T, id string, lockedAt time.Time) models.Asset {
	t.Helper()
	asset := models.Asset{
		ID:           id,
		UserID:       "user-1",
		OriginalName: id + ".jpg",
		MediaType:    models.MediaTypeImage,
		StorageURL:   "https://cdn/" + id,
		StorageID:    "obj-" + id,
		SizeBytes:    10,
		State:        models.AssetStateActive,
		IsLocked:     true,
		LockedAt:     &lockedAt,
		CreatedAt:    lockedAt,
	}
	if err := h.assets.Create(context.Background(), asset); err != nil {
		t.Fatalf("seed locked asset %s: %v", id, err)
	}
	return asset
}

func TestLockedFolderSetPassword(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	if err := h.svc.SetPassword(ctx, "user-1", "abc"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := h.svc.SetPassword(ctx, "user-1", "secret2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second set, got %v", err)
	}
}

func TestLockedFolderUnlockAndExpiry(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.NowFunc = func() time.Time { return base }

	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied with no password set, got %v", err)
	}

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	if _, err := h.svc.Unlock(ctx, "user-1", "wrong"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for wrong password, got %v", err)
	}

	expires, err := h.svc.Unlock(ctx, "user-1", "secret1")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !expires.Equal(base.Add(DefaultLockedSessionTTL)) {
		t.Fatalf("expected expiry %v, got %v", base.Add(DefaultLockedSessionTTL), expires)
	}

	ok, err := h.svc.CheckAccess(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("expected access granted, got %v %v", ok, err)
	}

	// The session lapses without any background cleanup.
	h.svc.NowFunc = func() time.Time { return base.Add(DefaultLockedSessionTTL + time.Second) }
	ok, err = h.svc.CheckAccess(ctx, "user-1")
	if err != nil || ok {
		t.Fatalf("expected access expired, got %v %v", ok, err)
	}
}

func TestLockedFolderRelock(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := h.svc.Relock(ctx, "user-1"); err != nil {
		t.Fatalf("relock: %v", err)
	}

	ok, err := h.svc.CheckAccess(ctx, "user-1")
	if err != nil || ok {
		t.Fatalf("expected access revoked, got %v %v", ok, err)
	}

	// Relocking without a session record is harmless.
	if err := h.svc.Relock(ctx, "user-2"); err != nil {
		t.Fatalf("relock unknown user: %v", err)
	}
}

func TestLockedFolderChangePasswordRevokesSession(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := h.svc.ChangePassword(ctx, "user-1", "wrong", "secret2"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for wrong current password, got %v", err)
	}
	if err := h.svc.ChangePassword(ctx, "user-1", "secret1", "secret2"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	ok, _ := h.svc.CheckAccess(ctx, "user-1")
	if ok {
		t.Fatal("expected session revoked after password change")
	}

	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := h.svc.Unlock(ctx, "user-1", "secret2"); err != nil {
		t.Fatalf("unlock with new password: %v", err)
	}
}

func TestLockedFolderListRequiresAccess(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()
	h.seedLockedAsset(t, "a1", time.Now().UTC())

	if _, err := h.svc.ListLocked(ctx, "user-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied without a session, got %v", err)
	}
}

func TestLockedFolderListOrderAndTokens(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.NowFunc = func() time.Time { return base }

	h.seedLockedAsset(t, "older", base.Add(-2*time.Hour))
	h.seedLockedAsset(t, "newer", base.Add(-time.Hour))

	// A trashed locked asset stays out of the listing.
	trashedAt := base.Add(-time.Minute)
	trashed := h.seedLockedAsset(t, "gone", base)
	trashed.State = models.AssetStateTrashed
	trashed.TrashedAt = &trashedAt
	if err := h.assets.Update(ctx, trashed); err != nil {
		t.Fatalf("trash seeded asset: %v", err)
	}

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	listed, err := h.svc.ListLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("list locked: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 locked assets, got %d", len(listed))
	}
	if listed[0].Asset.ID != "newer" || listed[1].Asset.ID != "older" {
		t.Fatalf("expected newest lock first, got %s then %s", listed[0].Asset.ID, listed[1].Asset.ID)
	}
	for _, entry := range listed {
		if entry.Token == "" {
			t.Fatalf("expected token for %s", entry.Asset.ID)
		}
	}
}

func TestLockedFolderAccessByToken(t *testing.T) {
	h := newLockedHarness(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.NowFunc = func() time.Time { return base }

	asset := h.seedLockedAsset(t, "a1", base)

	if err := h.svc.SetPassword(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	listed, err := h.svc.ListLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("list locked: %v", err)
	}
	token := listed[0].Token

	url, err := h.svc.AccessByToken(ctx, "user-1", token)
	if err != nil {
		t.Fatalf("access by token: %v", err)
	}
	if url != asset.StorageURL {
		t.Fatalf("expected %q, got %q", asset.StorageURL, url)
	}

	if _, err := h.svc.AccessByToken(ctx, "user-1", "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bogus token, got %v", err)
	}

	// One window later the token is still honoured as the previous window.
	h.svc.NowFunc = func() time.Time { return base.Add(DefaultAccessTokenWindow) }
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("re-unlock: %v", err)
	}
	if _, err := h.svc.AccessByToken(ctx, "user-1", token); err != nil {
		t.Fatalf("expected previous-window token accepted, got %v", err)
	}

	// Two windows later it has aged out.
	h.svc.NowFunc = func() time.Time { return base.Add(2 * DefaultAccessTokenWindow) }
	if _, err := h.svc.Unlock(ctx, "user-1", "secret1"); err != nil {
		t.Fatalf("re-unlock: %v", err)
	}
	if _, err := h.svc.AccessByToken(ctx, "user-1", token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale token rejected, got %v", err)
	}
}
