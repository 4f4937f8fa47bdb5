package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, table := range []string{"media_assets", "folders", "locked_sessions"} {
		if _, err := testPool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset table %s: %v", table, err)
		}
	}
}

func testAsset(userID string) models.Asset {
	return models.Asset{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: "beach.jpg",
		MediaType:    models.MediaTypeImage,
		StorageURL:   "https://cdn.example.com/beach.jpg",
		StorageID:    "obj-" + uuid.NewString(),
		SizeBytes:    1024,
		State:        models.AssetStateActive,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgresAssetStore_CrudAndScoping(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresAssetStore(testPool)
	asset := testAsset("user-1")

	if err := store.Create(ctx, asset); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if err := store.Create(ctx, asset); !errors.Is(err, media.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	got, err := store.Get(ctx, "user-1", asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.OriginalName != asset.OriginalName || got.SizeBytes != asset.SizeBytes {
		t.Fatalf("unexpected asset: %+v", got)
	}

	if _, err := store.Get(ctx, "user-2", asset.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	deadline := now.Add(15 * 24 * time.Hour)
	got.State = models.AssetStateTrashed
	got.TrashedAt = &now
	got.ScheduledDeleteAt = &deadline
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("update asset: %v", err)
	}

	trashed, err := store.Get(ctx, "user-1", asset.ID)
	if err != nil {
		t.Fatalf("get trashed asset: %v", err)
	}
	if !trashed.Trashed() || trashed.TrashedAt == nil || trashed.ScheduledDeleteAt == nil {
		t.Fatalf("expected trashed asset state: %+v", trashed)
	}

	if err := store.Delete(ctx, "user-2", asset.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found deleting as foreign user, got %v", err)
	}
	if err := store.Delete(ctx, "user-1", asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	if _, err := store.Get(ctx, "user-1", asset.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestPostgresAssetStore_FiltersAndSums(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresAssetStore(testPool)

	active := testAsset("user-1")
	active.SizeBytes = 100

	locked := testAsset("user-1")
	locked.SizeBytes = 200
	locked.IsLocked = true
	lockedAt := time.Now().UTC().Truncate(time.Millisecond)
	locked.LockedAt = &lockedAt

	trashed := testAsset("user-1")
	trashed.SizeBytes = 300
	trashed.State = models.AssetStateTrashed
	trashedAt := time.Now().UTC().Truncate(time.Millisecond)
	deadline := trashedAt.Add(-time.Minute)
	trashed.TrashedAt = &trashedAt
	trashed.ScheduledDeleteAt = &deadline

	other := testAsset("user-2")
	other.SizeBytes = 999

	for _, asset := range []models.Asset{active, locked, trashed, other} {
		if err := store.Create(ctx, asset); err != nil {
			t.Fatalf("create asset: %v", err)
		}
	}

	actives, err := store.List(ctx, "user-1", media.AssetFilter{State: models.AssetStateActive})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(actives) != 2 {
		t.Fatalf("expected 2 active assets, got %d", len(actives))
	}

	isLocked := true
	lockedAssets, err := store.List(ctx, "user-1", media.AssetFilter{State: models.AssetStateActive, Locked: &isLocked})
	if err != nil {
		t.Fatalf("list locked: %v", err)
	}
	if len(lockedAssets) != 1 || lockedAssets[0].ID != locked.ID {
		t.Fatalf("expected only the locked asset, got %+v", lockedAssets)
	}

	used, err := store.SumSize(ctx, "user-1", media.AssetFilter{State: models.AssetStateActive})
	if err != nil {
		t.Fatalf("sum sizes: %v", err)
	}
	if used != 300 {
		t.Fatalf("expected used 300, got %d", used)
	}

	expired, err := store.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != trashed.ID {
		t.Fatalf("expected the trashed asset to be expired, got %+v", expired)
	}
}

func TestPostgresFolderStore_ChildOrderingAndDetach(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	folders := NewPostgresFolderStore(testPool)
	assets := NewPostgresAssetStore(testPool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	root := models.Folder{
		ID: uuid.NewString(), UserID: "user-1", Name: "Root", IsFolder: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := folders.Create(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}

	albumB := models.Folder{
		ID: uuid.NewString(), UserID: "user-1", Name: "Beach", ParentID: &root.ID,
		CreatedAt: now, UpdatedAt: now,
	}
	albumA := models.Folder{
		ID: uuid.NewString(), UserID: "user-1", Name: "Alps", ParentID: &root.ID,
		CreatedAt: now, UpdatedAt: now,
	}
	sub := models.Folder{
		ID: uuid.NewString(), UserID: "user-1", Name: "Zoo", IsFolder: true, ParentID: &root.ID,
		CreatedAt: now, UpdatedAt: now,
	}
	for _, folder := range []models.Folder{albumB, albumA, sub} {
		if err := folders.Create(ctx, folder); err != nil {
			t.Fatalf("create folder: %v", err)
		}
	}

	children, err := folders.ListChildren(ctx, "user-1", &root.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	// Folders sort before albums, then names ascend.
	if children[0].ID != sub.ID || children[1].ID != albumA.ID || children[2].ID != albumB.ID {
		t.Fatalf("unexpected child order: %s %s %s", children[0].Name, children[1].Name, children[2].Name)
	}

	roots, err := folders.ListChildren(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("list roots: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != root.ID {
		t.Fatalf("expected only the root folder, got %+v", roots)
	}

	member := testAsset("user-1")
	member.AlbumID = &albumA.ID
	if err := assets.Create(ctx, member); err != nil {
		t.Fatalf("create member asset: %v", err)
	}

	albumA.MediaIDs = []string{member.ID}
	albumA.CoverURL = member.StorageURL
	if err := folders.Update(ctx, albumA); err != nil {
		t.Fatalf("update album: %v", err)
	}

	stored, err := folders.Get(ctx, "user-1", albumA.ID)
	if err != nil {
		t.Fatalf("get album: %v", err)
	}
	if len(stored.MediaIDs) != 1 || stored.MediaIDs[0] != member.ID || stored.CoverURL != member.StorageURL {
		t.Fatalf("unexpected album state: %+v", stored)
	}

	if err := assets.DetachAlbum(ctx, "user-1", albumA.ID); err != nil {
		t.Fatalf("detach album: %v", err)
	}
	detached, err := assets.Get(ctx, "user-1", member.ID)
	if err != nil {
		t.Fatalf("get detached asset: %v", err)
	}
	if detached.AlbumID != nil {
		t.Fatalf("expected album reference cleared, got %v", *detached.AlbumID)
	}
}

func TestPostgresLockedSessionStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	store := NewPostgresLockedSessionStore(testPool)

	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found for missing session, got %v", err)
	}

	expires := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Millisecond)
	session := models.LockedSession{
		UserID:         "user-1",
		PasswordHash:   "hash",
		HasAccess:      true,
		SessionExpires: &expires,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.HasAccess || got.SessionExpires == nil || !got.SessionExpires.Equal(expires) {
		t.Fatalf("unexpected session: %+v", got)
	}

	got.HasAccess = false
	got.SessionExpires = nil
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("revoke session: %v", err)
	}

	revoked, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get revoked session: %v", err)
	}
	if revoked.HasAccess || revoked.SessionExpires != nil {
		t.Fatalf("expected revoked session, got %+v", revoked)
	}
}
