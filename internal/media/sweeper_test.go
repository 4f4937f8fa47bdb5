package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mediavault/backend/internal/models"
)

func TestSweeperReclaimsExpiredAssets(t *testing.T) {
	h := newLifecycleHarness(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	deadline := past.Add(time.Minute)
	asset := models.Asset{
		ID:                "expired",
		UserID:            "user-1",
		OriginalName:      "expired.jpg",
		MediaType:         models.MediaTypeImage,
		StorageID:         "obj-expired",
		SizeBytes:         10,
		State:             models.AssetStateTrashed,
		TrashedAt:         &past,
		ScheduledDeleteAt: &deadline,
		CreatedAt:         past,
	}
	if err := h.assets.Create(ctx, asset); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	sweeper := NewSweeper(h.svc, 10*time.Millisecond, discardLogger())
	sweeper.Start()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		if _, err := h.assets.Get(ctx, "user-1", asset.ID); errors.Is(err, ErrNotFound) {
			break
		}
		if waitCtx.Err() != nil {
			t.Fatal("sweeper did not reclaim the expired asset in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, time.Second)
	defer cancelShutdown()
	if err := sweeper.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSweeperShutdownWithoutWork(t *testing.T) {
	h := newLifecycleHarness(t)

	sweeper := NewSweeper(h.svc, time.Hour, discardLogger())
	sweeper.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sweeper.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// A second shutdown is a no-op.
	if err := sweeper.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
