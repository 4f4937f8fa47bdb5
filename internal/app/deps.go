package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediavault/backend/internal/config"
	"github.com/mediavault/backend/internal/db"
	"github.com/mediavault/backend/internal/handlers"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/middleware"
	"github.com/mediavault/backend/internal/repositories"
	"github.com/mediavault/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers, plus the background sweeper that shares the lifecycle service.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Sweeper, error) {
	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("initialize object storage: %w", err)
	}

	assetStore := repositories.NewPostgresAssetStore(pool)
	folderStore := repositories.NewPostgresFolderStore(pool)
	sessionStore := repositories.NewPostgresLockedSessionStore(pool)

	locks := media.NewKeyLock()
	folders := media.NewFolderService(folderStore, assetStore, locks, logger)
	lifecycle := media.NewLifecycleService(assetStore, folders, objects, locks, cfg.TrashRetention, logger)
	locked := media.NewLockedFolderService(sessionStore, assetStore, []byte(cfg.LockedSecret), cfg.LockedSessionTTL, cfg.AccessTokenTTL)
	quota := media.NewQuotaService(assetStore, cfg.QuotaTotalBytes)

	sweeper := media.NewSweeper(lifecycle, cfg.SweepInterval, logger)

	limiter := middleware.NewUserRateLimiter(cfg.UploadRatePerMinute, time.Minute, cfg.UploadRateBurst, 10*time.Minute)

	deps := handlers.Dependencies{
		Folders:   folders,
		Lifecycle: lifecycle,
		Locked:    locked,
		Quota:     quota,
		Health: func(ctx context.Context) error {
			return db.Healthy(ctx, pool)
		},
		UploadLimiter: limiter,
	}

	return deps, sweeper, nil
}
