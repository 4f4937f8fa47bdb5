package media

import (
	"context"
	"fmt"

	"github.com/mediavault/backend/internal/models"
)

// QuotaService aggregates storage usage from the asset store. Trashed assets
// do not count against the quota; their space is reclaimed the moment they
// enter the trash, not when the sweep destroys them.
type QuotaService struct {
	assets AssetStore
	total  int64
}

// NewQuotaService constructs the aggregator with a fixed per-user ceiling.
func NewQuotaService(assets AssetStore, total int64) *QuotaService {
	return &QuotaService{assets: assets, total: total}
}

// Snapshot computes the user's current usage against the configured total.
func (s *QuotaService) Snapshot(ctx context.Context, userID string) (models.QuotaSnapshot, error) {
	used, err := s.assets.SumSize(ctx, userID, AssetFilter{State: models.AssetStateActive})
	if err != nil {
		return models.QuotaSnapshot{}, fmt.Errorf("sum asset sizes: %w", err)
	}

	snapshot := models.QuotaSnapshot{Used: used, Total: s.total}
	if s.total > 0 {
		snapshot.Percentage = float64(used) / float64(s.total) * 100
	}

	return snapshot, nil
}
