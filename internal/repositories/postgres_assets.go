package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediavault/backend/internal/db"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

const assetColumns = `id, user_id, original_name, media_type, storage_url, storage_id, size_bytes,
        album_id, favorite, state, is_locked, locked_at, trashed_at, scheduled_delete_at, created_at`

// PostgresAssetStore provides PostgreSQL-backed persistence for media assets.
type PostgresAssetStore struct {
	pool db.Pool
}

// NewPostgresAssetStore constructs an asset store backed by PostgreSQL.
func NewPostgresAssetStore(pool db.Pool) *PostgresAssetStore {
	return &PostgresAssetStore{pool: pool}
}

// Create persists a new asset record.
func (s *PostgresAssetStore) Create(ctx context.Context, asset models.Asset) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO media_assets (`+assetColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `, asset.ID, asset.UserID, asset.OriginalName, asset.MediaType, asset.StorageURL, asset.StorageID,
		asset.SizeBytes, asset.AlbumID, asset.Favorite, asset.State, asset.IsLocked, asset.LockedAt,
		asset.TrashedAt, asset.ScheduledDeleteAt, asset.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return media.ErrConflict
		}
		return fmt.Errorf("insert asset: %w", err)
	}

	return nil
}

// Get fetches an asset by id, scoped to its owner.
func (s *PostgresAssetStore) Get(ctx context.Context, userID, id string) (models.Asset, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Asset{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+assetColumns+`
        FROM media_assets
        WHERE id = $1 AND user_id = $2
    `, id, userID)

	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, media.ErrNotFound
		}
		return models.Asset{}, fmt.Errorf("select asset: %w", err)
	}

	return asset, nil
}

// Update replaces the mutable fields of an existing asset.
func (s *PostgresAssetStore) Update(ctx context.Context, asset models.Asset) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE media_assets
        SET album_id = $3, favorite = $4, state = $5, is_locked = $6, locked_at = $7,
            trashed_at = $8, scheduled_delete_at = $9
        WHERE id = $1 AND user_id = $2
    `, asset.ID, asset.UserID, asset.AlbumID, asset.Favorite, asset.State, asset.IsLocked,
		asset.LockedAt, asset.TrashedAt, asset.ScheduledDeleteAt)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return media.ErrNotFound
	}

	return nil
}

// Delete removes an asset record, scoped to its owner.
func (s *PostgresAssetStore) Delete(ctx context.Context, userID, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM media_assets
        WHERE id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return media.ErrNotFound
	}

	return nil
}

// List returns the user's assets matching the filter, newest first.
func (s *PostgresAssetStore) List(ctx context.Context, userID string, filter media.AssetFilter) ([]models.Asset, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where, args := assetFilterClause(userID, filter)
	rows, err := conn.Query(ctx, `
        SELECT `+assetColumns+`
        FROM media_assets
        WHERE `+where+`
        ORDER BY created_at DESC
    `, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}

	return assets, nil
}

// SumSize totals the sizes of the user's assets matching the filter.
func (s *PostgresAssetStore) SumSize(ctx context.Context, userID string, filter media.AssetFilter) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where, args := assetFilterClause(userID, filter)
	row := conn.QueryRow(ctx, `
        SELECT COALESCE(SUM(size_bytes), 0)
        FROM media_assets
        WHERE `+where, args...)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum asset sizes: %w", err)
	}

	return total, nil
}

// DetachAlbum clears the album reference of every asset in the folder.
func (s *PostgresAssetStore) DetachAlbum(ctx context.Context, userID, albumID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE media_assets
        SET album_id = NULL
        WHERE user_id = $1 AND album_id = $2
    `, userID, albumID)
	if err != nil {
		return fmt.Errorf("detach album assets: %w", err)
	}

	return nil
}

// ListExpired returns trashed assets across all users whose scheduled delete
// time is at or before the cutoff.
func (s *PostgresAssetStore) ListExpired(ctx context.Context, cutoff time.Time) ([]models.Asset, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+assetColumns+`
        FROM media_assets
        WHERE state = $1 AND scheduled_delete_at <= $2
        ORDER BY scheduled_delete_at
    `, models.AssetStateTrashed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired assets: %w", err)
	}

	return assets, nil
}

func assetFilterClause(userID string, filter media.AssetFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	if filter.State != "" {
		args = append(args, filter.State)
		clauses = append(clauses, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Locked != nil {
		args = append(args, *filter.Locked)
		clauses = append(clauses, fmt.Sprintf("is_locked = $%d", len(args)))
	}
	if filter.Favorite != nil {
		args = append(args, *filter.Favorite)
		clauses = append(clauses, fmt.Sprintf("favorite = $%d", len(args)))
	}
	if filter.AlbumID != nil {
		args = append(args, *filter.AlbumID)
		clauses = append(clauses, fmt.Sprintf("album_id = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

func scanAsset(row pgx.Row) (models.Asset, error) {
	var asset models.Asset
	err := row.Scan(&asset.ID, &asset.UserID, &asset.OriginalName, &asset.MediaType, &asset.StorageURL,
		&asset.StorageID, &asset.SizeBytes, &asset.AlbumID, &asset.Favorite, &asset.State,
		&asset.IsLocked, &asset.LockedAt, &asset.TrashedAt, &asset.ScheduledDeleteAt, &asset.CreatedAt)
	if err != nil {
		return models.Asset{}, err
	}
	return asset, nil
}

var _ media.AssetStore = (*PostgresAssetStore)(nil)
