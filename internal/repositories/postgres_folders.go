package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediavault/backend/internal/db"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

const folderColumns = `id, user_id, name, description, category, is_folder, parent_id,
        media_ids, cover_url, created_at, updated_at`

// PostgresFolderStore provides PostgreSQL-backed persistence for folders.
type PostgresFolderStore struct {
	pool db.Pool
}

// NewPostgresFolderStore constructs a folder store backed by PostgreSQL.
func NewPostgresFolderStore(pool db.Pool) *PostgresFolderStore {
	return &PostgresFolderStore{pool: pool}
}

// Create persists a new folder record.
func (s *PostgresFolderStore) Create(ctx context.Context, folder models.Folder) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO folders (`+folderColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, folder.ID, folder.UserID, folder.Name, folder.Description, folder.Category, folder.IsFolder,
		folder.ParentID, mediaIDsParam(folder.MediaIDs), folder.CoverURL, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return media.ErrConflict
		}
		return fmt.Errorf("insert folder: %w", err)
	}

	return nil
}

// Get fetches a folder by id, scoped to its owner.
func (s *PostgresFolderStore) Get(ctx context.Context, userID, id string) (models.Folder, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Folder{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+folderColumns+`
        FROM folders
        WHERE id = $1 AND user_id = $2
    `, id, userID)

	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Folder{}, media.ErrNotFound
		}
		return models.Folder{}, fmt.Errorf("select folder: %w", err)
	}

	return folder, nil
}

// Update replaces the mutable fields of an existing folder.
func (s *PostgresFolderStore) Update(ctx context.Context, folder models.Folder) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE folders
        SET name = $3, description = $4, category = $5, parent_id = $6,
            media_ids = $7, cover_url = $8, updated_at = $9
        WHERE id = $1 AND user_id = $2
    `, folder.ID, folder.UserID, folder.Name, folder.Description, folder.Category,
		folder.ParentID, mediaIDsParam(folder.MediaIDs), folder.CoverURL, folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return media.ErrNotFound
	}

	return nil
}

// Delete removes a folder record, scoped to its owner.
func (s *PostgresFolderStore) Delete(ctx context.Context, userID, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM folders
        WHERE id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return media.ErrNotFound
	}

	return nil
}

// ListChildren returns the folders directly under parentID (null for roots),
// ordered folders-before-albums then by name.
func (s *PostgresFolderStore) ListChildren(ctx context.Context, userID string, parentID *string) ([]models.Folder, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+folderColumns+`
        FROM folders
        WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
        ORDER BY is_folder DESC, name ASC
    `, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// mediaIDsParam keeps a nil slice from arriving as SQL NULL.
func mediaIDsParam(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func scanFolder(row pgx.Row) (models.Folder, error) {
	var folder models.Folder
	err := row.Scan(&folder.ID, &folder.UserID, &folder.Name, &folder.Description, &folder.Category,
		&folder.IsFolder, &folder.ParentID, &folder.MediaIDs, &folder.CoverURL,
		&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return models.Folder{}, err
	}
	return folder, nil
}

var _ media.FolderStore = (*PostgresFolderStore)(nil)
