package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediavault/backend/internal/db"
	"github.com/mediavault/backend/internal/media"
	"github.com/mediavault/backend/internal/models"
)

// PostgresLockedSessionStore persists locked-folder sessions to PostgreSQL.
type PostgresLockedSessionStore struct {
	pool db.Pool
}

// NewPostgresLockedSessionStore constructs a locked-session store backed by
// PostgreSQL.
func NewPostgresLockedSessionStore(pool db.Pool) *PostgresLockedSessionStore {
	return &PostgresLockedSessionStore{pool: pool}
}

// Get loads the user's locked-folder session.
func (s *PostgresLockedSessionStore) Get(ctx context.Context, userID string) (models.LockedSession, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.LockedSession{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT user_id, password_hash, has_access, session_expires
        FROM locked_sessions
        WHERE user_id = $1
    `, userID)

	var session models.LockedSession
	if err := row.Scan(&session.UserID, &session.PasswordHash, &session.HasAccess, &session.SessionExpires); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LockedSession{}, media.ErrNotFound
		}
		return models.LockedSession{}, fmt.Errorf("select locked session: %w", err)
	}

	return session, nil
}

// Save stores or updates the user's locked-folder session.
func (s *PostgresLockedSessionStore) Save(ctx context.Context, session models.LockedSession) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO locked_sessions (user_id, password_hash, has_access, session_expires)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id)
        DO UPDATE SET password_hash = EXCLUDED.password_hash,
                      has_access = EXCLUDED.has_access,
                      session_expires = EXCLUDED.session_expires
    `, session.UserID, session.PasswordHash, session.HasAccess, session.SessionExpires)
	if err != nil {
		return fmt.Errorf("upsert locked session: %w", err)
	}

	return nil
}

var _ media.LockedSessionStore = (*PostgresLockedSessionStore)(nil)
