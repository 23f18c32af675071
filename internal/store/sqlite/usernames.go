package sqlite

import (
	"context"
	"database/sql"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// GetUserName retrieves a cached display name.
// Returns errors.ErrNotFound when the id has never been fetched.
func (s *Store) GetUserName(ctx context.Context, id string) (*domain.UserName, error) {
	var (
		u           domain.UserName
		refreshedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, refreshed_at FROM usernames WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &refreshedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("username %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	u.RefreshedAt, err = parseTime(refreshedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUserName stores a display name with a fresh refresh timestamp.
func (s *Store) UpsertUserName(ctx context.Context, u *domain.UserName) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usernames (id, name, refreshed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			refreshed_at = excluded.refreshed_at`,
		u.ID,
		u.Name,
		formatTime(u.RefreshedAt),
	)
	return err
}
