package sqlite

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// appColumns is the ordered list of columns selected in app queries.
// Must match the scan order in scanApp.
const appColumns = `id, name, developer, description, banner, enabled, available, known_tags, default_tags`

// scanApp scans a sql.Row (or sql.Rows via its Scan method) into a domain.App.
func scanApp(scanner interface{ Scan(dest ...any) error }) (*domain.App, error) {
	var (
		a           domain.App
		knownTags   string
		defaultTags string
	)

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.Developer,
		&a.Description,
		&a.Banner,
		&a.Enabled,
		&a.Available,
		&knownTags,
		&defaultTags,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(knownTags), &a.KnownTags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(defaultTags), &a.DefaultTags); err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateApp inserts a new catalog app.
// Returns errors.ErrConflict on duplicate id.
func (s *Store) CreateApp(ctx context.Context, a *domain.App) error {
	knownTags, err := json.Marshal(a.KnownTags)
	if err != nil {
		return err
	}
	defaultTags, err := json.Marshal(a.DefaultTags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO apps (`+appColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Name,
		a.Developer,
		a.Description,
		a.Banner,
		a.Enabled,
		a.Available,
		string(knownTags),
		string(defaultTags),
	)
	if isUniqueViolation(err) {
		return errors.Conflict("app already exists")
	}
	return err
}

// GetApp retrieves an app by id.
// Returns errors.ErrNotFound if the app does not exist.
func (s *Store) GetApp(ctx context.Context, id int64) (*domain.App, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM apps WHERE id = ?`, id)

	a, err := scanApp(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("app %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListApps returns all apps ordered by name.
func (s *Store) ListApps(ctx context.Context) ([]*domain.App, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+appColumns+` FROM apps ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*domain.App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ListEnabledAppIDs returns the ids of all download-eligible apps.
func (s *Store) ListEnabledAppIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM apps WHERE enabled = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetAppEnabled flips the download-eligibility flag.
// Returns errors.ErrNotFound if the app does not exist.
func (s *Store) SetAppEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE apps SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("app %d not found", id)
	}
	return nil
}

// SetAppAvailable flips the client-visibility flag.
// Returns errors.ErrNotFound if the app does not exist.
func (s *Store) SetAppAvailable(ctx context.Context, id int64, available bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE apps SET available = ? WHERE id = ?`, available, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("app %d not found", id)
	}
	return nil
}

// DeleteApp removes an app row. Items crawled for the app are kept.
func (s *Store) DeleteApp(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	return err
}
