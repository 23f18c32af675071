package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `id, app_id, author, title, description, languages, last_updated, preview_url, score`

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a domain.Item.
// Tags are left empty; callers needing them use GetItemTags.
func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	var (
		it        domain.Item
		languages string
	)

	err := scanner.Scan(
		&it.ID,
		&it.AppID,
		&it.Author,
		&it.Title,
		&it.Description,
		&languages,
		&it.LastUpdated,
		&it.PreviewURL,
		&it.Score,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(languages), &it.Languages); err != nil {
		return nil, err
	}
	return &it, nil
}

// UpsertItem persists one assembled item inside a single transaction:
//  1. insert every referenced tag row, duplicates ignored
//  2. upsert the item row (content fields overwrite on conflict)
//  3. insert one dependency edge per declared child, duplicates ignored
//  4. replace the item's tag membership with the newly computed set
//
// Step 4 runs regardless of whether step 2 inserted or updated, so tag
// membership always reflects the latest run.
func (s *Store) UpsertItem(ctx context.Context, item *domain.Item, children []string) error {
	languages, err := json.Marshal(item.Languages)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, tag := range item.Tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (app_id, slug, display_name)
			VALUES (?, ?, ?)
			ON CONFLICT(app_id, slug) DO NOTHING`,
			tag.AppID,
			tag.Slug,
			tag.DisplayName,
		)
		if err != nil {
			return fmt.Errorf("insert tag %q: %w", tag.Slug, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			description  = excluded.description,
			languages    = excluded.languages,
			last_updated = excluded.last_updated,
			preview_url  = excluded.preview_url,
			score        = excluded.score`,
		item.ID,
		item.AppID,
		item.Author,
		item.Title,
		item.Description,
		string(languages),
		item.LastUpdated,
		item.PreviewURL,
		item.Score,
	)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.ID, err)
	}

	for _, child := range children {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_dependencies (item_id, depends_on)
			VALUES (?, ?)
			ON CONFLICT(item_id, depends_on) DO NOTHING`,
			item.ID,
			child,
		)
		if err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", item.ID, child, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("clear item_tags: %w", err)
	}
	for _, tag := range item.Tags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_tags (item_id, app_id, slug)
			VALUES (?, ?, ?)
			ON CONFLICT(item_id, app_id, slug) DO NOTHING`,
			item.ID,
			tag.AppID,
			tag.Slug,
		)
		if err != nil {
			return fmt.Errorf("insert item_tag %q: %w", tag.Slug, err)
		}
	}

	return tx.Commit()
}

// GetItem retrieves an item by id, tags included.
// Returns errors.ErrNotFound if the item does not exist.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("item %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	it.Tags, err = s.GetItemTags(ctx, id)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// GetItemTags returns the current tag set of an item ordered by slug.
func (s *Store) GetItemTags(ctx context.Context, itemID string) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.app_id, t.slug, t.display_name
		FROM item_tags it
		JOIN tags t ON t.app_id = it.app_id AND t.slug = it.slug
		WHERE it.item_id = ?
		ORDER BY t.slug ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.AppID, &t.Slug, &t.DisplayName); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetItemDependencies returns the ids an item declares as dependencies.
func (s *Store) GetItemDependencies(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on FROM item_dependencies
		WHERE item_id = ? ORDER BY depends_on ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// MaxLastUpdated returns the most recent last_updated value seen for an app,
// or zero when no items are stored yet.
func (s *Store) MaxLastUpdated(ctx context.Context, appID int64) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(last_updated) FROM items WHERE app_id = ?`, appID).Scan(&ts)
	if err != nil {
		return 0, err
	}
	return ts.Int64, nil
}

// ItemChangeSignals is the minimal projection the inference eligibility
// check compares against an incoming item.
type ItemChangeSignals struct {
	LastUpdated int64
	Description string
}

// GetItemChangeSignals fetches the stored staleness signals for an item.
// Returns errors.ErrNotFound when the item has never been seen.
func (s *Store) GetItemChangeSignals(ctx context.Context, id string) (*ItemChangeSignals, error) {
	var sig ItemChangeSignals
	err := s.db.QueryRowContext(ctx,
		`SELECT last_updated, description FROM items WHERE id = ?`, id).
		Scan(&sig.LastUpdated, &sig.Description)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("item %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// GetItemProjection fetches only the (title, description) pair the
// extraction backend consumes. Returns errors.ErrNotFound when missing.
func (s *Store) GetItemProjection(ctx context.Context, id string) (title, description string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT title, description FROM items WHERE id = ?`, id).
		Scan(&title, &description)
	if err == sql.ErrNoRows {
		return "", "", errors.NotFoundf("item %s not found", id)
	}
	return title, description, err
}
