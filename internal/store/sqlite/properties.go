package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// linkColumns is the ordered list of columns selected in taxonomy link
// queries. Must match the scan order in scanLink.
const linkColumns = `ip.id, ip.item_id, p.class, p.value, ip.note, ip.status, ip.source, ip.upvote_count, ip.vote_count`

// scanLink scans a joined item_properties/properties row into a domain.TaxonomyLink.
func scanLink(scanner interface{ Scan(dest ...any) error }) (*domain.TaxonomyLink, error) {
	var l domain.TaxonomyLink
	err := scanner.Scan(
		&l.ID,
		&l.ItemID,
		&l.Class,
		&l.Value,
		&l.Note,
		&l.Status,
		&l.Source,
		&l.UpvoteCount,
		&l.VoteCount,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListPropertyValues returns every stored property value for a class.
// The reconciler runs its fuzzy-duplicate check over this list.
func (s *Store) ListPropertyValues(ctx context.Context, class domain.PropertyClass) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM properties WHERE class = ? ORDER BY value ASC`, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CreateOrLinkProperty idempotently creates the (class, value) property node
// and a pending taxonomy link from the item, in one transaction. Re-linking
// an already linked pair is a no-op.
func (s *Store) CreateOrLinkProperty(ctx context.Context, itemID string, class domain.PropertyClass, value, note, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO properties (class, value)
		VALUES (?, ?)
		ON CONFLICT(class, value) DO NOTHING`,
		class, value,
	); err != nil {
		return fmt.Errorf("insert property (%s, %s): %w", class, value, err)
	}

	var propertyID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM properties WHERE class = ? AND value = ?`,
		class, value,
	).Scan(&propertyID); err != nil {
		return fmt.Errorf("select property id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO item_properties (item_id, property_id, note, status, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id, property_id) DO NOTHING`,
		itemID, propertyID, note, domain.StatusPending, source,
	); err != nil {
		return fmt.Errorf("link property %d to item %s: %w", propertyID, itemID, err)
	}

	return tx.Commit()
}

// GetLink retrieves the taxonomy link between an item and a (class, value) pair.
// Returns errors.ErrNotFound when no such link exists.
func (s *Store) GetLink(ctx context.Context, itemID string, class domain.PropertyClass, value string) (*domain.TaxonomyLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM item_properties ip
		JOIN properties p ON p.id = ip.property_id
		WHERE ip.item_id = ? AND p.class = ? AND p.value = ?`,
		itemID, class, value)

	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no %s/%s link on item %s", class, value, itemID)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetLinkByID retrieves a taxonomy link by its id.
// Returns errors.ErrNotFound when no such link exists.
func (s *Store) GetLinkByID(ctx context.Context, id int64) (*domain.TaxonomyLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM item_properties ip
		JOIN properties p ON p.id = ip.property_id
		WHERE ip.id = ?`, id)

	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("link %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListItemLinks returns all taxonomy links on an item.
func (s *Store) ListItemLinks(ctx context.Context, itemID string) ([]*domain.TaxonomyLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM item_properties ip
		JOIN properties p ON p.id = ip.property_id
		WHERE ip.item_id = ?
		ORDER BY p.class ASC, p.value ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.TaxonomyLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// SetLinkStatus moves a link between pending, accepted and rejected.
// Links are never deleted; rejection is the terminal form of removal.
func (s *Store) SetLinkStatus(ctx context.Context, linkID int64, status domain.LinkStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE item_properties SET status = ? WHERE id = ?`, status, linkID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("link %d not found", linkID)
	}
	return nil
}
