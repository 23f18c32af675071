package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// CastVote upserts one user's vote on a taxonomy link and reconciles the
// link's aggregate counters in the same transaction, so concurrent votes on
// one link cannot produce lost updates:
//
//   - no prior vote:        vote_count += 1, upvote_count += score
//   - prior differing vote: upvote_count += score - prior (vote_count unchanged)
//   - prior same vote:      counters untouched
//
// After every call: upvote_count == sum of recorded scores and
// vote_count == number of recorded votes.
func (s *Store) CastVote(ctx context.Context, linkID int64, userID string, score int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM item_properties WHERE id = ?`, linkID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return errors.NotFoundf("link %d not found", linkID)
		}
		return fmt.Errorf("check link: %w", err)
	}

	var prior sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT score FROM votes WHERE link_id = ? AND user_id = ?`,
		linkID, userID).Scan(&prior)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read prior vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO votes (link_id, user_id, score, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(link_id, user_id) DO UPDATE SET
			score      = excluded.score,
			created_at = excluded.created_at`,
		linkID, userID, score, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}

	switch {
	case !prior.Valid:
		_, err = tx.ExecContext(ctx, `
			UPDATE item_properties
			SET vote_count = vote_count + 1, upvote_count = upvote_count + ?
			WHERE id = ?`,
			score, linkID)
	case prior.Int64 != int64(score):
		// The vote already counted; only the signed sum moves.
		_, err = tx.ExecContext(ctx, `
			UPDATE item_properties
			SET upvote_count = upvote_count + ?
			WHERE id = ?`,
			int64(score)-prior.Int64, linkID)
	default:
		// Same score cast twice is idempotent.
	}
	if err != nil {
		return fmt.Errorf("reconcile counters: %w", err)
	}

	return tx.Commit()
}

// RemoveVote deletes one user's vote and reverses its counter contribution
// in the same transaction. Removing a vote that was never cast is a no-op.
func (s *Store) RemoveVote(ctx context.Context, linkID int64, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var prior int64
	err = tx.QueryRowContext(ctx,
		`SELECT score FROM votes WHERE link_id = ? AND user_id = ?`,
		linkID, userID).Scan(&prior)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read prior vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM votes WHERE link_id = ? AND user_id = ?`,
		linkID, userID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE item_properties
		SET vote_count = MAX(vote_count - 1, 0), upvote_count = upvote_count - ?
		WHERE id = ?`,
		prior, linkID); err != nil {
		return fmt.Errorf("reconcile counters: %w", err)
	}

	return tx.Commit()
}

// GetVote retrieves one user's vote on a link.
// Returns errors.ErrNotFound when the user has not voted.
func (s *Store) GetVote(ctx context.Context, linkID int64, userID string) (*domain.Vote, error) {
	var (
		v         domain.Vote
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT link_id, user_id, score, created_at FROM votes
		 WHERE link_id = ? AND user_id = ?`,
		linkID, userID).
		Scan(&v.LinkID, &v.UserID, &v.Score, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no vote by %s on link %d", userID, linkID)
	}
	if err != nil {
		return nil, err
	}
	v.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
