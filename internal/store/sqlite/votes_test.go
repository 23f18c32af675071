package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// newTestLink creates a linked property and returns its link id.
func newTestLink(t *testing.T, store *Store) int64 {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateOrLinkProperty(ctx, "item-1", domain.ClassGenre, "horror", "", domain.SourceSystem))
	link, err := store.GetLink(ctx, "item-1", domain.ClassGenre, "horror")
	require.NoError(t, err)
	return link.ID
}

// counters reads the link's aggregate counters.
func counters(t *testing.T, store *Store, linkID int64) (upvotes, votes int64) {
	t.Helper()

	link, err := store.GetLinkByID(context.Background(), linkID)
	require.NoError(t, err)
	return link.UpvoteCount, link.VoteCount
}

func TestCastVote_First(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(1), up)
	assert.Equal(t, int64(1), total)
}

func TestCastVote_Downvote(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", -1))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(-1), up)
	assert.Equal(t, int64(1), total)
}

func TestCastVote_ChangeSwingsSum(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-1", -1))

	// The flip moves the signed sum by two; the vote still counts once.
	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(-1), up)
	assert.Equal(t, int64(1), total)

	vote, err := store.GetVote(ctx, linkID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, -1, vote.Score)
}

func TestCastVote_SameScoreIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(1), up)
	assert.Equal(t, int64(1), total)
}

func TestCastVote_MissingLink(t *testing.T) {
	store := setupTestStore(t)

	err := store.CastVote(context.Background(), 9999, "user-1", 1)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCastVote_CountersMatchVotes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-2", 1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-3", -1))
	require.NoError(t, store.CastVote(ctx, linkID, "user-2", -1))

	// Sum of recorded scores: 1 - 1 - 1 = -1; three voters.
	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(-1), up)
	assert.Equal(t, int64(3), total)
}

func TestRemoveVote(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.RemoveVote(ctx, linkID, "user-1"))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(0), up)
	assert.Equal(t, int64(0), total)

	_, err := store.GetVote(ctx, linkID, "user-1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRemoveVote_ReversesDownvote(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", -1))
	require.NoError(t, store.RemoveVote(ctx, linkID, "user-1"))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(0), up)
	assert.Equal(t, int64(0), total)
}

func TestRemoveVote_NeverCastIsNoOp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	linkID := newTestLink(t, store)

	require.NoError(t, store.CastVote(ctx, linkID, "user-1", 1))
	require.NoError(t, store.RemoveVote(ctx, linkID, "user-2"))

	up, total := counters(t, store, linkID)
	assert.Equal(t, int64(1), up)
	assert.Equal(t, int64(1), total)
}
