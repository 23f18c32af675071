package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

func TestUpsertUserName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	refreshed := time.Now().Add(-time.Hour)
	require.NoError(t, store.UpsertUserName(ctx, &domain.UserName{
		ID:          "u-1",
		Name:        "Gordon",
		RefreshedAt: refreshed,
	}))

	cached, err := store.GetUserName(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Gordon", cached.Name)
	assert.WithinDuration(t, refreshed, cached.RefreshedAt, time.Second)

	// Re-upsert replaces name and timestamp.
	now := time.Now()
	require.NoError(t, store.UpsertUserName(ctx, &domain.UserName{
		ID:          "u-1",
		Name:        "Freeman",
		RefreshedAt: now,
	}))

	cached, err = store.GetUserName(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Freeman", cached.Name)
	assert.WithinDuration(t, now, cached.RefreshedAt, time.Second)
}

func TestGetUserName_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUserName(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
