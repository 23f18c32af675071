package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// setupTestStore creates a store backed by a throwaway database file.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func testApp(id int64) *domain.App {
	return &domain.App{
		ID:          id,
		Name:        "Test App",
		Developer:   "Test Developer",
		Enabled:     true,
		Available:   true,
		KnownTags:   []string{"map", "mod"},
		DefaultTags: []string{"mod"},
	}
}

func TestCreateApp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.CreateApp(ctx, testApp(10))
	require.NoError(t, err)

	retrieved, err := store.GetApp(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Test App", retrieved.Name)
	assert.True(t, retrieved.Enabled)
	assert.Equal(t, []string{"map", "mod"}, retrieved.KnownTags)
}

func TestCreateApp_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateApp(ctx, testApp(10)))

	err := store.CreateApp(ctx, testApp(10))
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestGetApp_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetApp(context.Background(), 999)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestListEnabledAppIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	enabled := testApp(10)
	disabled := testApp(20)
	disabled.Enabled = false

	require.NoError(t, store.CreateApp(ctx, enabled))
	require.NoError(t, store.CreateApp(ctx, disabled))

	ids, err := store.ListEnabledAppIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, ids)
}

func TestSetAppEnabled(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateApp(ctx, testApp(10)))
	require.NoError(t, store.SetAppEnabled(ctx, 10, false))

	ids, err := store.ListEnabledAppIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = store.SetAppEnabled(ctx, 999, true)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteApp_KeepsItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateApp(ctx, testApp(10)))
	require.NoError(t, store.UpsertItem(ctx, testItem("item-1", 10), nil))

	require.NoError(t, store.DeleteApp(ctx, 10))

	_, err := store.GetApp(ctx, 10)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = store.GetItem(ctx, "item-1")
	assert.NoError(t, err)
}
