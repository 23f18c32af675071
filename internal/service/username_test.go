package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// fakeNameStore is an in-memory UserNameStore.
type fakeNameStore struct {
	names map[string]*domain.UserName
	err   error
}

func (f *fakeNameStore) GetUserName(_ context.Context, id string) (*domain.UserName, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.names[id]; ok {
		return u, nil
	}
	return nil, errors.NotFound("username not found")
}

func (f *fakeNameStore) UpsertUserName(_ context.Context, u *domain.UserName) error {
	f.names[u.ID] = u
	return nil
}

func newTestNameService(store *fakeNameStore) *UserNameService {
	return NewUserNameService(store, slog.Default())
}

func TestNeedsRefresh(t *testing.T) {
	store := &fakeNameStore{names: map[string]*domain.UserName{
		"fresh": {ID: "fresh", Name: "a", RefreshedAt: time.Now()},
		"stale": {ID: "stale", Name: "b", RefreshedAt: time.Now().Add(-8 * 24 * time.Hour)},
	}}
	svc := newTestNameService(store)
	ctx := context.Background()

	assert.False(t, svc.NeedsRefresh(ctx, "fresh"))
	assert.True(t, svc.NeedsRefresh(ctx, "stale"))
	assert.True(t, svc.NeedsRefresh(ctx, "missing"))
}

func TestNeedsRefresh_ReadErrorCountsAsStale(t *testing.T) {
	store := &fakeNameStore{err: errors.Internal("db locked")}
	svc := newTestNameService(store)

	assert.True(t, svc.NeedsRefresh(context.Background(), "u-1"))
}

func TestUpdate(t *testing.T) {
	store := &fakeNameStore{names: make(map[string]*domain.UserName)}
	svc := newTestNameService(store)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "u-1", "Gordon"))

	cached, err := svc.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Gordon", cached.Name)
	assert.WithinDuration(t, time.Now(), cached.RefreshedAt, time.Second)
}
