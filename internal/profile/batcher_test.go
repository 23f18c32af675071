package profile

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/workshopindex/workshop-server/internal/catalog"
	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// fakeFetcher serves canned profiles and can rate-limit the first n calls.
type fakeFetcher struct {
	mu         sync.Mutex
	rateLimits int
	calls      [][]string
}

func (f *fakeFetcher) FetchProfiles(_ context.Context, ids []string) ([]catalog.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.rateLimits > 0 {
		f.rateLimits--
		return nil, errors.ErrRateLimited
	}

	profiles := make([]catalog.Profile, len(ids))
	for i, id := range ids {
		profiles[i] = catalog.Profile{ID: id, Name: "name-" + id}
	}
	return profiles, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeNameStore is an in-memory NameStore.
type fakeNameStore struct {
	mu    sync.Mutex
	names map[string]*domain.UserName
}

func newFakeNameStore() *fakeNameStore {
	return &fakeNameStore{names: make(map[string]*domain.UserName)}
}

func (f *fakeNameStore) GetUserName(_ context.Context, id string) (*domain.UserName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.names[id]; ok {
		return u, nil
	}
	return nil, errors.NotFound("username not found")
}

func (f *fakeNameStore) UpsertUserName(_ context.Context, u *domain.UserName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[u.ID] = u
	return nil
}

func (f *fakeNameStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.names)
}

func testOptions() Options {
	return Options{
		BatchSize:   100,
		RetryDelay:  10 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestBatcher_RefreshesObservedIDs(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeNameStore()
	b := New(fetcher, store, testOptions(), slog.Default())
	b.Start()
	defer b.Stop()

	b.Observe("u-1")
	b.Observe("u-2")

	waitFor(t, func() bool { return store.count() == 2 })

	cached, err := store.GetUserName(context.Background(), "u-1")
	assert.NoError(t, err)
	assert.Equal(t, "name-u-1", cached.Name)
}

func TestBatcher_DeduplicatesWithinBatch(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeNameStore()
	b := New(fetcher, store, testOptions(), slog.Default())

	// Queue before Start so everything lands in one batch.
	b.Observe("u-1")
	b.Observe("u-1")
	b.Observe("u-1")
	b.Observe("u-2")
	b.Start()
	defer b.Stop()

	waitFor(t, func() bool { return store.count() == 2 })
	assert.Equal(t, 1, fetcher.callCount())
	assert.ElementsMatch(t, []string{"u-1", "u-2"}, fetcher.calls[0])
}

func TestBatcher_SkipsFreshNames(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeNameStore()
	store.names["u-1"] = &domain.UserName{
		ID:          "u-1",
		Name:        "cached",
		RefreshedAt: time.Now(),
	}

	b := New(fetcher, store, testOptions(), slog.Default())
	b.Observe("u-1")
	b.Observe("u-2")
	b.Start()
	defer b.Stop()

	waitFor(t, func() bool { return store.count() == 2 })
	assert.Equal(t, [][]string{{"u-2"}}, fetcher.calls)

	// The fresh name was not overwritten.
	cached, _ := store.GetUserName(context.Background(), "u-1")
	assert.Equal(t, "cached", cached.Name)
}

func TestBatcher_RefreshesStaleNames(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := newFakeNameStore()
	store.names["u-1"] = &domain.UserName{
		ID:          "u-1",
		Name:        "ancient",
		RefreshedAt: time.Now().Add(-8 * 24 * time.Hour),
	}

	b := New(fetcher, store, testOptions(), slog.Default())
	b.Observe("u-1")
	b.Start()
	defer b.Stop()

	waitFor(t, func() bool {
		cached, err := store.GetUserName(context.Background(), "u-1")
		return err == nil && cached.Name == "name-u-1"
	})
}

func TestBatcher_RetriesAfterRateLimit(t *testing.T) {
	fetcher := &fakeFetcher{rateLimits: 2}
	store := newFakeNameStore()
	b := New(fetcher, store, testOptions(), slog.Default())
	b.Observe("u-1")
	b.Start()
	defer b.Stop()

	waitFor(t, func() bool { return store.count() == 1 })
	assert.Equal(t, 3, fetcher.callCount())
}

func TestBatcher_AbandonsAfterAttemptBudget(t *testing.T) {
	fetcher := &fakeFetcher{rateLimits: 10}
	store := newFakeNameStore()
	b := New(fetcher, store, testOptions(), slog.Default())
	b.Observe("u-1")
	b.Start()
	defer b.Stop()

	waitFor(t, func() bool { return fetcher.callCount() == 3 })
	time.Sleep(50 * time.Millisecond)

	// Three attempts, then the batch is dropped without a store write.
	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, 0, store.count())
}
