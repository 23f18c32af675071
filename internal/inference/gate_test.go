package inference

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// fakeProjections serves (title, description) pairs.
type fakeProjections struct {
	projections map[string][2]string
}

func (f *fakeProjections) GetItemProjection(_ context.Context, id string) (string, string, error) {
	if p, ok := f.projections[id]; ok {
		return p[0], p[1], nil
	}
	return "", "", errors.NotFound("item not found")
}

// fakeClassifier returns a fixed record and counts calls.
type fakeClassifier struct {
	mu     sync.Mutex
	record domain.Classification
	calls  int
	block  chan struct{}
}

func (f *fakeClassifier) Classify(context.Context, string, string) (*domain.Classification, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	record := f.record
	return &record, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSink records materialized pairs.
type fakeSink struct {
	mu    sync.Mutex
	pairs []string
}

func (f *fakeSink) CreateSystemProperty(_ context.Context, itemID string, class domain.PropertyClass, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = append(f.pairs, itemID+"/"+string(class)+"/"+value)
	return nil
}

func (f *fakeSink) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pairs...)
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

func TestGate_MaterializesClassification(t *testing.T) {
	store := &fakeProjections{projections: map[string][2]string{
		"item-1": {"A Map", "A scary map."},
	}}
	classifier := &fakeClassifier{record: domain.Classification{
		Genres: []string{"horror"},
		Themes: []string{"zombies", "survival"},
	}}
	sink := &fakeSink{}

	g := NewGate(store, classifier, sink, slog.Default())
	g.Start()
	defer g.Stop()

	require.True(t, g.Offer(context.Background(), "item-1"))

	waitFor(t, func() bool { return len(sink.get()) == 3 })
	assert.Equal(t, []string{
		"item-1/genre/horror",
		"item-1/theme/zombies",
		"item-1/theme/survival",
	}, sink.get())
}

func TestGate_MissingItemSkipped(t *testing.T) {
	store := &fakeProjections{}
	classifier := &fakeClassifier{}
	sink := &fakeSink{}

	g := NewGate(store, classifier, sink, slog.Default())
	g.Start()
	defer g.Stop()

	require.True(t, g.Offer(context.Background(), "missing"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, classifier.callCount())
	assert.Empty(t, sink.get())
}

func TestGate_EmptyDescriptionSkipped(t *testing.T) {
	store := &fakeProjections{projections: map[string][2]string{
		"item-1": {"A Map", ""},
	}}
	classifier := &fakeClassifier{}
	sink := &fakeSink{}

	g := NewGate(store, classifier, sink, slog.Default())
	g.Start()
	defer g.Stop()

	require.True(t, g.Offer(context.Background(), "item-1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, classifier.callCount())
}

func TestGate_OfferBlocksWhileBusy(t *testing.T) {
	store := &fakeProjections{projections: map[string][2]string{
		"item-1": {"t", "d"},
		"item-2": {"t", "d"},
		"item-3": {"t", "d"},
	}}
	block := make(chan struct{})
	classifier := &fakeClassifier{block: block}
	sink := &fakeSink{}

	g := NewGate(store, classifier, sink, slog.Default())
	g.Start()
	defer g.Stop()

	ctx := context.Background()
	require.True(t, g.Offer(ctx, "item-1")) // picked up by the worker
	require.True(t, g.Offer(ctx, "item-2")) // occupies the single slot

	// A third offer cannot be accepted until the worker finishes item-1.
	timedOut, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.False(t, g.Offer(timedOut, "item-3"))

	close(block)
	waitFor(t, func() bool { return classifier.callCount() >= 2 })
}

func TestGate_OfferAfterStop(t *testing.T) {
	store := &fakeProjections{}
	g := NewGate(store, &fakeClassifier{}, &fakeSink{}, slog.Default())
	g.Start()
	g.Stop()

	assert.False(t, g.Offer(context.Background(), "item-1"))
}
