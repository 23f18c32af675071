// Package profile caches upstream display names, batching lookups so a
// page of a hundred items costs one profile call instead of a hundred.
package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/workshopindex/workshop-server/internal/catalog"
	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// observeBuffer bounds queued author observations. Observe drops ids when
// the buffer is full; a dropped id comes back on the next download run.
const observeBuffer = 1024

// Fetcher is the batched profile lookup client surface.
type Fetcher interface {
	FetchProfiles(ctx context.Context, ids []string) ([]catalog.Profile, error)
}

// NameStore reads and writes cached display names.
type NameStore interface {
	GetUserName(ctx context.Context, id string) (*domain.UserName, error)
	UpsertUserName(ctx context.Context, u *domain.UserName) error
}

// Options tune the batcher.
type Options struct {
	// BatchSize caps how many ids go into one lookup call.
	BatchSize int
	// RetryDelay is the fixed wait after a rate-limit response.
	RetryDelay time.Duration
	// MaxAttempts bounds rate-limit retries per batch.
	MaxAttempts int
}

// Batcher collects author ids observed during assembly and refreshes
// their display names in deduplicated batches. Ids with a fresh cached
// name are skipped; the cache horizon is domain.UserNameMaxAge.
type Batcher struct {
	fetcher Fetcher
	store   NameStore
	logger  *slog.Logger
	opts    Options

	ids  chan string
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a batcher. Start must be called before Observe.
func New(fetcher Fetcher, store NameStore, opts Options, logger *slog.Logger) *Batcher {
	return &Batcher{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		opts:    opts,
		ids:     make(chan string, observeBuffer),
		done:    make(chan struct{}),
	}
}

// Start launches the batch loop.
func (b *Batcher) Start() {
	b.wg.Add(1)
	go b.run()
}

// Stop shuts the batcher down. Queued observations are dropped.
func (b *Batcher) Stop() {
	close(b.done)
	b.wg.Wait()
}

// Observe records that an author id was seen. Never blocks: when the
// buffer is full the id is silently dropped.
func (b *Batcher) Observe(id string) {
	select {
	case b.ids <- id:
	default:
	}
}

func (b *Batcher) run() {
	defer b.wg.Done()
	for {
		batch, ok := b.collect()
		if !ok {
			return
		}
		if len(batch) > 0 {
			b.refresh(batch)
		}
	}
}

// collect blocks for the first id, then drains whatever else is queued up
// to the batch cap, deduplicating and dropping ids whose cached name is
// still fresh. Returns false on shutdown.
func (b *Batcher) collect() ([]string, bool) {
	ctx := context.Background()

	var first string
	select {
	case first = <-b.ids:
	case <-b.done:
		return nil, false
	}

	seen := map[string]struct{}{first: {}}
	batch := make([]string, 0, b.opts.BatchSize)
	if b.needsRefresh(ctx, first) {
		batch = append(batch, first)
	}

	for len(batch) < b.opts.BatchSize {
		select {
		case id := <-b.ids:
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if b.needsRefresh(ctx, id) {
				batch = append(batch, id)
			}
		case <-b.done:
			return nil, false
		default:
			return batch, true
		}
	}
	return batch, true
}

// needsRefresh reports whether an id's cached name is missing or older
// than the staleness horizon. Read errors count as stale.
func (b *Batcher) needsRefresh(ctx context.Context, id string) bool {
	cached, err := b.store.GetUserName(ctx, id)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			b.logger.Error("reading cached name", "id", id, "error", err)
		}
		return true
	}
	return time.Since(cached.RefreshedAt) > domain.UserNameMaxAge
}

// refresh fetches one batch and stores the returned names. Rate-limit
// responses wait a fixed delay and retry; after the attempt budget the
// batch is abandoned, to be re-observed on a later run.
func (b *Batcher) refresh(batch []string) {
	ctx := context.Background()

	for attempt := 1; ; attempt++ {
		profiles, err := b.fetcher.FetchProfiles(ctx, batch)
		if errors.Is(err, errors.ErrRateLimited) {
			if attempt >= b.opts.MaxAttempts {
				b.logger.Warn("profile batch abandoned after rate limiting",
					"batch", len(batch), "attempts", attempt)
				return
			}
			select {
			case <-time.After(b.opts.RetryDelay):
				continue
			case <-b.done:
				return
			}
		}
		if err != nil {
			b.logger.Error("profile lookup failed", "batch", len(batch), "error", err)
			return
		}

		now := time.Now()
		for _, p := range profiles {
			err := b.store.UpsertUserName(ctx, &domain.UserName{
				ID:          p.ID,
				Name:        p.Name,
				RefreshedAt: now,
			})
			if err != nil {
				b.logger.Error("storing display name", "id", p.ID, "error", err)
			}
		}
		b.logger.Debug("profile batch refreshed",
			"requested", len(batch), "returned", len(profiles))
		return
	}
}
