// Package scheduler drives periodic catalog downloads, one watcher
// goroutine per enabled app.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/workshopindex/workshop-server/internal/catalog"
	"github.com/workshopindex/workshop-server/internal/errors"
	"github.com/workshopindex/workshop-server/internal/id"
)

// PageFetcher is the catalog client surface the scheduler consumes.
type PageFetcher interface {
	FetchPage(ctx context.Context, appID int64, cursor string) (*catalog.Page, error)
}

// WatermarkStore reports how fresh an app's stored items are.
type WatermarkStore interface {
	MaxLastUpdated(ctx context.Context, appID int64) (int64, error)
}

// PageSink receives downloaded pages in order. The scheduler forwards
// pages whole and never looks inside entries.
type PageSink interface {
	EnqueuePage(ctx context.Context, page *catalog.Page) bool
}

// Options tune the scheduler.
type Options struct {
	// Interval is the per-app download period.
	Interval time.Duration
	// Force runs every app immediately on AddApp regardless of freshness.
	Force bool
	// DumpDir receives raw bodies of pages that failed to decode.
	DumpDir string
}

// Scheduler owns one watcher goroutine per registered app. Each watcher
// runs at most one download at a time; a run that overlaps its own period
// simply delays the next tick.
type Scheduler struct {
	fetcher PageFetcher
	store   WatermarkStore
	sink    PageSink
	logger  *slog.Logger
	opts    Options

	mu   sync.Mutex
	apps map[int64]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Apps are registered with AddApp.
func New(fetcher PageFetcher, store WatermarkStore, sink PageSink, opts Options, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		fetcher: fetcher,
		store:   store,
		sink:    sink,
		logger:  logger,
		opts:    opts,
		apps:    make(map[int64]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddApp registers an app for periodic downloads. Registering an app that
// is already watched is a no-op.
func (s *Scheduler) AddApp(appID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[appID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.apps[appID] = cancel

	s.wg.Add(1)
	go s.watch(ctx, appID)
}

// RemoveApp stops watching an app. Only the recurring timer is canceled;
// a run already in flight finishes normally.
func (s *Scheduler) RemoveApp(appID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.apps[appID]; ok {
		cancel()
		delete(s.apps, appID)
	}
}

// Stop cancels all watchers and waits for them to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// watch is the per-app loop. The first run fires immediately when the
// stored items are older than one period (or Force is set); otherwise it
// waits out the remainder of the current period.
func (s *Scheduler) watch(ctx context.Context, appID int64) {
	defer s.wg.Done()

	delay := s.initialDelay(ctx, appID)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	s.logger.Info("watching app", "app", appID, "first_run_in", delay)

	for {
		select {
		case <-timer.C:
			// Reset before the run so the period is fixed, not measured
			// from run end. Runs execute under the scheduler-wide context:
			// RemoveApp cancels only the timer wait, Stop interrupts runs.
			timer.Reset(s.opts.Interval)
			s.runOnce(s.ctx, appID)
		case <-ctx.Done():
			return
		}
	}
}

// initialDelay decides how long to wait before the first run.
func (s *Scheduler) initialDelay(ctx context.Context, appID int64) time.Duration {
	if s.opts.Force {
		return 0
	}

	watermark, err := s.store.MaxLastUpdated(ctx, appID)
	if err != nil {
		s.logger.Error("reading app watermark", "app", appID, "error", err)
		return 0
	}
	if watermark == 0 {
		return 0
	}

	age := time.Since(time.Unix(watermark, 0))
	if age >= s.opts.Interval {
		return 0
	}
	return s.opts.Interval - age
}

// runOnce walks the app's listing cursor by cursor until the reported
// total is reached or the feed ends. A malformed page aborts the run after
// its body is dumped; everything downloaded before it is already forwarded.
func (s *Scheduler) runOnce(ctx context.Context, appID int64) {
	start := time.Now()
	runID := id.MustGenerate("run")
	cursor := catalog.FirstCursor
	var downloaded int64

	s.logger.Info("download run starting", "run", runID, "app", appID)

	for {
		page, err := s.fetcher.FetchPage(ctx, appID, cursor)
		if err != nil {
			var malformed *catalog.MalformedPageError
			switch {
			case errors.As(err, &malformed):
				s.dumpPage(appID, malformed.Body)
				s.logger.Error("malformed page, aborting run",
					"app", appID, "cursor", cursor, "error", err)
			case ctx.Err() != nil:
				// Shutdown, not an upstream failure.
			default:
				s.logger.Error("fetching page, aborting run",
					"app", appID, "cursor", cursor, "error", err)
			}
			return
		}

		// An empty page is the normal end of the feed, reached when the
		// reported total overshoots what the listing actually serves.
		if len(page.Entries) == 0 {
			break
		}

		if !s.sink.EnqueuePage(ctx, page) {
			return
		}
		downloaded += int64(len(page.Entries))

		if downloaded >= page.Total {
			break
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}

	s.logger.Info("download run finished",
		"run", runID,
		"app", appID,
		"items", downloaded,
		"duration", time.Since(start),
	)
}

// dumpPage persists a raw undecodable body for postmortem. Dump failures
// are logged and swallowed; losing a dump never loses the run's log line.
func (s *Scheduler) dumpPage(appID int64, body []byte) {
	if s.opts.DumpDir == "" {
		return
	}
	if err := os.MkdirAll(s.opts.DumpDir, 0o755); err != nil {
		s.logger.Error("creating dump directory", "error", err)
		return
	}

	name := id.MustGenerate("page") + ".json"
	path := filepath.Join(s.opts.DumpDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Error("writing page dump", "path", path, "error", err)
		return
	}
	s.logger.Warn("malformed page dumped", "app", appID, "path", path)
}
