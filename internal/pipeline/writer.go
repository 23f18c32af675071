package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/workshopindex/workshop-server/internal/domain"
)

// itemBuffer bounds how many assembled items can queue ahead of the write
// loop. Writes are serialized; the buffer absorbs assembly bursts.
const itemBuffer = 256

// ItemStore persists assembled items.
type ItemStore interface {
	UpsertItem(ctx context.Context, item *domain.Item, children []string) error
}

// InferenceOfferer admits items to the extraction backend. Offer blocks
// while the backend is busy.
type InferenceOfferer interface {
	Offer(ctx context.Context, itemID string) bool
}

// Writer serializes item persistence. One goroutine drains the mailbox and
// commits each item in its own transaction; a failed write loses that item
// for this run only, the next download picks it up again.
type Writer struct {
	store  ItemStore
	gate   InferenceOfferer
	logger *slog.Logger

	items chan *domain.AssembledItem
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWriter creates a writer. Start must be called before EnqueueItem.
// gate may be nil when extraction is disabled.
func NewWriter(store ItemStore, gate InferenceOfferer, logger *slog.Logger) *Writer {
	return &Writer{
		store:  store,
		gate:   gate,
		logger: logger,
		items:  make(chan *domain.AssembledItem, itemBuffer),
		done:   make(chan struct{}),
	}
}

// Start launches the write loop.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop shuts the writer down. Queued items are dropped.
func (w *Writer) Stop() {
	close(w.done)
	w.wg.Wait()
}

// EnqueueItem hands an assembled item to the write loop. Blocks while the
// mailbox is full; returns false on shutdown or context expiry.
func (w *Writer) EnqueueItem(ctx context.Context, item *domain.AssembledItem) bool {
	select {
	case w.items <- item:
		return true
	case <-w.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case item := <-w.items:
			w.write(item)
		case <-w.done:
			return
		}
	}
}

// write commits one item and, when it was flagged during assembly, offers
// it for extraction. The offer blocks on the single backend slot, which is
// what throttles the whole pipeline to extraction speed.
func (w *Writer) write(item *domain.AssembledItem) {
	ctx := context.Background()

	if err := w.store.UpsertItem(ctx, &item.Item, item.Children); err != nil {
		w.logger.Error("persisting item", "item", item.ID, "error", err)
		return
	}

	if item.QueueInference && w.gate != nil {
		w.gate.Offer(ctx, item.ID)
	}
}
