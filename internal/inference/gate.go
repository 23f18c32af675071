package inference

import (
	"context"
	"log/slog"
	"sync"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// ProjectionStore fetches the minimal (title, description) projection the
// backend consumes.
type ProjectionStore interface {
	GetItemProjection(ctx context.Context, id string) (title, description string, err error)
}

// PropertySink materializes system-sourced classification pairs.
type PropertySink interface {
	CreateSystemProperty(ctx context.Context, itemID string, class domain.PropertyClass, value string) error
}

// Gate is the single-slot admission gate in front of the extraction
// backend. Its mailbox has capacity one, so a second Offer blocks until the
// current generation completes. This is the system's only hard backpressure
// point: inference-bound work is throttled independently of download
// throughput.
type Gate struct {
	store      ProjectionStore
	classifier Classifier
	properties PropertySink
	logger     *slog.Logger

	queue chan string
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewGate creates the gate. Start must be called before Offer.
func NewGate(store ProjectionStore, classifier Classifier, properties PropertySink, logger *slog.Logger) *Gate {
	return &Gate{
		store:      store,
		classifier: classifier,
		properties: properties,
		logger:     logger,
		queue:      make(chan string, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (g *Gate) Start() {
	g.wg.Add(1)
	go g.run()
}

// Stop shuts the gate down. An in-flight extraction call is not canceled;
// Stop returns once it completes.
func (g *Gate) Stop() {
	close(g.done)
	g.wg.Wait()
}

// Offer submits an item id for classification. It blocks while the slot is
// occupied, propagating backpressure to the caller. Returns false when the
// gate is shut down or ctx expires before the slot frees up.
func (g *Gate) Offer(ctx context.Context, itemID string) bool {
	select {
	case g.queue <- itemID:
		return true
	case <-g.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (g *Gate) run() {
	defer g.wg.Done()
	for {
		select {
		case itemID := <-g.queue:
			g.processOne(itemID)
		case <-g.done:
			return
		}
	}
}

// processOne runs one item through extraction and materializes the
// resulting property links. Every failure is isolated: a bad pair never
// blocks the remaining pairs, and a failed extraction only loses this item.
func (g *Gate) processOne(itemID string) {
	ctx := context.Background()

	title, description, err := g.store.GetItemProjection(ctx, itemID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			g.logger.Debug("item missing, skipping extraction", "item", itemID)
		} else {
			g.logger.Error("fetching item projection", "item", itemID, "error", err)
		}
		return
	}
	if title == "" || description == "" {
		g.logger.Debug("item lacks title or description, skipping extraction", "item", itemID)
		return
	}

	record, err := g.classifier.Classify(ctx, title, description)
	if err != nil {
		g.logger.Error("extraction failed", "item", itemID, "error", err)
		return
	}

	for _, pair := range record.Pairs() {
		if err := g.properties.CreateSystemProperty(ctx, itemID, pair.Class, pair.Value); err != nil {
			g.logger.Error("materializing extracted property",
				"item", itemID,
				"class", pair.Class,
				"value", pair.Value,
				"error", err,
			)
			continue
		}
		g.logger.Debug("extracted property linked",
			"item", itemID,
			"class", pair.Class,
			"value", pair.Value,
		)
	}
}
