// Package pipeline turns raw catalog pages into persisted items: the
// assembler joins and enriches entries, the writer commits them.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/workshopindex/workshop-server/internal/catalog"
	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
	"github.com/workshopindex/workshop-server/internal/store/sqlite"
)

// pageBuffer bounds how many downloaded pages can queue ahead of assembly.
const pageBuffer = 16

// ChangeSignalStore reads the stored staleness signals for an item.
type ChangeSignalStore interface {
	GetItemChangeSignals(ctx context.Context, id string) (*sqlite.ItemChangeSignals, error)
}

// ItemSink receives assembled items ready to persist.
type ItemSink interface {
	EnqueueItem(ctx context.Context, item *domain.AssembledItem) bool
}

// AuthorObserver is notified of every author id seen during assembly.
type AuthorObserver interface {
	Observe(id string)
}

// LanguageDetector reports which languages a text contains.
type LanguageDetector interface {
	Detect(text string) []domain.Language
}

// MarkupNormalizer converts upstream description markup to markdown.
type MarkupNormalizer interface {
	Normalize(s string) string
}

// Assembler consumes whole pages and assembles each entry independently.
// One goroutine drains the page mailbox; each entry is finished on its own
// short-lived goroutine so language detection on one item never stalls the
// rest of the page.
type Assembler struct {
	store     ChangeSignalStore
	sink      ItemSink
	authors   AuthorObserver
	detector  LanguageDetector
	normalize MarkupNormalizer
	logger    *slog.Logger

	// tuned is the language the extraction backend understands. Items not
	// detected as containing it are stored but never offered downstream.
	tuned domain.Language

	pages chan *catalog.Page
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewAssembler creates an assembler. Start must be called before EnqueuePage.
func NewAssembler(
	store ChangeSignalStore,
	sink ItemSink,
	authors AuthorObserver,
	detector LanguageDetector,
	normalize MarkupNormalizer,
	tuned domain.Language,
	logger *slog.Logger,
) *Assembler {
	return &Assembler{
		store:     store,
		sink:      sink,
		authors:   authors,
		detector:  detector,
		normalize: normalize,
		logger:    logger,
		tuned:     tuned,
		pages:     make(chan *catalog.Page, pageBuffer),
		done:      make(chan struct{}),
	}
}

// Start launches the mailbox goroutine.
func (a *Assembler) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop drains nothing: queued pages are dropped and in-flight entry
// goroutines are waited for.
func (a *Assembler) Stop() {
	close(a.done)
	a.wg.Wait()
}

// EnqueuePage hands a downloaded page to the assembler. Blocks while the
// mailbox is full; returns false on shutdown or context expiry.
func (a *Assembler) EnqueuePage(ctx context.Context, page *catalog.Page) bool {
	select {
	case a.pages <- page:
		return true
	case <-a.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (a *Assembler) run() {
	defer a.wg.Done()
	for {
		select {
		case page := <-a.pages:
			a.processPage(page)
		case <-a.done:
			return
		}
	}
}

// processPage decodes every entry and fans each one out to its own
// goroutine. A decode failure skips that entry only.
func (a *Assembler) processPage(page *catalog.Page) {
	var entries sync.WaitGroup
	for _, raw := range page.Entries {
		entry, err := catalog.DecodeEntry(raw)
		if err != nil {
			a.logger.Warn("undecodable entry skipped", "app", page.AppID, "error", err)
			continue
		}

		entries.Add(1)
		go func(entry *catalog.Entry) {
			defer entries.Done()
			a.assemble(page.AppID, entry)
		}(entry)
	}
	entries.Wait()
}

// assemble joins one raw entry into a storable item and forwards it.
// Entries missing a creator, owning app or title were removed or hidden
// upstream and are dropped without error.
func (a *Assembler) assemble(appID int64, entry *catalog.Entry) {
	ctx := context.Background()

	if entry.Creator == nil || entry.CreatorAppID == nil || entry.Title == nil {
		a.logger.Debug("incomplete entry dropped", "item", entry.PublishedFileID)
		return
	}

	a.authors.Observe(*entry.Creator)

	description := ""
	if entry.FileDescription != nil {
		description = a.normalize.Normalize(*entry.FileDescription)
	}

	languages := a.detector.Detect(*entry.Title + "\n" + description)

	item := domain.Item{
		ID:          entry.PublishedFileID,
		AppID:       appID,
		Author:      *entry.Creator,
		Title:       *entry.Title,
		Description: description,
		Languages:   languages,
	}
	if entry.TimeUpdated != nil {
		item.LastUpdated = *entry.TimeUpdated
	}
	if entry.PreviewURL != nil {
		item.PreviewURL = *entry.PreviewURL
	}
	if entry.VoteData != nil {
		item.Score = entry.VoteData.Score
	}
	for _, tag := range entry.Tags {
		slug := strings.ToLower(strings.TrimSpace(tag.Tag))
		if slug == "" {
			continue
		}
		display := tag.DisplayName
		if display == "" {
			display = tag.Tag
		}
		item.Tags = append(item.Tags, domain.Tag{
			AppID:       appID,
			Slug:        slug,
			DisplayName: display,
		})
	}

	children := make([]string, 0, len(entry.Children))
	for _, child := range entry.Children {
		if child.PublishedFileID != "" {
			children = append(children, child.PublishedFileID)
		}
	}

	assembled := &domain.AssembledItem{
		Item:           item,
		Children:       children,
		QueueInference: a.eligible(ctx, &item),
	}

	if !a.sink.EnqueueItem(ctx, assembled) {
		a.logger.Debug("writer rejected item", "item", item.ID)
	}
}

// eligible decides whether an item should be offered for extraction once
// it is persisted. New items qualify when written in the tuned language;
// known items additionally need both a different update timestamp and a
// changed description. Read errors fail closed.
func (a *Assembler) eligible(ctx context.Context, item *domain.Item) bool {
	if !domain.ContainsLanguage(item.Languages, a.tuned) {
		return false
	}
	if item.Description == "" {
		return false
	}

	stored, err := a.store.GetItemChangeSignals(ctx, item.ID)
	if errors.Is(err, errors.ErrNotFound) {
		return true
	}
	if err != nil {
		a.logger.Error("reading change signals", "item", item.ID, "error", err)
		return false
	}

	return item.LastUpdated != stored.LastUpdated && item.Description != stored.Description
}
