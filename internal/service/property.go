package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// Value length bounds. Some short valid entries include "ui" and "art".
const (
	minValueLen = 2
	maxValueLen = 32
)

// similarityThreshold is the normalized edit-distance similarity above
// which two property values are considered near-duplicates.
const similarityThreshold = 0.8

// PropertyStore is the persistence surface the reconciler needs.
type PropertyStore interface {
	ListPropertyValues(ctx context.Context, class domain.PropertyClass) ([]string, error)
	CreateOrLinkProperty(ctx context.Context, itemID string, class domain.PropertyClass, value, note, source string) error
	GetLink(ctx context.Context, itemID string, class domain.PropertyClass, value string) (*domain.TaxonomyLink, error)
	GetLinkByID(ctx context.Context, id int64) (*domain.TaxonomyLink, error)
	SetLinkStatus(ctx context.Context, linkID int64, status domain.LinkStatus) error
	CastVote(ctx context.Context, linkID int64, userID string, score int) error
	RemoveVote(ctx context.Context, linkID int64, userID string) error
}

// PropertyService reconciles the crowd-sourced taxonomy: property
// submissions with fuzzy-duplicate rejection, and votes with atomic
// counter maintenance.
type PropertyService struct {
	store  PropertyStore
	logger *slog.Logger
}

// NewPropertyService creates a new property service.
func NewPropertyService(store PropertyStore, logger *slog.Logger) *PropertyService {
	return &PropertyService{
		store:  store,
		logger: logger,
	}
}

// Submission is a request to attach a (class, value) property to an item.
type Submission struct {
	ItemID string
	Class  domain.PropertyClass
	Value  string
	// Note is the submitter's reasoning or justification for inclusion.
	Note string
}

// Submit validates, deduplicates and persists a property submission.
//
// The value is lower-cased before all checks. A value textually close to an
// existing one of the same class is rejected with errors.ErrConflict unless
// it is an exact match of a stored value, in which case the submission is
// an idempotent re-link. Validation failures return errors.ErrValidation.
func (s *PropertyService) Submit(ctx context.Context, sub Submission, source string) error {
	sub.Value = strings.ToLower(sub.Value)

	if !sub.Class.Valid() {
		return errors.Validationf("unknown property class %q", sub.Class)
	}
	if n := len(sub.Value); n < minValueLen || n > maxValueLen {
		return errors.Validationf("property value must be between %d and %d characters; is %d",
			minValueLen, maxValueLen, n)
	}
	for _, r := range sub.Value {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return errors.Validation("property value must contain only letters, whitespace or punctuation")
		}
	}

	existing, err := s.store.ListPropertyValues(ctx, sub.Class)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "listing property values")
	}

	exact := false
	similar := false
	for _, value := range existing {
		if value == sub.Value {
			exact = true
			continue
		}
		if levenshtein.Similarity(value, sub.Value, nil) >= similarityThreshold {
			similar = true
		}
	}
	if similar && !exact {
		s.logger.Debug("near-duplicate property rejected",
			"class", sub.Class,
			"value", sub.Value,
		)
		return errors.Conflict("a similar property value already exists")
	}

	if err := s.store.CreateOrLinkProperty(ctx, sub.ItemID, sub.Class, sub.Value, sub.Note, source); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "persisting property link")
	}

	s.logger.Debug("property linked",
		"item", sub.ItemID,
		"class", sub.Class,
		"value", sub.Value,
		"source", source,
	)
	return nil
}

// CreateSystemProperty links an extraction-backend result to an item.
func (s *PropertyService) CreateSystemProperty(ctx context.Context, itemID string, class domain.PropertyClass, value string) error {
	return s.Submit(ctx, Submission{
		ItemID: itemID,
		Class:  class,
		Value:  value,
	}, domain.SourceSystem)
}

// Vote casts or updates one user's vote on the link between an item and a
// (class, value) pair. Score must be exactly +1 or -1. The store reconciles
// the link's counters in the same transaction as the vote write.
func (s *PropertyService) Vote(ctx context.Context, itemID string, class domain.PropertyClass, value, userID string, score int) error {
	if score != 1 && score != -1 {
		return errors.Validation("vote score must be +1 or -1")
	}

	link, err := s.store.GetLink(ctx, itemID, class, strings.ToLower(value))
	if err != nil {
		return err
	}
	return s.store.CastVote(ctx, link.ID, userID, score)
}

// RemoveVote withdraws a user's vote. Removing a vote that was never cast,
// or voting against a link that does not exist, is a no-op.
func (s *PropertyService) RemoveVote(ctx context.Context, itemID string, class domain.PropertyClass, value, userID string) error {
	link, err := s.store.GetLink(ctx, itemID, class, strings.ToLower(value))
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.RemoveVote(ctx, link.ID, userID)
}

// SetStatus moves a taxonomy link between moderation states. Links are
// never deleted; rejection supersedes removal.
func (s *PropertyService) SetStatus(ctx context.Context, linkID int64, status domain.LinkStatus) error {
	if !status.Valid() {
		return errors.Validationf("unknown link status %q", status)
	}
	return s.store.SetLinkStatus(ctx, linkID, status)
}

// GetLink returns the taxonomy link for an item and (class, value) pair.
func (s *PropertyService) GetLink(ctx context.Context, itemID string, class domain.PropertyClass, value string) (*domain.TaxonomyLink, error) {
	return s.store.GetLink(ctx, itemID, class, strings.ToLower(value))
}
