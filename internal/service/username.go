package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// UserNameStore is the persistence surface for the display name cache.
type UserNameStore interface {
	GetUserName(ctx context.Context, id string) (*domain.UserName, error)
	UpsertUserName(ctx context.Context, u *domain.UserName) error
}

// UserNameService exposes the cached display names the profile batcher
// maintains.
type UserNameService struct {
	store  UserNameStore
	logger *slog.Logger
}

// NewUserNameService creates a username service.
func NewUserNameService(store UserNameStore, logger *slog.Logger) *UserNameService {
	return &UserNameService{store: store, logger: logger}
}

// Get returns the cached display name for an id.
// Returns errors.ErrNotFound when the id has never been fetched.
func (s *UserNameService) Get(ctx context.Context, id string) (*domain.UserName, error) {
	return s.store.GetUserName(ctx, id)
}

// NeedsRefresh reports whether an id's cached name is missing or stale.
// Read errors count as stale so a broken cache row gets re-fetched.
func (s *UserNameService) NeedsRefresh(ctx context.Context, id string) bool {
	cached, err := s.store.GetUserName(ctx, id)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error("reading cached name", "id", id, "error", err)
		}
		return true
	}
	return time.Since(cached.RefreshedAt) > domain.UserNameMaxAge
}

// Update stores a display name with a fresh refresh timestamp.
func (s *UserNameService) Update(ctx context.Context, id, name string) error {
	return s.store.UpsertUserName(ctx, &domain.UserName{
		ID:          id,
		Name:        name,
		RefreshedAt: time.Now(),
	})
}
