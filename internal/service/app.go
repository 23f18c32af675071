// Package service holds the application-level operations layered on the
// store: app administration, the taxonomy reconciler and the display name
// cache.
package service

import (
	"context"
	"log/slog"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// AppStore is the persistence surface for app administration.
type AppStore interface {
	CreateApp(ctx context.Context, a *domain.App) error
	GetApp(ctx context.Context, id int64) (*domain.App, error)
	ListApps(ctx context.Context) ([]*domain.App, error)
	ListEnabledAppIDs(ctx context.Context) ([]int64, error)
	SetAppEnabled(ctx context.Context, id int64, enabled bool) error
	SetAppAvailable(ctx context.Context, id int64, available bool) error
	DeleteApp(ctx context.Context, id int64) error
}

// DownloadNotifier is the scheduler surface app administration drives.
type DownloadNotifier interface {
	AddApp(appID int64)
	RemoveApp(appID int64)
}

// AppService manages the catalog app roster and keeps the download
// scheduler in sync with it.
type AppService struct {
	store     AppStore
	scheduler DownloadNotifier
	logger    *slog.Logger
}

// NewAppService creates an app service.
func NewAppService(store AppStore, scheduler DownloadNotifier, logger *slog.Logger) *AppService {
	return &AppService{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Create registers a new app. Enabled apps start downloading immediately.
func (s *AppService) Create(ctx context.Context, a *domain.App) error {
	if a.ID <= 0 {
		return errors.Validation("app id must be positive")
	}
	if a.Name == "" {
		return errors.Validation("app name is required")
	}

	if err := s.store.CreateApp(ctx, a); err != nil {
		return err
	}
	if a.Enabled {
		s.scheduler.AddApp(a.ID)
	}

	s.logger.Info("app registered", "app", a.ID, "name", a.Name, "enabled", a.Enabled)
	return nil
}

// Get returns one app.
func (s *AppService) Get(ctx context.Context, id int64) (*domain.App, error) {
	return s.store.GetApp(ctx, id)
}

// List returns all registered apps.
func (s *AppService) List(ctx context.Context) ([]*domain.App, error) {
	return s.store.ListApps(ctx)
}

// Enable marks an app download-eligible and registers it with the
// scheduler.
func (s *AppService) Enable(ctx context.Context, id int64) error {
	if err := s.store.SetAppEnabled(ctx, id, true); err != nil {
		return err
	}
	s.scheduler.AddApp(id)
	s.logger.Info("app enabled", "app", id)
	return nil
}

// Disable stops an app's downloads. Stored items are kept.
func (s *AppService) Disable(ctx context.Context, id int64) error {
	if err := s.store.SetAppEnabled(ctx, id, false); err != nil {
		return err
	}
	s.scheduler.RemoveApp(id)
	s.logger.Info("app disabled", "app", id)
	return nil
}

// SetAvailable flips client visibility without touching downloads.
func (s *AppService) SetAvailable(ctx context.Context, id int64, available bool) error {
	return s.store.SetAppAvailable(ctx, id, available)
}

// Delete removes an app from the roster and stops its downloads.
func (s *AppService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteApp(ctx, id); err != nil {
		return err
	}
	s.scheduler.RemoveApp(id)
	s.logger.Info("app deleted", "app", id)
	return nil
}

// ResumeDownloads registers every enabled app with the scheduler. Called
// once at startup.
func (s *AppService) ResumeDownloads(ctx context.Context) error {
	ids, err := s.store.ListEnabledAppIDs(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "listing enabled apps")
	}
	for _, id := range ids {
		s.scheduler.AddApp(id)
	}
	s.logger.Info("downloads resumed", "apps", len(ids))
	return nil
}
