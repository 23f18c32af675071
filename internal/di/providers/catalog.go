package providers

import (
	"github.com/samber/do/v2"

	"github.com/workshopindex/workshop-server/internal/catalog"
	"github.com/workshopindex/workshop-server/internal/config"
	"github.com/workshopindex/workshop-server/internal/logger"
)

// CatalogClientHandle wraps the catalog client with shutdown capability.
type CatalogClientHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideCatalogClient provides the rate-limited catalog API client.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.NewClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.APIToken,
		cfg.Catalog.PageSize,
		log.Logger,
	)
	return &CatalogClientHandle{Client: client}, nil
}

// ProfileClientHandle wraps the profile client with shutdown capability.
type ProfileClientHandle struct {
	*catalog.ProfileClient
}

// Shutdown implements do.Shutdownable.
func (h *ProfileClientHandle) Shutdown() error {
	h.ProfileClient.Close()
	return nil
}

// ProvideProfileClient provides the batched profile lookup client.
func ProvideProfileClient(i do.Injector) (*ProfileClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.NewProfileClient(
		cfg.Profile.BaseURL,
		cfg.Catalog.APIToken,
		log.Logger,
	)
	return &ProfileClientHandle{ProfileClient: client}, nil
}
