package providers

import (
	"github.com/samber/do/v2"

	"github.com/workshopindex/workshop-server/internal/config"
	"github.com/workshopindex/workshop-server/internal/logger"
	"github.com/workshopindex/workshop-server/internal/store/sqlite"
)

// StoreHandle wraps the store for lifecycle management.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Store.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := sqlite.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database opened", "path", cfg.Database.Path)

	return &StoreHandle{Store: store}, nil
}
