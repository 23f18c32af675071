// Package di provides dependency injection configuration for the workshop
// server.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/workshopindex/workshop-server/internal/config"
	"github.com/workshopindex/workshop-server/internal/di/providers"
	"github.com/workshopindex/workshop-server/internal/language"
	"github.com/workshopindex/workshop-server/internal/logger"
	"github.com/workshopindex/workshop-server/internal/markup"
	"github.com/workshopindex/workshop-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Upstream clients
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideProfileClient)

	// Text processing
	do.Provide(injector, providers.ProvideDetector)
	do.Provide(injector, providers.ProvideNormalizer)

	// Pipeline, inner stage first
	do.Provide(injector, providers.ProvidePropertyService)
	do.Provide(injector, providers.ProvideGate)
	do.Provide(injector, providers.ProvideWriter)
	do.Provide(injector, providers.ProvideBatcher)
	do.Provide(injector, providers.ProvideAssembler)
	do.Provide(injector, providers.ProvideScheduler)

	// Business services
	do.Provide(injector, providers.ProvideUserNameService)
	do.Provide(injector, providers.ProvideAppService)

	return injector
}

// Bootstrap initializes all services and returns once the pipeline is
// running and every enabled app is registered for downloads.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.CatalogClientHandle](injector)
	_ = do.MustInvoke[*providers.ProfileClientHandle](injector)
	_ = do.MustInvoke[*language.Detector](injector)
	_ = do.MustInvoke[*markup.Normalizer](injector)
	_ = do.MustInvoke[*service.PropertyService](injector)
	_ = do.MustInvoke[*providers.GateHandle](injector)
	_ = do.MustInvoke[*providers.WriterHandle](injector)
	_ = do.MustInvoke[*providers.BatcherHandle](injector)
	_ = do.MustInvoke[*providers.AssemblerHandle](injector)
	_ = do.MustInvoke[*providers.SchedulerHandle](injector)
	_ = do.MustInvoke[*service.UserNameService](injector)

	apps := do.MustInvoke[*service.AppService](injector)
	return apps.ResumeDownloads(context.Background())
}
