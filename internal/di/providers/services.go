package providers

import (
	"github.com/samber/do/v2"

	"github.com/workshopindex/workshop-server/internal/logger"
	"github.com/workshopindex/workshop-server/internal/service"
)

// ProvidePropertyService provides the taxonomy reconciler.
func ProvidePropertyService(i do.Injector) (*service.PropertyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPropertyService(storeHandle.Store, log.Logger), nil
}

// ProvideUserNameService provides the display name cache service.
func ProvideUserNameService(i do.Injector) (*service.UserNameService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserNameService(storeHandle.Store, log.Logger), nil
}

// ProvideAppService provides app administration wired to the scheduler.
func ProvideAppService(i do.Injector) (*service.AppService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAppService(storeHandle.Store, schedulerHandle.Scheduler, log.Logger), nil
}
