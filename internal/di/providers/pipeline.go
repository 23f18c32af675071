package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/workshopindex/workshop-server/internal/config"
	"github.com/workshopindex/workshop-server/internal/inference"
	"github.com/workshopindex/workshop-server/internal/language"
	"github.com/workshopindex/workshop-server/internal/logger"
	"github.com/workshopindex/workshop-server/internal/markup"
	"github.com/workshopindex/workshop-server/internal/pipeline"
	"github.com/workshopindex/workshop-server/internal/profile"
	"github.com/workshopindex/workshop-server/internal/scheduler"
	"github.com/workshopindex/workshop-server/internal/service"
)

// ProvideDetector provides the shared language detector.
// Model loading is slow, so this must only happen once.
func ProvideDetector(i do.Injector) (*language.Detector, error) {
	return language.NewDetector(), nil
}

// ProvideNormalizer provides the description markup normalizer.
func ProvideNormalizer(i do.Injector) (*markup.Normalizer, error) {
	return markup.NewNormalizer(), nil
}

// GateHandle wraps the inference gate with shutdown capability. Nil when
// extraction is disabled.
type GateHandle struct {
	*inference.Gate
}

// Shutdown implements do.Shutdownable.
func (h *GateHandle) Shutdown() error {
	if h.Gate != nil {
		h.Gate.Stop()
	}
	return nil
}

// ProvideGate provides the single-slot extraction gate.
func ProvideGate(i do.Injector) (*GateHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Inference.Enabled {
		log.Info("Extraction backend disabled")
		return &GateHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	properties := do.MustInvoke[*service.PropertyService](i)

	classifier := inference.NewClient(cfg.Inference.BaseURL, log.Logger)
	gate := inference.NewGate(storeHandle.Store, classifier, properties, log.Logger)
	gate.Start()

	log.Info("Extraction gate started", "backend", cfg.Inference.BaseURL)

	return &GateHandle{Gate: gate}, nil
}

// WriterHandle wraps the item writer with shutdown capability.
type WriterHandle struct {
	*pipeline.Writer
}

// Shutdown implements do.Shutdownable.
func (h *WriterHandle) Shutdown() error {
	h.Writer.Stop()
	return nil
}

// ProvideWriter provides the serialized item writer.
func ProvideWriter(i do.Injector) (*WriterHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gateHandle := do.MustInvoke[*GateHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	var gate pipeline.InferenceOfferer
	if gateHandle.Gate != nil {
		gate = gateHandle.Gate
	}

	writer := pipeline.NewWriter(storeHandle.Store, gate, log.Logger)
	writer.Start()

	return &WriterHandle{Writer: writer}, nil
}

// BatcherHandle wraps the profile batcher with shutdown capability.
type BatcherHandle struct {
	*profile.Batcher
}

// Shutdown implements do.Shutdownable.
func (h *BatcherHandle) Shutdown() error {
	h.Batcher.Stop()
	return nil
}

// ProvideBatcher provides the display name batcher.
func ProvideBatcher(i do.Injector) (*BatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*ProfileClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	batcher := profile.New(clientHandle.ProfileClient, storeHandle.Store, profile.Options{
		BatchSize:   cfg.Profile.BatchSize,
		RetryDelay:  cfg.Profile.RetryDelay,
		MaxAttempts: cfg.Profile.MaxAttempts,
	}, log.Logger)
	batcher.Start()

	return &BatcherHandle{Batcher: batcher}, nil
}

// AssemblerHandle wraps the assembler with shutdown capability.
type AssemblerHandle struct {
	*pipeline.Assembler
}

// Shutdown implements do.Shutdownable.
func (h *AssemblerHandle) Shutdown() error {
	h.Assembler.Stop()
	return nil
}

// ProvideAssembler provides the page assembler.
func ProvideAssembler(i do.Injector) (*AssemblerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	writerHandle := do.MustInvoke[*WriterHandle](i)
	batcherHandle := do.MustInvoke[*BatcherHandle](i)
	detector := do.MustInvoke[*language.Detector](i)
	normalizer := do.MustInvoke[*markup.Normalizer](i)
	log := do.MustInvoke[*logger.Logger](i)

	assembler := pipeline.NewAssembler(
		storeHandle.Store,
		writerHandle.Writer,
		batcherHandle.Batcher,
		detector,
		normalizer,
		language.Parse(cfg.Inference.Language),
		log.Logger,
	)
	assembler.Start()

	return &AssemblerHandle{Assembler: assembler}, nil
}

// SchedulerHandle wraps the scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
}

// Shutdown implements do.Shutdownable. Waits at most shutdownTimeout for
// in-flight runs to notice cancellation.
func (h *SchedulerHandle) Shutdown() error {
	done := make(chan struct{})
	go func() {
		h.Scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideScheduler provides the per-app download scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*CatalogClientHandle](i)
	assemblerHandle := do.MustInvoke[*AssemblerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	sched := scheduler.New(
		clientHandle.Client,
		storeHandle.Store,
		assemblerHandle.Assembler,
		scheduler.Options{
			Interval: cfg.Catalog.PollInterval,
			Force:    cfg.Catalog.Force,
			DumpDir:  cfg.Catalog.DumpDir,
		},
		log.Logger,
	)

	return &SchedulerHandle{Scheduler: sched}, nil
}
