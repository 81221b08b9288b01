package linkingservice

import (
	"log/slog"
	"time"

	"beacon/contexts/social-integration/linking-service/adapters/memory"
	"beacon/contexts/social-integration/linking-service/application/commands"
	"beacon/contexts/social-integration/linking-service/application/queries"
	"beacon/contexts/social-integration/linking-service/domain/workflow"
	"beacon/contexts/social-integration/linking-service/ports"
	"beacon/internal/shared/outbox"
	"beacon/internal/shared/saga"
)

type Module struct {
	Linking *saga.Orchestrator
	Renewal *saga.Orchestrator

	StartLinking   commands.StartLinkingUseCase
	RequestRenewal commands.RequestRenewalUseCase
	GetLinkStatus  queries.GetLinkStatusUseCase

	// Definitions are exposed for timeout-job wiring.
	Definitions []saga.Definition
}

type Dependencies struct {
	Instances saga.InstanceStore
	Scheduler saga.Scheduler
	Outbox    outbox.Appender
	Registry  *outbox.Registry
	Cache     ports.StatusCache

	Clock       ports.Clock
	IDGenerator ports.IDGenerator

	LinkingTimeout time.Duration
	RenewalTimeout time.Duration
	StatusCacheTTL time.Duration

	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	linkingDef := workflow.NewLinkingDefinition(deps.LinkingTimeout)
	renewalDef := workflow.NewRenewalDefinition(deps.RenewalTimeout)

	linking := &saga.Orchestrator{
		Definition: linkingDef,
		Instances:  deps.Instances,
		Scheduler:  deps.Scheduler,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	renewal := &saga.Orchestrator{
		Definition: renewalDef,
		Instances:  deps.Instances,
		Scheduler:  deps.Scheduler,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}

	if deps.Registry != nil {
		saga.RegisterHandlers(deps.Registry, linking)
		saga.RegisterHandlers(deps.Registry, renewal)
	}

	return Module{
		Linking: linking,
		Renewal: renewal,
		StartLinking: commands.StartLinkingUseCase{
			Outbox:      deps.Outbox,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		RequestRenewal: commands.RequestRenewalUseCase{
			Outbox:      deps.Outbox,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		GetLinkStatus: queries.GetLinkStatusUseCase{
			Instances:  deps.Instances,
			Cache:      deps.Cache,
			Definition: linkingDef,
			CacheTTL:   deps.StatusCacheTTL,
			Logger:     deps.Logger,
		},
		Definitions: []saga.Definition{linkingDef, renewalDef},
	}
}

// InMemoryModule bundles the module with the stores tests drive directly.
type InMemoryModule struct {
	Module

	Instances *saga.MemoryStore
	Records   *outbox.MemoryStore
	Registry  *outbox.Registry
}

func NewInMemoryModule(logger *slog.Logger) InMemoryModule {
	instances := saga.NewMemoryStore()
	records := outbox.NewMemoryStore()
	registry := outbox.NewRegistry()

	module := NewModule(Dependencies{
		Instances:   instances,
		Scheduler:   instances,
		Outbox:      records,
		Registry:    registry,
		Cache:       memory.NewStatusCache(),
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Logger:      logger,
	})
	return InMemoryModule{
		Module:    module,
		Instances: instances,
		Records:   records,
		Registry:  registry,
	}
}
