package offerservice

import (
	"log/slog"

	"beacon/contexts/campaign-core/offer-service/adapters/memory"
	"beacon/contexts/campaign-core/offer-service/application/commands"
	"beacon/contexts/campaign-core/offer-service/application/queries"
	"beacon/contexts/campaign-core/offer-service/ports"
	"beacon/internal/shared/outbox"
)

type Module struct {
	CreateOffer  commands.CreateOfferUseCase
	AcceptOffer  commands.AcceptOfferUseCase
	DeclineOffer commands.DeclineOfferUseCase
	GetOffer     queries.GetOfferUseCase
}

type Dependencies struct {
	Offers      ports.OfferRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		CreateOffer: commands.CreateOfferUseCase{
			Offers:      deps.Offers,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		AcceptOffer: commands.AcceptOfferUseCase{
			Offers:      deps.Offers,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		DeclineOffer: commands.DeclineOfferUseCase{
			Offers:      deps.Offers,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		GetOffer: queries.GetOfferUseCase{
			Offers: deps.Offers,
			Logger: deps.Logger,
		},
	}
}

// InMemoryModule bundles the module with the stores tests drive directly.
type InMemoryModule struct {
	Module

	Offers  *memory.Store
	Records *outbox.MemoryStore
}

func NewInMemoryModule(logger *slog.Logger) InMemoryModule {
	records := outbox.NewMemoryStore()
	offers := memory.NewStore(records)
	module := NewModule(Dependencies{
		Offers:      offers,
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Logger:      logger,
	})
	return InMemoryModule{Module: module, Offers: offers, Records: records}
}
