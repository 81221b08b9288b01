package ports

import (
	"context"
	"time"

	"beacon/contexts/campaign-core/offer-service/domain/entities"
)

// OfferRepository persists offers. Create and Update also harvest the
// aggregate's pending domain events into the outbox within the same store
// transaction: if the business write rolls back, no event row exists.
type OfferRepository interface {
	CreateOffer(ctx context.Context, offer *entities.Offer) error
	UpdateOffer(ctx context.Context, offer *entities.Offer) error
	GetOffer(ctx context.Context, offerID string) (entities.Offer, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
