package queries

import (
	"context"
	"log/slog"

	"beacon/contexts/campaign-core/offer-service/domain/entities"
	"beacon/contexts/campaign-core/offer-service/ports"
)

type GetOfferUseCase struct {
	Offers ports.OfferRepository
	Logger *slog.Logger
}

func (uc GetOfferUseCase) Execute(ctx context.Context, offerID string) (entities.Offer, error) {
	return uc.Offers.GetOffer(ctx, offerID)
}
