package commands

import (
	"context"
	"log/slog"
	"time"

	application "beacon/contexts/campaign-core/offer-service/application"
	"beacon/contexts/campaign-core/offer-service/domain/entities"
	"beacon/contexts/campaign-core/offer-service/ports"
)

type AcceptOfferUseCase struct {
	Offers      ports.OfferRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc AcceptOfferUseCase) Execute(ctx context.Context, offerID string) (entities.Offer, error) {
	logger := application.ResolveLogger(uc.Logger)

	offer, err := uc.Offers.GetOffer(ctx, offerID)
	if err != nil {
		return entities.Offer{}, err
	}
	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Offer{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}

	if err := offer.Accept(eventID, now); err != nil {
		return entities.Offer{}, err
	}
	if err := uc.Offers.UpdateOffer(ctx, &offer); err != nil {
		return entities.Offer{}, err
	}

	logger.Info("offer accepted",
		"event", "offer_accepted",
		"module", "campaign-core/offer-service",
		"layer", "application",
		"offer_id", offer.OfferID,
		"campaign_id", offer.CampaignID,
		"blogger_id", offer.BloggerID,
	)
	return offer, nil
}
