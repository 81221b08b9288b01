package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "beacon/contexts/campaign-core/offer-service/application"
	"beacon/contexts/campaign-core/offer-service/domain/entities"
	"beacon/contexts/campaign-core/offer-service/ports"
)

type CreateOfferInput struct {
	CampaignID string
	BloggerID  string
	Price      float64
}

type CreateOfferUseCase struct {
	Offers      ports.OfferRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc CreateOfferUseCase) Execute(ctx context.Context, input CreateOfferInput) (entities.Offer, error) {
	logger := application.ResolveLogger(uc.Logger)

	offerID, err := uc.IDGenerator.NewID(ctx)
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

	offer, err := entities.NewOffer(
		offerID,
		strings.TrimSpace(input.CampaignID),
		strings.TrimSpace(input.BloggerID),
		input.Price,
		eventID,
		now,
	)
	if err != nil {
		return entities.Offer{}, err
	}
	if err := uc.Offers.CreateOffer(ctx, offer); err != nil {
		return entities.Offer{}, err
	}

	logger.Info("offer created",
		"event", "offer_created",
		"module", "campaign-core/offer-service",
		"layer", "application",
		"offer_id", offer.OfferID,
		"campaign_id", offer.CampaignID,
		"blogger_id", offer.BloggerID,
	)
	return *offer, nil
}
