package offerservice

import (
	"context"
	"errors"
	"testing"

	"beacon/contexts/campaign-core/offer-service/application/commands"
	"beacon/contexts/campaign-core/offer-service/domain/entities"
	domainerrors "beacon/contexts/campaign-core/offer-service/domain/errors"
	"beacon/internal/shared/outbox"
)

func validInput() commands.CreateOfferInput {
	return commands.CreateOfferInput{
		CampaignID: "campaign-1",
		BloggerID:  "blogger-1",
		Price:      150,
	}
}

func countEventType(msgs []outbox.Message, eventType string) int {
	count := 0
	for _, msg := range msgs {
		if msg.EventType == eventType {
			count++
		}
	}
	return count
}

func TestCreateOfferPersistsStateAndEventTogether(t *testing.T) {
	module := NewInMemoryModule(nil)

	offer, err := module.CreateOffer.Execute(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create offer failed: %v", err)
	}
	if offer.Status != entities.OfferStatusPending {
		t.Fatalf("expected pending status, got %s", offer.Status)
	}

	stored, err := module.GetOffer.Execute(context.Background(), offer.OfferID)
	if err != nil {
		t.Fatalf("get offer failed: %v", err)
	}
	if stored.CampaignID != "campaign-1" || stored.BloggerID != "blogger-1" || stored.Price != 150 {
		t.Fatalf("unexpected stored offer %+v", stored)
	}

	msgs := module.Records.OutboxMessages()
	if got := countEventType(msgs, entities.EventTypeOfferCreated); got != 1 {
		t.Fatalf("expected one offer.created outbox row, got %d", got)
	}
}

func TestCreateOfferInvalidInputWritesNothing(t *testing.T) {
	module := NewInMemoryModule(nil)

	_, err := module.CreateOffer.Execute(context.Background(), commands.CreateOfferInput{
		CampaignID: "campaign-1",
		BloggerID:  "blogger-1",
		Price:      0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidOfferInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if got := len(module.Records.OutboxMessages()); got != 0 {
		t.Fatalf("expected empty outbox after rejected create, got %d rows", got)
	}
}

func TestAcceptOfferRaisesEventOnce(t *testing.T) {
	module := NewInMemoryModule(nil)

	offer, err := module.CreateOffer.Execute(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create offer failed: %v", err)
	}

	accepted, err := module.AcceptOffer.Execute(context.Background(), offer.OfferID)
	if err != nil {
		t.Fatalf("accept offer failed: %v", err)
	}
	if accepted.Status != entities.OfferStatusAccepted {
		t.Fatalf("expected accepted status, got %s", accepted.Status)
	}

	// A second accept is rejected and raises nothing new.
	if _, err := module.AcceptOffer.Execute(context.Background(), offer.OfferID); !errors.Is(err, domainerrors.ErrOfferNotPending) {
		t.Fatalf("expected not pending error, got %v", err)
	}

	msgs := module.Records.OutboxMessages()
	if got := countEventType(msgs, entities.EventTypeOfferAccepted); got != 1 {
		t.Fatalf("expected one offer.accepted outbox row, got %d", got)
	}
}

func TestDeclineOfferRejectsNonPending(t *testing.T) {
	module := NewInMemoryModule(nil)

	offer, err := module.CreateOffer.Execute(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create offer failed: %v", err)
	}
	if _, err := module.AcceptOffer.Execute(context.Background(), offer.OfferID); err != nil {
		t.Fatalf("accept offer failed: %v", err)
	}

	if _, err := module.DeclineOffer.Execute(context.Background(), offer.OfferID); !errors.Is(err, domainerrors.ErrOfferNotPending) {
		t.Fatalf("expected not pending error on decline after accept, got %v", err)
	}

	declined, err := module.CreateOffer.Execute(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create second offer failed: %v", err)
	}
	result, err := module.DeclineOffer.Execute(context.Background(), declined.OfferID)
	if err != nil {
		t.Fatalf("decline offer failed: %v", err)
	}
	if result.Status != entities.OfferStatusDeclined {
		t.Fatalf("expected declined status, got %s", result.Status)
	}
	if got := countEventType(module.Records.OutboxMessages(), entities.EventTypeOfferDeclined); got != 1 {
		t.Fatalf("expected one offer.declined outbox row, got %d", got)
	}
}

func TestGetOfferUnknownID(t *testing.T) {
	module := NewInMemoryModule(nil)

	if _, err := module.GetOffer.Execute(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrOfferNotFound) {
		t.Fatalf("expected offer not found, got %v", err)
	}
}
