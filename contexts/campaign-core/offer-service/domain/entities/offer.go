package entities

import (
	"time"

	domainerrors "beacon/contexts/campaign-core/offer-service/domain/errors"
	"beacon/internal/shared/events"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
)

// Offer is a brand's proposal to a blogger for one campaign. State changes
// raise domain events that the outbox writer harvests together with the
// business write.
type Offer struct {
	events.AggregateBase

	OfferID    string
	CampaignID string
	BloggerID  string
	Price      float64
	Status     OfferStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewOffer(offerID string, campaignID string, bloggerID string, price float64, eventID string, now time.Time) (*Offer, error) {
	if offerID == "" || campaignID == "" || bloggerID == "" || price <= 0 {
		return nil, domainerrors.ErrInvalidOfferInput
	}
	offer := &Offer{
		OfferID:    offerID,
		CampaignID: campaignID,
		BloggerID:  bloggerID,
		Price:      price,
		Status:     OfferStatusPending,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	offer.Raise(OfferCreated{
		Base:       events.Base{ID: eventID, Occurred: now.UTC(), Subject: bloggerID},
		OfferID:    offerID,
		CampaignID: campaignID,
		BloggerID:  bloggerID,
		Price:      price,
	})
	return offer, nil
}

func (o *Offer) Accept(eventID string, now time.Time) error {
	if o.Status != OfferStatusPending {
		return domainerrors.ErrOfferNotPending
	}
	o.Status = OfferStatusAccepted
	o.UpdatedAt = now.UTC()
	o.Raise(OfferAccepted{
		Base:       events.Base{ID: eventID, Occurred: now.UTC(), Subject: o.BloggerID},
		OfferID:    o.OfferID,
		CampaignID: o.CampaignID,
		BloggerID:  o.BloggerID,
	})
	return nil
}

func (o *Offer) Decline(eventID string, now time.Time) error {
	if o.Status != OfferStatusPending {
		return domainerrors.ErrOfferNotPending
	}
	o.Status = OfferStatusDeclined
	o.UpdatedAt = now.UTC()
	o.Raise(OfferDeclined{
		Base:       events.Base{ID: eventID, Occurred: now.UTC(), Subject: o.BloggerID},
		OfferID:    o.OfferID,
		CampaignID: o.CampaignID,
		BloggerID:  o.BloggerID,
	})
	return nil
}
