package entities

import "beacon/internal/shared/events"

const (
	EventTypeOfferCreated  = "offer.created"
	EventTypeOfferAccepted = "offer.accepted"
	EventTypeOfferDeclined = "offer.declined"
)

type OfferCreated struct {
	events.Base
	OfferID    string  `json:"offer_id"`
	CampaignID string  `json:"campaign_id"`
	BloggerID  string  `json:"blogger_id"`
	Price      float64 `json:"price"`
}

func (OfferCreated) EventType() string { return EventTypeOfferCreated }

type OfferAccepted struct {
	events.Base
	OfferID    string `json:"offer_id"`
	CampaignID string `json:"campaign_id"`
	BloggerID  string `json:"blogger_id"`
}

func (OfferAccepted) EventType() string { return EventTypeOfferAccepted }

type OfferDeclined struct {
	events.Base
	OfferID    string `json:"offer_id"`
	CampaignID string `json:"campaign_id"`
	BloggerID  string `json:"blogger_id"`
}

func (OfferDeclined) EventType() string { return EventTypeOfferDeclined }
