package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateOfferRequest struct {
	CampaignID string  `json:"campaign_id"`
	BloggerID  string  `json:"blogger_id"`
	Price      float64 `json:"price"`
}

type OfferResponse struct {
	OfferID    string    `json:"offer_id"`
	CampaignID string    `json:"campaign_id"`
	BloggerID  string    `json:"blogger_id"`
	Price      float64   `json:"price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
