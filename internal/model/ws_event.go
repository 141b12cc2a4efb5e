package model

import "encoding/json"

const (
	WSCardListed  = "card_listed"
	WSCardRemoved = "card_removed"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type WSCardEvent struct {
	CardID     string `json:"card_id"`
	Title      string `json:"title"`
	OwnerID    string `json:"owner_id"`
	ForSale    bool   `json:"for_sale"`
	PriceCents *int64 `json:"price_cents,omitempty"`
	Currency   string `json:"currency,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}
