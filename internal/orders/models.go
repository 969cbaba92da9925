package orders

import "time"

type Order struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	BuyerID    string    `json:"buyerId"`
	Address    string    `json:"address"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"totalPrice"`
	Version    int       `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"orderId"`
	VariantID  string `json:"variantId"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price"`
}
