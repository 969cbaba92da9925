package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventStockReserved    = "StockReserved"
	EventStockRejected    = "StockRejected"
	EventPaymentCompleted = "PaymentCompleted"
	EventPaymentFailed    = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID    string    `json:"order_id"`
	ExternalID string    `json:"external_id"`
	BuyerID    string    `json:"buyer_id"`
	Items      []ItemQty `json:"items"`
	TotalCents int64     `json:"total_cents"`
}

type StockReservedPayload struct {
	OrderID string    `json:"order_id"`
	Items   []ItemQty `json:"items"`
}

type StockRejectedPayload struct {
	OrderID string              `json:"order_id"`
	Reason  string              `json:"reason"` // OUT_OF_STOCK
	Details []StockShortfallOut `json:"details,omitempty"`
}

type StockShortfallOut struct {
	VariantID string `json:"variant_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type PaymentCompletedPayload struct {
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Method        string `json:"method"`
	AmountCents   int64  `json:"amount_cents"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type PaymentFailedPayload struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
	Reason    string `json:"reason"`
}
