package payments

import "time"

type Payment struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"orderId"`
	AmountCents   int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Method        Method         `json:"method"`
	Status        Status         `json:"status"`
	TransactionID string         `json:"transactionId,omitempty"`
	Details       map[string]any `json:"paymentDetails,omitempty"`
	Version       int            `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
