package payments

import "github.com/ariefcatur/go-marketplace/internal/orders"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type Method string

const (
	MethodCreditCard     Method = "credit_card"
	MethodPayPal         Method = "paypal"
	MethodBankTransfer   Method = "bank_transfer"
	MethodCashOnDelivery Method = "cash_on_delivery"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodCreditCard, MethodPayPal, MethodBankTransfer, MethodCashOnDelivery:
		return true
	}
	return false
}

// NextOrderStatus maps a payment outcome onto the order status transition.
// A pending payment (bank transfer awaiting verification) records no
// transition; refunded likewise never touches the order.
func NextOrderStatus(ps Status) (orders.Status, bool) {
	switch ps {
	case StatusCompleted:
		return orders.StatusProcessing, true
	case StatusFailed:
		return orders.StatusPending, true
	case StatusProcessing:
		return orders.StatusProcessing, true
	}
	return "", false
}
