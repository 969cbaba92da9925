package orders

const (
	TopicOrderCreated     = "order.created"
	TopicStockReserved    = "order.stock.reserved"
	TopicStockRejected    = "order.stock.rejected"
	TopicPaymentCompleted = "order.payment.completed"
	TopicPaymentFailed    = "order.payment.failed"
)

// Partition key = order_id so every event of one order keeps its ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
