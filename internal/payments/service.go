package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
)

// OrderStore is the slice of the orders repo the processor needs.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (orders.Order, error)
}

// Store persists a payment attempt together with its order transition.
type Store interface {
	CreateWithReconcile(ctx context.Context, p *Payment, next *orders.Status) error
}

// Publisher matches the async kafka producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// StatusCache receives the new order status after a committed transition so
// cached reads stay in step with the database.
type StatusCache interface {
	SetOrderStatus(ctx context.Context, orderID, status string)
}

type Service struct {
	Orders  OrderStore
	Store   Store
	Gateway *Gateway
	Cache   StatusCache

	// one producer per outcome topic; either may be nil in tests
	ProducerCompleted Publisher
	ProducerFailed    Publisher

	ServiceName     string
	DefaultCurrency string
}

type ProcessRequest struct {
	OrderID     string
	Method      Method
	AmountCents int64
	Currency    string
	Details     MethodDetails
	TraceID     string
}

// Process runs one payment attempt end to end: load the order, run the
// simulated gateway, persist payment + order transition in one transaction,
// then publish the outcome event. A gateway error that is not a context
// cancellation is recorded as a failed attempt rather than surfaced — the
// payment record is the audit trail.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (Payment, error) {
	order, err := s.Orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return Payment{}, err
	}

	outcome, err := s.Gateway.Process(ctx, req.Method, req.AmountCents, req.Details)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Payment{}, err
		}
		outcome = Outcome{
			Success: false,
			Status:  StatusFailed,
			Reason:  err.Error(),
			Details: map[string]any{"error": err.Error()},
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = s.DefaultCurrency
	}
	details := outcome.Details
	if outcome.Reason != "" {
		if details == nil {
			details = map[string]any{}
		}
		details["error"] = outcome.Reason
	}

	p := Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		Method:        req.Method,
		Status:        outcome.Status,
		TransactionID: outcome.TransactionID,
		Details:       details,
	}

	var nextPtr *orders.Status
	if next, ok := NextOrderStatus(outcome.Status); ok {
		nextPtr = &next
	}
	if err := s.Store.CreateWithReconcile(ctx, &p, nextPtr); err != nil {
		return Payment{}, err
	}
	if nextPtr != nil && s.Cache != nil {
		s.Cache.SetOrderStatus(ctx, p.OrderID, string(*nextPtr))
	}

	s.publishOutcome(p, req.TraceID)
	return p, nil
}

func (s *Service) publishOutcome(p Payment, trace string) {
	var (
		producer  Publisher
		eventType string
		payload   any
	)
	switch p.Status {
	case StatusCompleted:
		producer = s.ProducerCompleted
		eventType = orders.EventPaymentCompleted
		payload = orders.PaymentCompletedPayload{
			OrderID:       p.OrderID,
			PaymentID:     p.ID,
			Method:        string(p.Method),
			AmountCents:   p.AmountCents,
			TransactionID: p.TransactionID,
		}
	case StatusFailed:
		producer = s.ProducerFailed
		eventType = orders.EventPaymentFailed
		reason, _ := p.Details["error"].(string)
		payload = orders.PaymentFailedPayload{
			OrderID:   p.OrderID,
			PaymentID: p.ID,
			Method:    string(p.Method),
			Reason:    reason,
		}
	default:
		return
	}
	if producer == nil {
		return
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: p.OrderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	producer.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
