package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

type Service struct {
	Stock          *catalog.StockRepo
	Redis          *redis.Client
	ProducerOK     *kafkax.Producer // publish stock.reserved
	ProducerReject *kafkax.Producer // publish stock.rejected
	ServiceName    string
}

// HandleOrderCreated is the consumer handler: reserve variant stock for the
// new order, all-or-nothing.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	// dedup via Redis on event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	items := make([]catalog.ReserveItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, catalog.ReserveItem{VariantID: it.VariantID, Qty: it.Qty})
	}

	// idempotent short-circuit on event redelivery
	if ok, _ := s.Stock.AlreadyReserved(ctx, p.OrderID, len(items)); ok {
		return s.publishReserved(ctx, p.OrderID, p.Items, env.TraceID)
	}

	ok, details, err := s.Stock.ReserveAll(ctx, p.OrderID, items)
	if err != nil {
		return err
	}
	if ok {
		return s.publishReserved(ctx, p.OrderID, p.Items, env.TraceID)
	}
	return s.publishRejected(ctx, p.OrderID, details, env.TraceID)
}

func (s *Service) publishReserved(ctx context.Context, orderID string, items []orders.ItemQty, trace string) error {
	ev := s.envelope(orders.EventStockReserved, orderID, trace,
		kafkax.MustMarshal(orders.StockReservedPayload{OrderID: orderID, Items: items}))
	s.ProducerOK.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockReserved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}

func (s *Service) publishRejected(ctx context.Context, orderID string, details []catalog.ShortfallDetail, trace string) error {
	out := make([]orders.StockShortfallOut, 0, len(details))
	for _, d := range details {
		out = append(out, orders.StockShortfallOut{VariantID: d.VariantID, Required: d.Required, Available: d.Available})
	}
	ev := s.envelope(orders.EventStockRejected, orderID, trace,
		kafkax.MustMarshal(orders.StockRejectedPayload{OrderID: orderID, Reason: "OUT_OF_STOCK", Details: out}))
	s.ProducerReject.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}

func (s *Service) envelope(eventType, orderID, trace string, payload json.RawMessage) orders.Envelope {
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       payload,
	}
}
