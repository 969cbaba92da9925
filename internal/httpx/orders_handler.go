package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

type OrdersHandler struct {
	Repo     *orders.Repo
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

type CreateOrderReq struct {
	ExternalID string             `json:"externalId"`
	BuyerID    string             `json:"buyerId"`
	Address    string             `json:"address"`
	Items      []orders.ItemInput `json:"items"`
}

type CreateOrderResp struct {
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Get("/api/orders/{id}/items", h.listItems)
	r.Patch("/api/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ExternalID == "" || req.BuyerID == "" || req.Address == "" || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Repo.CreateOrderTx(ctx, req.ExternalID, req.BuyerID, req.Address, req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// idempotency shortcut + status cache, DB stays the source of truth
	idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
	_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()

	if !existed {
		items := make([]orders.ItemQty, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, orders.ItemQty{VariantID: it.VariantID, Qty: it.Qty})
		}
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventOrderCreated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: o.ID,
			Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
				OrderID:    o.ID,
				ExternalID: o.ExternalID,
				BuyerID:    o.BuyerID,
				Items:      items,
				TotalCents: o.TotalCents,
			}),
		}
		h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{Order: o, Idempotent: existed})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// status cache first
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Repo.GetOrderStatus(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := map[string]any{"status": status}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) listItems(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Repo.GetOrderStatus(ctx, orderID); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items, err := h.Repo.ListItems(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type updateOrderStatusReq struct {
	Status string `json:"status"`
}

// updateStatus is the administrative transition path; the transition table
// is enforced by the repo.
func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	next := orders.Status(req.Status)
	if !orders.ValidStatus(next) {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.UpdateStatus(ctx, orderID, next)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// refresh the status cache so reads do not serve the stale value
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, next), redisx.TTLStatusCache).Err()

	writeJSON(w, http.StatusOK, map[string]any{"status": next})
}
