package payments

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/orders"
)

type fakeOrderStore struct {
	orders map[string]orders.Order
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

type fakeStore struct {
	saved    []Payment
	nextSeen []*orders.Status
}

func (f *fakeStore) CreateWithReconcile(_ context.Context, p *Payment, next *orders.Status) error {
	f.saved = append(f.saved, *p)
	f.nextSeen = append(f.nextSeen, next)
	return nil
}

type fakePublisher struct {
	published [][]byte
}

func (f *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	f.published = append(f.published, value)
}

type fakeStatusCache struct {
	set map[string]string
}

func (f *fakeStatusCache) SetOrderStatus(_ context.Context, orderID, status string) {
	f.set[orderID] = status
}

func newTestService() (*Service, *fakeStore, *fakePublisher, *fakePublisher) {
	store := &fakeStore{}
	ok := &fakePublisher{}
	fail := &fakePublisher{}
	svc := &Service{
		Orders:            &fakeOrderStore{orders: map[string]orders.Order{"ord-1": {ID: "ord-1", Status: orders.StatusPending}}},
		Store:             store,
		Gateway:           NewGateway(0, 0),
		ProducerCompleted: ok,
		ProducerFailed:    fail,
		ServiceName:       "test-api",
		DefaultCurrency:   "INR",
	}
	return svc, store, ok, fail
}

func TestNextOrderStatus(t *testing.T) {
	tests := []struct {
		in       Status
		want     orders.Status
		wantMove bool
	}{
		{StatusCompleted, orders.StatusProcessing, true},
		{StatusFailed, orders.StatusPending, true},
		{StatusProcessing, orders.StatusProcessing, true},
		{StatusPending, "", false},
		{StatusRefunded, "", false}, // refunded never touches the order
	}
	for _, tc := range tests {
		got, ok := NextOrderStatus(tc.in)
		assert.Equalf(t, tc.wantMove, ok, "payment status %s", tc.in)
		if tc.wantMove {
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestProcess_CompletedCardMovesOrderToProcessing(t *testing.T) {
	svc, store, ok, fail := newTestService()
	cache := &fakeStatusCache{set: map[string]string{}}
	svc.Cache = cache

	p, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "ord-1",
		Method:      MethodCreditCard,
		AmountCents: 49900,
		Details: MethodDetails{Card: &CreditCardInput{
			CardNumber: "4111111111111111", Expiry: "12/27", CVV: "123",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, "ord-1", p.OrderID)
	assert.Equal(t, int64(49900), p.AmountCents)
	assert.Equal(t, "INR", p.Currency, "currency defaults when omitted")
	assert.NotEmpty(t, p.TransactionID)

	require.Len(t, store.nextSeen, 1)
	require.NotNil(t, store.nextSeen[0])
	assert.Equal(t, orders.StatusProcessing, *store.nextSeen[0])
	assert.Equal(t, string(orders.StatusProcessing), cache.set["ord-1"],
		"cached order status follows the committed transition")

	require.Len(t, ok.published, 1)
	assert.Empty(t, fail.published)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(ok.published[0], &env))
	assert.Equal(t, orders.EventPaymentCompleted, env.EventType)
	assert.Equal(t, "ord-1", env.CorrelationID)
}

func TestProcess_FailedCardResetsOrderToPending(t *testing.T) {
	svc, store, ok, fail := newTestService()
	cache := &fakeStatusCache{set: map[string]string{}}
	svc.Cache = cache

	p, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "ord-1",
		Method:      MethodCreditCard,
		AmountCents: 49900,
		Details: MethodDetails{Card: &CreditCardInput{
			CardNumber: "411111111111", Expiry: "12/27", CVV: "123", // 12 digits
		}},
	})
	require.NoError(t, err, "a failed attempt is still recorded, not surfaced")

	assert.Equal(t, StatusFailed, p.Status)
	assert.NotEmpty(t, p.Details["error"])

	require.Len(t, store.nextSeen, 1)
	require.NotNil(t, store.nextSeen[0])
	assert.Equal(t, orders.StatusPending, *store.nextSeen[0])
	assert.Equal(t, string(orders.StatusPending), cache.set["ord-1"])

	assert.Empty(t, ok.published)
	require.Len(t, fail.published, 1)
}

func TestProcess_BankTransferRecordsNoTransition(t *testing.T) {
	svc, store, ok, fail := newTestService()
	cache := &fakeStatusCache{set: map[string]string{}}
	svc.Cache = cache

	p, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "ord-1",
		Method:      MethodBankTransfer,
		AmountCents: 75000,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	require.Len(t, store.nextSeen, 1)
	assert.Nil(t, store.nextSeen[0], "pending payment leaves the order alone")
	assert.Empty(t, cache.set, "no transition, no cache write")

	// neither outcome topic fires for a pending attempt
	assert.Empty(t, ok.published)
	assert.Empty(t, fail.published)
}

func TestProcess_CashOnDelivery(t *testing.T) {
	svc, store, _, _ := newTestService()

	p, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "ord-1",
		Method:      MethodCashOnDelivery,
		AmountCents: 100000,
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, p.Status)
	assert.Equal(t, "USD", p.Currency)
	require.Len(t, store.nextSeen, 1)
	require.NotNil(t, store.nextSeen[0])
	assert.Equal(t, orders.StatusProcessing, *store.nextSeen[0])
}

func TestProcess_UnknownOrder(t *testing.T) {
	svc, store, _, _ := newTestService()

	_, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "missing",
		Method:      MethodCreditCard,
		AmountCents: 100,
	})
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.Empty(t, store.saved, "nothing persisted when the order is absent")
}

func TestProcess_DispatchErrorRecordedAsFailed(t *testing.T) {
	svc, store, _, fail := newTestService()

	// an unknown method slipping past handler validation is captured as a
	// failed attempt with the error kept in the details map
	p, err := svc.Process(context.Background(), ProcessRequest{
		OrderID:     "ord-1",
		Method:      Method("crypto"),
		AmountCents: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, p.Status)
	assert.Contains(t, p.Details["error"], "unknown payment method")
	require.Len(t, store.saved, 1)
	require.Len(t, fail.published, 1)
}
