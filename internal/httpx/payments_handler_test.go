package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/payments"
)

type fakeProcessor struct {
	lastReq payments.ProcessRequest
	result  payments.Payment
	err     error
}

func (f *fakeProcessor) Process(_ context.Context, req payments.ProcessRequest) (payments.Payment, error) {
	f.lastReq = req
	if f.err != nil {
		return payments.Payment{}, f.err
	}
	p := f.result
	p.OrderID = req.OrderID
	p.Method = req.Method
	p.AmountCents = req.AmountCents
	return p, nil
}

type fakePaymentStore struct {
	byID      map[string]payments.Payment
	byOrder   map[string][]payments.Payment
	updateErr error
	verifyErr error
	updated   *payments.Payment
}

func (f *fakePaymentStore) GetPayment(_ context.Context, id string) (payments.Payment, error) {
	p, ok := f.byID[id]
	if !ok {
		return payments.Payment{}, payments.ErrNotFound
	}
	return p, nil
}

func (f *fakePaymentStore) ListByOrder(_ context.Context, orderID string) ([]payments.Payment, error) {
	return f.byOrder[orderID], nil
}

func (f *fakePaymentStore) UpdateStatus(_ context.Context, id string, next payments.Status, txn string) (payments.Payment, error) {
	if f.updateErr != nil {
		return payments.Payment{}, f.updateErr
	}
	p, ok := f.byID[id]
	if !ok {
		return payments.Payment{}, payments.ErrNotFound
	}
	p.Status = next
	if txn != "" {
		p.TransactionID = txn
	}
	f.updated = &p
	return p, nil
}

func (f *fakePaymentStore) VerifyBankTransfer(_ context.Context, id string) (payments.Payment, error) {
	if f.verifyErr != nil {
		return payments.Payment{}, f.verifyErr
	}
	p, ok := f.byID[id]
	if !ok {
		return payments.Payment{}, payments.ErrNotFound
	}
	p.Status = payments.StatusCompleted
	return p, nil
}

type fakeOrderReader struct{ orders map[string]orders.Order }

func (f *fakeOrderReader) GetOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

type fakeStatusCache struct{ set map[string]string }

func (f *fakeStatusCache) SetOrderStatus(_ context.Context, orderID, status string) {
	f.set[orderID] = status
}

func setup(proc *fakeProcessor, store *fakePaymentStore) http.Handler {
	h, _ := setupWithCache(proc, store)
	return h
}

func setupWithCache(proc *fakeProcessor, store *fakePaymentStore) (http.Handler, *fakeStatusCache) {
	r := NewRouter()
	cache := &fakeStatusCache{set: map[string]string{}}
	h := &PaymentsHandler{
		Processor: proc,
		Store:     store,
		Orders:    &fakeOrderReader{orders: map[string]orders.Order{"ord-1": {ID: "ord-1"}}},
		Cache:     cache,
	}
	h.Register(r)
	return r, cache
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreatePayment_RoundTripEcho(t *testing.T) {
	proc := &fakeProcessor{result: payments.Payment{
		ID:     "pay-1",
		Status: payments.StatusCompleted,
	}}
	h := setup(proc, &fakePaymentStore{})

	rec := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"orderId": "ord-1",
		"method":  "credit_card",
		"amount":  49900,
		"cardDetails": map[string]string{
			"cardNumber": "4111111111111111", "expiry": "12/27", "cvv": "123",
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Payment struct {
			ID      string `json:"id"`
			OrderID string `json:"orderId"`
			Amount  int64  `json:"amount"`
			Method  string `json:"method"`
			Status  string `json:"status"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "ord-1", resp.Payment.OrderID)
	assert.Equal(t, int64(49900), resp.Payment.Amount)
	assert.Equal(t, "credit_card", resp.Payment.Method)

	// the typed card input reached the processor
	require.NotNil(t, proc.lastReq.Details.Card)
	assert.Equal(t, "4111111111111111", proc.lastReq.Details.Card.CardNumber)
}

func TestCreatePayment_GatewayFailureStill201(t *testing.T) {
	proc := &fakeProcessor{result: payments.Payment{
		ID:      "pay-2",
		Status:  payments.StatusFailed,
		Details: map[string]any{"error": "card number must be 13-19 digits"},
	}}
	h := setup(proc, &fakePaymentStore{})

	rec := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"orderId": "ord-1", "method": "credit_card", "amount": 100,
	})

	require.Equal(t, http.StatusCreated, rec.Code, "failure is encoded in the body, not the status")
	var resp paymentResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, payments.StatusFailed, resp.Payment.Status)
}

func TestCreatePayment_Validation(t *testing.T) {
	h := setup(&fakeProcessor{}, &fakePaymentStore{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing orderId", map[string]any{"method": "paypal", "amount": 100}},
		{"missing method", map[string]any{"orderId": "ord-1", "amount": 100}},
		{"missing amount", map[string]any{"orderId": "ord-1", "method": "paypal"}},
		{"unknown method", map[string]any{"orderId": "ord-1", "method": "crypto", "amount": 100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/payments", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreatePayment_OrderNotFound(t *testing.T) {
	proc := &fakeProcessor{err: orders.ErrNotFound}
	h := setup(proc, &fakePaymentStore{})

	rec := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"orderId": "missing", "method": "paypal", "amount": 100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPayment(t *testing.T) {
	store := &fakePaymentStore{byID: map[string]payments.Payment{
		"pay-1": {ID: "pay-1", OrderID: "ord-1", Status: payments.StatusCompleted},
	}}
	h := setup(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodGet, "/api/payments/pay-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()

	// idempotent read: same payment data on a repeat call
	rec = doJSON(t, h, http.MethodGet, "/api/payments/pay-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, first, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/payments/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByOrder(t *testing.T) {
	store := &fakePaymentStore{byOrder: map[string][]payments.Payment{
		"ord-1": {{ID: "pay-1"}, {ID: "pay-2"}},
	}}
	h := setup(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodGet, "/api/payments/order/ord-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ps []payments.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	assert.Len(t, ps, 2)

	rec = doJSON(t, h, http.MethodGet, "/api/payments/order/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	store := &fakePaymentStore{byID: map[string]payments.Payment{
		"pay-1": {ID: "pay-1", OrderID: "ord-1", Status: payments.StatusPending},
	}}
	h, cache := setupWithCache(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodPatch, "/api/payments/pay-1/status", map[string]string{
		"status": "completed", "transactionId": "TXN123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.updated)
	assert.Equal(t, payments.StatusCompleted, store.updated.Status)
	assert.Equal(t, "TXN123", store.updated.TransactionID)
	assert.Equal(t, string(orders.StatusProcessing), cache.set["ord-1"],
		"completed payment cascades the order, cached status follows")

	rec = doJSON(t, h, http.MethodPatch, "/api/payments/pay-1/status", map[string]string{
		"status": "approved",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_Conflict(t *testing.T) {
	store := &fakePaymentStore{updateErr: payments.ErrVersionConflict}
	h := setup(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodPatch, "/api/payments/pay-1/status", map[string]string{
		"status": "completed",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyBankTransfer(t *testing.T) {
	store := &fakePaymentStore{byID: map[string]payments.Payment{
		"pay-1": {ID: "pay-1", OrderID: "ord-1", Method: payments.MethodBankTransfer, Status: payments.StatusPending},
	}}
	h, cache := setupWithCache(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodPost, "/api/payments/pay-1/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp paymentResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, payments.StatusCompleted, resp.Payment.Status)
	assert.Equal(t, string(orders.StatusProcessing), cache.set["ord-1"])
}

func TestUpdateStatus_RefundedLeavesCacheAlone(t *testing.T) {
	store := &fakePaymentStore{byID: map[string]payments.Payment{
		"pay-1": {ID: "pay-1", OrderID: "ord-1", Status: payments.StatusCompleted},
	}}
	h, cache := setupWithCache(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodPatch, "/api/payments/pay-1/status", map[string]string{
		"status": "refunded",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cache.set, "refunded does not move the order")
}

func TestVerifyBankTransfer_NotVerifiable(t *testing.T) {
	store := &fakePaymentStore{verifyErr: payments.ErrNotVerifiable}
	h := setup(&fakeProcessor{}, store)

	rec := doJSON(t, h, http.MethodPost, "/api/payments/pay-1/verify", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
