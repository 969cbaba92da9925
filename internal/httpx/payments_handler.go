package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/payments"
)

// PaymentProcessor runs one payment attempt.
type PaymentProcessor interface {
	Process(ctx context.Context, req payments.ProcessRequest) (payments.Payment, error)
}

// PaymentStore is the read/admin surface of the payments repo.
type PaymentStore interface {
	GetPayment(ctx context.Context, id string) (payments.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]payments.Payment, error)
	UpdateStatus(ctx context.Context, id string, next payments.Status, transactionID string) (payments.Payment, error)
	VerifyBankTransfer(ctx context.Context, id string) (payments.Payment, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (orders.Order, error)
}

type PaymentsHandler struct {
	Processor PaymentProcessor
	Store     PaymentStore
	Orders    OrderReader
	Cache     payments.StatusCache
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/api/payments", h.createPayment)
	r.Get("/api/payments/{id}", h.getPayment)
	r.Get("/api/payments/order/{orderID}", h.listByOrder)
	r.Patch("/api/payments/{id}/status", h.updateStatus)
	r.Post("/api/payments/{id}/verify", h.verifyBankTransfer)
}

type createPaymentReq struct {
	OrderID  string `json:"orderId"`
	Method   string `json:"method"`
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`

	CardDetails   *payments.CreditCardInput   `json:"cardDetails"`
	PayPalDetails *payments.PayPalInput       `json:"paypalDetails"`
	BankDetails   *payments.BankTransferInput `json:"bankDetails"`
	CODDetails    *payments.CODInput          `json:"codDetails"`
}

type paymentResp struct {
	Success bool             `json:"success"`
	Payment payments.Payment `json:"payment"`
}

func (h *PaymentsHandler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" || req.Method == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "orderId, method and amount are required")
		return
	}
	method := payments.Method(req.Method)
	if !payments.ValidMethod(method) {
		writeError(w, http.StatusBadRequest, "invalid payment method")
		return
	}

	// the gateway delay is part of the request, so leave headroom on top
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.Processor.Process(ctx, payments.ProcessRequest{
		OrderID:     req.OrderID,
		Method:      method,
		AmountCents: req.Amount,
		Currency:    req.Currency,
		Details: payments.MethodDetails{
			Card:   req.CardDetails,
			PayPal: req.PayPalDetails,
			Bank:   req.BankDetails,
			COD:    req.CODDetails,
		},
		TraceID: r.Header.Get("X-Request-Id"),
	})
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// a failed gateway outcome is still a created attempt: 201 with
	// success=false, failure encoded in the body
	writeJSON(w, http.StatusCreated, paymentResp{
		Success: p.Status != payments.StatusFailed,
		Payment: p,
	})
}

func (h *PaymentsHandler) getPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.GetPayment(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, payments.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentsHandler) listByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Orders.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ps, err := h.Store.ListByOrder(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type updateStatusReq struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

func (h *PaymentsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	next := payments.Status(req.Status)
	if !payments.ValidStatus(next) {
		writeError(w, http.StatusBadRequest, "invalid payment status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.UpdateStatus(ctx, chi.URLParam(r, "id"), next, req.TransactionID)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
		return
	case errors.Is(err, payments.ErrVersionConflict):
		writeError(w, http.StatusConflict, "payment was modified concurrently")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// a completed payment cascades the order to processing inside the store
	// transaction; keep the cached status in step
	if next == payments.StatusCompleted && h.Cache != nil {
		h.Cache.SetOrderStatus(ctx, p.OrderID, string(orders.StatusProcessing))
	}
	writeJSON(w, http.StatusOK, paymentResp{Success: true, Payment: p})
}

func (h *PaymentsHandler) verifyBankTransfer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.VerifyBankTransfer(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, payments.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment not found")
		return
	case errors.Is(err, payments.ErrNotVerifiable), errors.Is(err, payments.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Cache != nil {
		h.Cache.SetOrderStatus(ctx, p.OrderID, string(orders.StatusProcessing))
	}
	writeJSON(w, http.StatusOK, paymentResp{Success: true, Payment: p})
}
