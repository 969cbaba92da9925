package payments

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

var ErrUnknownMethod = errors.New("unknown payment method")

// Outcome is what a gateway round trip produces. Failures are synthetic and
// deterministic from the input shape; no network I/O happens here.
type Outcome struct {
	Success       bool
	Status        Status
	TransactionID string
	Reason        string
	Details       map[string]any
}

// Gateway simulates the external payment providers with a fixed artificial
// delay per attempt.
type Gateway struct {
	Delay       time.Duration
	CODFeeCents int64

	now func() time.Time
}

func NewGateway(delay time.Duration, codFeeCents int64) *Gateway {
	return &Gateway{
		Delay:       delay,
		CODFeeCents: codFeeCents,
		now:         time.Now,
	}
}

// Process dispatches on the method constant over the typed union.
func (g *Gateway) Process(ctx context.Context, method Method, amountCents int64, details MethodDetails) (Outcome, error) {
	if err := g.wait(ctx); err != nil {
		return Outcome{}, err
	}

	switch method {
	case MethodCreditCard:
		var in CreditCardInput
		if details.Card != nil {
			in = *details.Card
		}
		return g.creditCard(in), nil
	case MethodPayPal:
		var in PayPalInput
		if details.PayPal != nil {
			in = *details.PayPal
		}
		return g.payPal(in), nil
	case MethodBankTransfer:
		return g.bankTransfer(), nil
	case MethodCashOnDelivery:
		return g.cashOnDelivery(amountCents), nil
	}
	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(g.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) creditCard(in CreditCardInput) Outcome {
	if err := in.Validate(); err != nil {
		return Outcome{Success: false, Status: StatusFailed, Reason: err.Error()}
	}
	return Outcome{
		Success:       true,
		Status:        StatusCompleted,
		TransactionID: g.reference("TXN"),
	}
}

func (g *Gateway) payPal(in PayPalInput) Outcome {
	if err := in.Validate(); err != nil {
		return Outcome{Success: false, Status: StatusFailed, Reason: err.Error()}
	}
	return Outcome{
		Success:       true,
		Status:        StatusCompleted,
		TransactionID: g.reference("PP"),
	}
}

// bankTransfer always succeeds into `pending`; the payment completes later
// through the manual verification endpoint.
func (g *Gateway) bankTransfer() Outcome {
	ref := g.reference("BT")
	return Outcome{
		Success:       true,
		Status:        StatusPending,
		TransactionID: ref,
		Details: map[string]any{
			"reference": ref,
			"instructions": map[string]any{
				"bank_name":      "State Bank",
				"account_number": "00112233445566",
				"ifsc":           "SBIN0000001",
				"note":           "quote the reference in the transfer remarks",
			},
		},
	}
}

func (g *Gateway) cashOnDelivery(amountCents int64) Outcome {
	return Outcome{
		Success: true,
		Status:  StatusProcessing,
		Details: map[string]any{
			"cod_fee":      g.CODFeeCents,
			"total_amount": amountCents + g.CODFeeCents,
		},
	}
}

// reference builds ids like BT<timestamp-suffix><random>.
func (g *Gateway) reference(prefix string) string {
	ts := strconv.FormatInt(g.now().UnixMilli(), 10)
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("%s%s%03d", prefix, ts, rand.Intn(1000))
}
