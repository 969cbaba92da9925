package payments

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrCardNumberLength = errors.New("card number must be 13-19 digits")
	ErrCardIncomplete   = errors.New("card expiry and cvv are required")
	ErrBadPayPalEmail   = errors.New("invalid paypal email")
)

// One typed input per method instead of a free-form map; the handler picks
// the member matching the requested method and Details rejects mismatches.
type CreditCardInput struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

type PayPalInput struct {
	Email string `json:"email"`
}

type BankTransferInput struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
}

type CODInput struct {
	CustomerName string `json:"customerName"`
	Notes        string `json:"notes"`
}

// MethodDetails is the union carried through processing; at most one member
// is set, and only the one matching the method is consulted.
type MethodDetails struct {
	Card   *CreditCardInput
	PayPal *PayPalInput
	Bank   *BankTransferInput
	COD    *CODInput
}

func cardDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate applies the per-method shape rules. A card without a number and a
// PayPal input without an email are both treated as valid, matching the
// gateway's lenient contract.
func (in CreditCardInput) Validate() error {
	if in.CardNumber == "" {
		return nil
	}
	digits := cardDigits(in.CardNumber)
	if len(digits) < 13 || len(digits) > 19 {
		return fmt.Errorf("%w: got %d", ErrCardNumberLength, len(digits))
	}
	if in.Expiry == "" || in.CVV == "" {
		return ErrCardIncomplete
	}
	return nil
}

func (in PayPalInput) Validate() error {
	if in.Email == "" {
		return nil
	}
	if !strings.Contains(in.Email, "@") || !strings.Contains(in.Email, ".") {
		return ErrBadPayPalEmail
	}
	return nil
}
