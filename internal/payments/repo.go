package payments

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace/internal/orders"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrVersionConflict = errors.New("payment version conflict")
	ErrNotVerifiable   = errors.New("payment is not a pending bank transfer")
)

type Repo struct{ DB *pgxpool.Pool }

const paymentCols = `id, order_id, amount_cents, currency, method, status, transaction_id, details, version, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var txn *string
	var details []byte
	err := row.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Currency, &p.Method, &p.Status,
		&txn, &details, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	if txn != nil {
		p.TransactionID = *txn
	}
	if len(details) > 0 {
		_ = json.Unmarshal(details, &p.Details)
	}
	return p, nil
}

// CreateWithReconcile persists the payment and, when the outcome maps to an
// order transition, applies it in the same transaction. The order row is
// locked first so a concurrent attempt cannot interleave between the two
// writes.
func (r *Repo) CreateWithReconcile(ctx context.Context, p *Payment, next *orders.Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if next != nil {
		var cur string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, p.OrderID).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.ErrNotFound
		}
		if err != nil {
			return err
		}
	}

	details, err := json.Marshal(p.Details)
	if err != nil {
		return err
	}
	var txn *string
	if p.TransactionID != "" {
		txn = &p.TransactionID
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments(id, order_id, amount_cents, currency, method, status, transaction_id, details, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1)
		RETURNING created_at, updated_at`,
		p.ID, p.OrderID, p.AmountCents, p.Currency, p.Method, p.Status, txn, details,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	p.Version = 1

	if next != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status=$2, version=version+1, updated_at=now()
			WHERE id=$1`, p.OrderID, *next); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) GetPayment(ctx context.Context, id string) (Payment, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id)
	return scanPayment(row)
}

func (r *Repo) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus is the administrative override used by webhook-style
// callbacks. Only a `completed` status cascades to the order; failed and
// refunded callbacks leave it untouched.
func (r *Repo) UpdateStatus(ctx context.Context, id string, next Status, transactionID string) (Payment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Payment{}, err
	}

	txn := p.TransactionID
	if transactionID != "" {
		txn = transactionID
	}
	ct, err := tx.Exec(ctx, `
		UPDATE payments SET status=$2, transaction_id=$3, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$4`, id, next, nullable(txn), p.Version)
	if err != nil {
		return Payment{}, err
	}
	if ct.RowsAffected() == 0 {
		return Payment{}, ErrVersionConflict
	}

	if next == StatusCompleted {
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status=$2, version=version+1, updated_at=now()
			WHERE id=$1`, p.OrderID, orders.StatusProcessing); err != nil {
			return Payment{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Payment{}, err
	}

	p.Status = next
	p.TransactionID = txn
	p.Version++
	return p, nil
}

// VerifyBankTransfer completes a pending bank transfer after manual
// confirmation and moves the order to processing, all in one transaction.
func (r *Repo) VerifyBankTransfer(ctx context.Context, id string) (Payment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Payment{}, err
	}
	if p.Method != MethodBankTransfer || p.Status != StatusPending {
		return Payment{}, ErrNotVerifiable
	}

	ct, err := tx.Exec(ctx, `
		UPDATE payments SET status=$2, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$3`, id, StatusCompleted, p.Version)
	if err != nil {
		return Payment{}, err
	}
	if ct.RowsAffected() == 0 {
		return Payment{}, ErrVersionConflict
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, version=version+1, updated_at=now()
		WHERE id=$1`, p.OrderID, orders.StatusProcessing); err != nil {
		return Payment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Payment{}, err
	}
	p.Status = StatusCompleted
	p.Version++
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
