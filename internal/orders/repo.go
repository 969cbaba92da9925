package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrVersionConflict   = errors.New("order version conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type ItemInput struct {
	VariantID string `json:"variantId"`
	Qty       int    `json:"qty"`
}

type Repo struct{ DB *pgxpool.Pool }

// CreateOrderTx creates an order in `pending` with its items priced from the
// catalog inside the same transaction. Idempotent via external_id: a repeat
// submission returns the existing order (existed=true).
func (r *Repo) CreateOrderTx(ctx context.Context, externalID, buyerID, address string, items []ItemInput) (o Order, existed bool, err error) {
	// cek existing by external_id
	o, err = r.getBy(ctx, `external_id`, externalID)
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Order{}, false, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			return Order{}, false, fmt.Errorf("invalid qty for variant %s", it.VariantID)
		}
		ids = append(ids, it.VariantID)
	}
	priced, err := catalog.PricesFor(ctx, tx, ids)
	if err != nil {
		return Order{}, false, err
	}

	var total int64
	for _, it := range items {
		v, ok := priced[it.VariantID]
		if !ok {
			return Order{}, false, fmt.Errorf("variant not found: %s", it.VariantID)
		}
		total += v.EffectivePrice() * int64(it.Qty)
	}

	o = Order{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		BuyerID:    buyerID,
		Address:    address,
		Status:     StatusPending,
		TotalCents: total,
		Version:    1,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, buyer_id, address, status, total_cents, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		o.ID, o.ExternalID, o.BuyerID, o.Address, o.Status, o.TotalCents, o.Version,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, false, err
	}

	for _, it := range items {
		v := priced[it.VariantID]
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, variant_id, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), o.ID, it.VariantID, it.Qty, v.EffectivePrice(),
		); err != nil {
			return Order{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	return r.getBy(ctx, `id`, id)
}

func (r *Repo) getBy(ctx context.Context, col, val string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, buyer_id, address, status, total_cents, version, created_at, updated_at
		FROM orders WHERE `+col+`=$1`, val,
	).Scan(&o.ID, &o.ExternalID, &o.BuyerID, &o.Address, &o.Status, &o.TotalCents, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// UpdateStatus applies an administrative transition with an optimistic
// version check. The transition table is enforced here; a stale version or
// an illegal transition both leave the row untouched.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	o, err := r.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$3`, orderID, next, o.Version)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *Repo) ListItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, variant_id, qty, price_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
