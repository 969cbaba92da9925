package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReserveItem struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type ShortfallDetail struct {
	VariantID string `json:"variant_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type StockRepo struct{ DB *pgxpool.Pool }

// AlreadyReserved reports whether every item of the order holds a RESERVED
// row, used as an idempotency short-circuit on event redelivery.
func (r *StockRepo) AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE order_id = $1 AND status = 'RESERVED'`, orderID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

// ReserveAll locks each variant row (FOR UPDATE), decrements stock and
// records the reservation. Any shortfall rolls back the whole batch.
func (r *StockRepo) ReserveAll(ctx context.Context, orderID string, items []ReserveItem) (ok bool, details []ShortfallDetail, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback(ctx)

	var rejects []ShortfallDetail

	for _, it := range items {
		var stock int
		if err := tx.QueryRow(ctx, `SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`, it.VariantID).Scan(&stock); err != nil {
			return false, nil, err
		}
		if stock < it.Qty {
			rejects = append(rejects, ShortfallDetail{
				VariantID: it.VariantID, Required: it.Qty, Available: stock,
			})
			continue
		}

		if _, err := tx.Exec(ctx, `UPDATE product_variants SET stock = stock - $2 WHERE id=$1`, it.VariantID, it.Qty); err != nil {
			return false, nil, err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, variant_id, qty, status)
			VALUES ($1,$2,$3,'RESERVED')
			ON CONFLICT (order_id, variant_id) DO NOTHING
		`, orderID, it.VariantID, it.Qty); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// ReleaseAll restores stock for every RESERVED row of the order, used when
// an order is cancelled.
func (r *StockRepo) ReleaseAll(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT variant_id, qty FROM reservations WHERE order_id=$1 AND status='RESERVED'`, orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type rec struct {
		vid string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.vid, &x.qty); err != nil {
			return err
		}
		recs = append(recs, x)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, `UPDATE product_variants SET stock = stock + $2 WHERE id=$1`, x.vid, x.qty); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status='RELEASED' WHERE order_id=$1 AND status='RESERVED'`, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
