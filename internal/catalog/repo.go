package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

// CreateProduct inserts the product and its variants in one transaction and
// returns the stored product with generated ids.
func (r *Repo) CreateProduct(ctx context.Context, sellerID string, in ProductInput) (Product, error) {
	variants, err := NormalizeVariants(in)
	if err != nil {
		return Product{}, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p := Product{
		ID:          uuid.NewString(),
		SellerID:    sellerID,
		Name:        in.Name,
		Brand:       in.Brand,
		Description: in.Description,
		Category:    in.Category,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO products(id, seller_id, name, brand, description, category)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		p.ID, p.SellerID, p.Name, p.Brand, p.Description, p.Category,
	).Scan(&p.CreatedAt)
	if err != nil {
		return Product{}, err
	}

	for i, v := range variants {
		v.ID = uuid.NewString()
		v.ProductID = p.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_variants(id, product_id, position, size, color, price_cents, discount_price_cents, stock, unit)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			v.ID, v.ProductID, i, v.Size, v.Color, v.PriceCents, v.DiscountPriceCents, v.Stock, v.Unit,
		); err != nil {
			return Product{}, err
		}
		variants[i] = v
	}
	p.Variants = variants

	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, seller_id, name, brand, description, category, created_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.SellerID, &p.Name, &p.Brand, &p.Description, &p.Category, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.Variants, err = r.variantsFor(ctx, p.ID)
	return p, err
}

func (r *Repo) variantsFor(ctx context.Context, productID string) ([]Variant, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, size, color, price_cents, discount_price_cents, stock, unit
		FROM product_variants WHERE product_id=$1 ORDER BY position`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.PriceCents, &v.DiscountPriceCents, &v.Stock, &v.Unit); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, `
		SELECT id, seller_id, name, brand, description, category, created_at
		FROM products ORDER BY created_at DESC`)
}

// SearchProducts matches name or brand, case-insensitive.
func (r *Repo) SearchProducts(ctx context.Context, q string) ([]Product, error) {
	return r.queryProducts(ctx, `
		SELECT id, seller_id, name, brand, description, category, created_at
		FROM products WHERE name ILIKE $1 OR brand ILIKE $1
		ORDER BY created_at DESC`, "%"+q+"%")
}

func (r *Repo) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Brand, &p.Description, &p.Category, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		vs, err := r.variantsFor(ctx, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("variants for %s: %w", out[i].ID, err)
		}
		out[i].Variants = vs
	}
	return out, nil
}

// PricedVariant is the slice of variant data order creation needs.
type PricedVariant struct {
	ID         string
	ProductID  string
	PriceCents int64
	Discount   *int64
}

// EffectivePrice is the discount price when set, otherwise the list price.
func (v PricedVariant) EffectivePrice() int64 {
	if v.Discount != nil {
		return *v.Discount
	}
	return v.PriceCents
}

// PricesFor loads current prices for a set of variant ids inside the given
// transaction so order totals are computed from the catalog, not the client.
func PricesFor(ctx context.Context, tx pgx.Tx, variantIDs []string) (map[string]PricedVariant, error) {
	if len(variantIDs) == 0 {
		return map[string]PricedVariant{}, nil
	}
	params := ""
	args := make([]any, 0, len(variantIDs))
	for i, id := range variantIDs {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, price_cents, discount_price_cents
		FROM product_variants WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]PricedVariant{}
	for rows.Next() {
		var v PricedVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.PriceCents, &v.Discount); err != nil {
			return nil, err
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}
