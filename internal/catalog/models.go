package catalog

import "time"

// DefaultUnit is used when a variant is submitted without a unit.
const DefaultUnit = "Piece"

type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Variant is one purchasable configuration of a product. Prices are integer
// minor currency units. Duplicate size/color combinations are permitted; the
// list order is the order the seller submitted.
type Variant struct {
	ID                 string `json:"id"`
	ProductID          string `json:"productId"`
	Size               string `json:"size"`
	Color              string `json:"color"`
	PriceCents         int64  `json:"price"`
	DiscountPriceCents *int64 `json:"discountPrice"`
	Stock              int    `json:"stock"`
	Unit               string `json:"unit"`
}
