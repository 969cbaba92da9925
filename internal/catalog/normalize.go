package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMissingSize = errors.New("variant size is required")
var ErrMissingPrice = errors.New("variant price is required")

// RawNumber accepts both JSON numbers and quoted numeric strings, since
// storefront clients send prices either way.
type RawNumber string

func (n *RawNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var q string
		if err := json.Unmarshal(b, &q); err != nil {
			return err
		}
		*n = RawNumber(strings.TrimSpace(q))
		return nil
	}
	*n = RawNumber(s)
	return nil
}

func (n RawNumber) empty() bool { return n == "" }

// VariantInput is the loose shape accepted from clients.
type VariantInput struct {
	Size          string     `json:"size"`
	Color         string     `json:"color"`
	Price         RawNumber  `json:"price"`
	DiscountPrice *RawNumber `json:"discountPrice"`
	Stock         RawNumber  `json:"stock"`
	Unit          string     `json:"unit"`
}

// ProductInput carries an optional variants array plus top-level fallback
// fields used to synthesize a single variant when the array is absent.
type ProductInput struct {
	SellerID    string         `json:"sellerId"`
	Name        string         `json:"name"`
	Brand       string         `json:"brand"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Variants    []VariantInput `json:"variants"`

	Size          string     `json:"size"`
	Color         string     `json:"color"`
	Price         RawNumber  `json:"price"`
	DiscountPrice *RawNumber `json:"discountPrice"`
	Stock         RawNumber  `json:"stock"`
	Unit          string     `json:"unit"`
}

// MinorUnits parses a decimal amount ("499.50") into integer minor units
// (49950). decimal avoids float rounding on the way in.
func MinorUnits(raw RawNumber) (int64, error) {
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// NormalizeVariant applies the defaulting rules: color falls back to "",
// unit to DefaultUnit, stock to 0. Price ordering and stock ceilings are
// deliberately not validated here.
func NormalizeVariant(in VariantInput) (Variant, error) {
	if in.Size == "" {
		return Variant{}, ErrMissingSize
	}
	if in.Price.empty() {
		return Variant{}, ErrMissingPrice
	}
	price, err := MinorUnits(in.Price)
	if err != nil {
		return Variant{}, err
	}

	var discount *int64
	if in.DiscountPrice != nil && !in.DiscountPrice.empty() {
		d, err := MinorUnits(*in.DiscountPrice)
		if err != nil {
			return Variant{}, err
		}
		discount = &d
	}

	stock := 0
	if !in.Stock.empty() {
		stock, err = strconv.Atoi(string(in.Stock))
		if err != nil {
			return Variant{}, fmt.Errorf("parse stock %q: %w", in.Stock, err)
		}
	}

	unit := in.Unit
	if unit == "" {
		unit = DefaultUnit
	}

	return Variant{
		Size:               in.Size,
		Color:              in.Color,
		PriceCents:         price,
		DiscountPriceCents: discount,
		Stock:              stock,
		Unit:               unit,
	}, nil
}

// NormalizeVariants returns the product's variant list. Without an explicit
// variants array, exactly one variant is synthesized from the top-level
// fields.
func NormalizeVariants(in ProductInput) ([]Variant, error) {
	if len(in.Variants) == 0 {
		v, err := NormalizeVariant(VariantInput{
			Size:          in.Size,
			Color:         in.Color,
			Price:         in.Price,
			DiscountPrice: in.DiscountPrice,
			Stock:         in.Stock,
			Unit:          in.Unit,
		})
		if err != nil {
			return nil, err
		}
		return []Variant{v}, nil
	}

	out := make([]Variant, 0, len(in.Variants))
	for i, vi := range in.Variants {
		v, err := NormalizeVariant(vi)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
