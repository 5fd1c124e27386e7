package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent is an optional percentage as sent by the backend.
// Set is false when the field was absent or not numeric.
type Percent struct {
	Value decimal.Decimal
	Set   bool
}

// PercentOf returns a set Percent.
func PercentOf(v decimal.Decimal) Percent { return Percent{Value: v, Set: true} }

// Positive reports whether the percent is present and > 0.
func (p Percent) Positive() bool { return p.Set && p.Value.IsPositive() }

// MarshalJSON writes the number, or null when unset.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return []byte(p.Value.String()), nil
}

// UnmarshalJSON accepts null (unset), a number or a numeric string.
func (p *Percent) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Percent{}
		return nil
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("percent: %w", err)
	}
	*p = PercentOf(v)
	return nil
}

// DiscountedPrice applies discount to price: price - price*discount/100 when the
// discount is positive, otherwise price unchanged. Negative or unparsable discounts
// leave the price untouched; values above 100 are not clamped.
func DiscountedPrice(price decimal.Decimal, discount Percent) decimal.Decimal {
	if !discount.Positive() {
		return price
	}
	return price.Sub(price.Mul(discount.Value).Div(hundred))
}

// Category groups products on the menu.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Product is a read-only catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Discount    Percent         `json:"discountPercent"`
	Stock       int             `json:"stock"`
	CoverImage  string          `json:"coverImage,omitempty"`
	Category    Category        `json:"category"`
	Featured    bool            `json:"isFeatured"`
	OnSale      bool            `json:"isOnSale"`
}

// FinalPrice is the unit price after discount.
func (p Product) FinalPrice() decimal.Decimal { return DiscountedPrice(p.Price, p.Discount) }

// HasDiscount reports whether FinalPrice differs from Price because of a discount.
func (p Product) HasDiscount() bool { return p.Discount.Positive() }
