package model

import "github.com/shopspring/decimal"

// LineItem is one product in a cart with its quantity.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is the discounted unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Product.FinalPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is a snapshot of the server-side cart.
//
// TotalItems is derived and only ever set by NewCart; carts are replaced,
// never mutated in place.
type Cart struct {
	ID         string     `json:"id,omitempty"`
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"totalItems"`
}

// NewCart copies items into a fresh cart and recomputes TotalItems.
func NewCart(id string, items []LineItem) Cart {
	cp := make([]LineItem, len(items))
	copy(cp, items)
	total := 0
	for _, it := range cp {
		total += it.Quantity
	}
	return Cart{ID: id, Items: cp, TotalItems: total}
}

// EmptyCart returns a cart with no items.
func EmptyCart() Cart { return NewCart("", nil) }

// Clone returns a deep enough copy for callers to keep or modify.
func (c Cart) Clone() Cart { return NewCart(c.ID, c.Items) }

// Without returns a new cart with every line for productID removed.
func (c Cart) Without(productID string) Cart {
	kept := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Product.ID != productID {
			kept = append(kept, it)
		}
	}
	return NewCart(c.ID, kept)
}

// Quantity returns the quantity held for productID, 0 when absent.
func (c Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.Product.ID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Consistent reports whether TotalItems matches the sum of quantities.
func (c Cart) Consistent() bool {
	sum := 0
	for _, it := range c.Items {
		sum += it.Quantity
	}
	return sum == c.TotalItems
}

// Subtotal sums every line subtotal. Delivery is free, so this is also the total.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.Items) == 0 }
