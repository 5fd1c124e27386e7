// Package convert maps backend JSON payloads to domain types.
//
// The backend is loosely typed: numbers arrive as strings, references arrive either
// populated or as bare ids, and a few field names exist in two spellings. Decoding here
// is permissive; anything unusable degrades to a zero value instead of failing the
// whole payload.
package convert

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/restaurant-client/internal/model"
)

// Number accepts a JSON number, a numeric string, null or "".
// Valid is false for anything that does not parse.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON never fails; unparsable input leaves n invalid.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Int truncates to an int, 0 when invalid.
func (n Number) Int() int {
	if !n.Valid {
		return 0
	}
	return int(n.Value.IntPart())
}

// Decimal returns the value, zero when invalid.
func (n Number) Decimal() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Value
}

// Ref is a reference that is either populated (an object) or a bare id string.
type Ref struct {
	ID  string
	Obj json.RawMessage
}

// UnmarshalJSON keeps the raw object for later decoding, or the id.
func (r *Ref) UnmarshalJSON(b []byte) error {
	*r = Ref{}
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		return json.Unmarshal(b, &r.ID)
	case b[0] == '{':
		r.Obj = append(json.RawMessage(nil), b...)
		var probe struct {
			ID    string `json:"_id"`
			AltID string `json:"id"`
		}
		if err := json.Unmarshal(b, &probe); err == nil {
			r.ID = firstNonEmpty(probe.ID, probe.AltID)
		}
		return nil
	}
	return nil
}

// User is the `user` payload of /users/*.
type User struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Category is an element of /category/getCategories.
type Category struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
	Name  string `json:"name"`
}

// Product is the catalog payload.
type Product struct {
	ID              string `json:"_id"`
	AltID           string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           Number `json:"price"`
	DiscountPercent Number `json:"discountPercent"`
	Stock           Number `json:"stock"`
	CoverImage      string `json:"coverImage"`
	Category        Ref    `json:"category"`
	IsFeatured      bool   `json:"isFeatured"`
	IsFeautred      bool   `json:"isFeautred"`
	IsOnSale        bool   `json:"isOnSale"`
}

// LineItem is a cart line; product may be populated or a bare id.
type LineItem struct {
	Product  Ref    `json:"product"`
	Quantity Number `json:"quantity"`
}

// Cart is the `cart` payload of /carts*.
type Cart struct {
	ID    string     `json:"_id"`
	Items []LineItem `json:"items"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	Product  Ref    `json:"product"`
	Name     string `json:"name"`
	Price    Number `json:"price"`
	Quantity Number `json:"quantity"`
}

// Order is an element of /orders/getOrders.
type Order struct {
	ID              string      `json:"_id"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	Notes           string      `json:"notes"`
	Items           []OrderItem `json:"items"`
	TotalAmount     Number      `json:"totalAmount"`
	Status          string      `json:"status"`
	OrderDate       time.Time   `json:"orderDate"`
}

// ToIdentity converts a user payload, normalizing the role.
func ToIdentity(u User) model.Identity {
	return model.NewIdentity(firstNonEmpty(u.ID, u.AltID), u.Name, u.Email, u.Role)
}

// ToCategory converts a category payload.
func ToCategory(c Category) model.Category {
	return model.Category{ID: firstNonEmpty(c.ID, c.AltID), Name: c.Name}
}

// ToCategories converts a list, skipping nothing.
func ToCategories(in []Category) []model.Category {
	out := make([]model.Category, 0, len(in))
	for _, c := range in {
		out = append(out, ToCategory(c))
	}
	return out
}

// ToProduct converts a product payload.
func ToProduct(p Product) model.Product {
	out := model.Product{
		ID:          firstNonEmpty(p.ID, p.AltID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.Decimal(),
		Stock:       p.Stock.Int(),
		CoverImage:  p.CoverImage,
		Category:    refCategory(p.Category),
		Featured:    p.IsFeatured || p.IsFeautred,
		OnSale:      p.IsOnSale,
	}
	if p.DiscountPercent.Valid {
		out.Discount = model.PercentOf(p.DiscountPercent.Value)
	}
	return out
}

// ToProducts converts a list.
func ToProducts(in []Product) []model.Product {
	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		out = append(out, ToProduct(p))
	}
	return out
}

// ToCart converts a cart payload; nil yields an empty cart.
// TotalItems is always recomputed from items.
func ToCart(c *Cart) model.Cart {
	if c == nil {
		return model.EmptyCart()
	}
	items := make([]model.LineItem, 0, len(c.Items))
	for _, li := range c.Items {
		items = append(items, model.LineItem{Product: refProduct(li.Product), Quantity: li.Quantity.Int()})
	}
	return model.NewCart(c.ID, items)
}

// ToOrder converts an order payload.
func ToOrder(o Order) model.Order {
	items := make([]model.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		p := refProduct(it.Product)
		items = append(items, model.OrderItem{
			ProductID:  p.ID,
			Name:       firstNonEmpty(it.Name, p.Name),
			Price:      it.Price.Decimal(),
			Quantity:   it.Quantity.Int(),
			CoverImage: p.CoverImage,
		})
	}
	return model.Order{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		Notes:           o.Notes,
		Items:           items,
		TotalAmount:     o.TotalAmount.Decimal(),
		Status:          model.OrderStatus(strings.ToLower(strings.TrimSpace(o.Status))),
		OrderDate:       o.OrderDate,
	}
}

// ToOrders converts a list.
func ToOrders(in []Order) []model.Order {
	out := make([]model.Order, 0, len(in))
	for _, o := range in {
		out = append(out, ToOrder(o))
	}
	return out
}

func refProduct(r Ref) model.Product {
	if len(r.Obj) == 0 {
		return model.Product{ID: r.ID}
	}
	var p Product
	if err := json.Unmarshal(r.Obj, &p); err != nil {
		return model.Product{ID: r.ID}
	}
	return ToProduct(p)
}

func refCategory(r Ref) model.Category {
	if len(r.Obj) == 0 {
		return model.Category{ID: r.ID}
	}
	var c Category
	if err := json.Unmarshal(r.Obj, &c); err != nil {
		return model.Category{ID: r.ID}
	}
	return ToCategory(c)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
