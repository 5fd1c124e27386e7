package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/restaurant-client/internal/model"
)

type productView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent model.Percent   `json:"discountPercent"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	Stock           int             `json:"stock"`
	Featured        bool            `json:"featured,omitempty"`
	OnSale          bool            `json:"onSale,omitempty"`
}

func newProductView(p model.Product) productView {
	return productView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category.Name,
		Price:           p.Price,
		DiscountPercent: p.Discount,
		FinalPrice:      p.FinalPrice(),
		Stock:           p.Stock,
		Featured:        p.Featured,
		OnSale:          p.OnSale,
	}
}

func productViews(ps []model.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductView(p))
	}
	return out
}

type groupView struct {
	Category string        `json:"category"`
	Products []productView `json:"products"`
}

type lineView struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Items      []lineView      `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Delivery   string          `json:"delivery"`
	Total      decimal.Decimal `json:"total"`
}

func newCartView(c model.Cart) cartView {
	v := cartView{Items: make([]lineView, 0, len(c.Items)), TotalItems: c.TotalItems, Delivery: "free"}
	for _, it := range c.Items {
		v.Items = append(v.Items, lineView{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			UnitPrice: it.Product.FinalPrice(),
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	v.Subtotal = c.Subtotal()
	v.Total = v.Subtotal
	return v
}

type orderView struct {
	ID       string            `json:"id"`
	Ref      string            `json:"ref"`
	Customer string            `json:"customer"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Notes    string            `json:"notes,omitempty"`
	Status   model.OrderStatus `json:"status"`
	Total    decimal.Decimal   `json:"total"`
	Date     string            `json:"date,omitempty"`
	Items    []model.OrderItem `json:"items"`
}

func orderViews(orders []model.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		v := orderView{
			ID:       o.ID,
			Ref:      "#" + o.ShortID(),
			Customer: o.CustomerName,
			Phone:    o.CustomerPhone,
			Address:  o.CustomerAddress,
			Notes:    o.Notes,
			Status:   o.Status,
			Total:    o.TotalAmount,
			Items:    o.Items,
		}
		if !o.OrderDate.IsZero() {
			v.Date = o.OrderDate.UTC().Format(time.RFC3339)
		}
		out = append(out, v)
	}
	return out
}
