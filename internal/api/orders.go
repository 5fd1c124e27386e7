package api

import (
	"context"
	"net/http"

	"github.com/and161185/restaurant-client/internal/convert"
	"github.com/and161185/restaurant-client/internal/model"
)

// OrderLine is one requested product in a new order.
type OrderLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// OrderRequest is the checkout form plus the lines taken from the cart.
type OrderRequest struct {
	CustomerName    string      `json:"customerName" validate:"required"`
	CustomerPhone   string      `json:"customerPhone" validate:"required"`
	CustomerAddress string      `json:"customerAddress" validate:"required"`
	Notes           string      `json:"notes"`
	Items           []OrderLine `json:"items" validate:"required,min=1,dive"`
}

// OrderPlaced is the backend acknowledgement of a new order.
type OrderPlaced struct {
	OrderID string `json:"orderId"`
	Message string `json:"msg"`
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, r OrderRequest) (OrderPlaced, error) {
	var out OrderPlaced
	if err := c.doJSON(ctx, http.MethodPost, "/orders/createOrder", r, &out); err != nil {
		return OrderPlaced{}, err
	}
	return out, nil
}

// ListOrders returns every order (admin).
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := getList[convert.Order](ctx, c, "/orders/getOrders", "orders")
	if err != nil {
		return nil, err
	}
	return convert.ToOrders(orders), nil
}

// UpdateOrderStatus moves an order to status (admin).
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	body := struct {
		Status model.OrderStatus `json:"status"`
	}{status}
	return c.doJSON(ctx, http.MethodPut, "/orders/updateOrderStatus/"+escape(id), body, nil)
}

// DeleteOrder removes an order (admin).
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/orders/deleteOrder/"+escape(id), nil, nil)
}
