package api

import (
	"context"
	"net/http"

	"github.com/and161185/restaurant-client/internal/convert"
	"github.com/and161185/restaurant-client/internal/model"
)

type cartEnvelope struct {
	Cart *convert.Cart `json:"cart"`
}

type cartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// GetCart fetches the session's cart. ok is false when the response carried no cart.
func (c *Client) GetCart(ctx context.Context) (cart model.Cart, ok bool, err error) {
	var env cartEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/carts", nil, &env); err != nil {
		return model.Cart{}, false, err
	}
	if env.Cart == nil {
		return model.EmptyCart(), false, nil
	}
	return convert.ToCart(env.Cart), true, nil
}

// AddToCart adds one unit of productID and returns the server's cart.
func (c *Client) AddToCart(ctx context.Context, productID string) (model.Cart, error) {
	const path = "/carts/add"
	var env cartEnvelope
	if err := c.doJSON(ctx, http.MethodPost, path, cartLine{ProductID: productID}, &env); err != nil {
		return model.Cart{}, err
	}
	if env.Cart == nil {
		return model.Cart{}, errMissing(http.MethodPost, path, "cart")
	}
	return convert.ToCart(env.Cart), nil
}

// UpdateCart sets the absolute quantity for productID and returns the server's cart.
func (c *Client) UpdateCart(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	const path = "/carts/update"
	var env cartEnvelope
	if err := c.doJSON(ctx, http.MethodPut, path, cartLine{ProductID: productID, Quantity: quantity}, &env); err != nil {
		return model.Cart{}, err
	}
	if env.Cart == nil {
		return model.Cart{}, errMissing(http.MethodPut, path, "cart")
	}
	return convert.ToCart(env.Cart), nil
}

// RemoveFromCart deletes the line for productID. ok is false when the server
// acknowledged without returning the updated cart.
func (c *Client) RemoveFromCart(ctx context.Context, productID string) (cart model.Cart, ok bool, err error) {
	var env cartEnvelope
	if err := c.doJSON(ctx, http.MethodDelete, "/carts/remove/"+escape(productID), nil, &env); err != nil {
		return model.Cart{}, false, err
	}
	if env.Cart == nil {
		return model.Cart{}, false, nil
	}
	return convert.ToCart(env.Cart), true, nil
}
