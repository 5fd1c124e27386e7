package api

import (
	"context"
	"net/http"

	"github.com/and161185/restaurant-client/internal/convert"
	"github.com/and161185/restaurant-client/internal/model"
)

// ListProducts returns the public catalog.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	ps, err := getList[convert.Product](ctx, c, "/products/getProducts", "products")
	if err != nil {
		return nil, err
	}
	return convert.ToProducts(ps), nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (model.Product, error) {
	path := "/products/" + escape(id)
	var env struct {
		Product *convert.Product `json:"product"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return model.Product{}, err
	}
	if env.Product == nil {
		return model.Product{}, errMissing(http.MethodGet, path, "product")
	}
	return convert.ToProduct(*env.Product), nil
}

// ListCategories returns the categories used by product forms.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	cs, err := getList[convert.Category](ctx, c, "/category/getCategories", "categories")
	if err != nil {
		return nil, err
	}
	return convert.ToCategories(cs), nil
}
