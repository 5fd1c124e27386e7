package catalog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/validate"
)

// AdminAPI is the admin backend.
type AdminAPI interface {
	AdminListProducts(ctx context.Context) ([]model.Product, error)
	AdminAddProduct(ctx context.Context, f api.ProductForm) (*model.Product, error)
	AdminUpdateProduct(ctx context.Context, id string, f api.ProductForm) (*model.Product, error)
	AdminDeleteProduct(ctx context.Context, id string) (string, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error
}

// Admin manages products and orders. It keeps the last lists it loaded and
// replaces them after every successful change.
type Admin struct {
	api AdminAPI
	log *zap.Logger
	val *validate.Validator

	mu       sync.Mutex
	products []model.Product
	orders   []model.Order
}

// NewAdmin builds an Admin.
func NewAdmin(a AdminAPI, log *zap.Logger) *Admin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admin{api: a, log: log.Named("admin"), val: validate.New()}
}

// Products reloads the product list.
func (a *Admin) Products(ctx context.Context) ([]model.Product, error) {
	ps, err := a.api.AdminListProducts(ctx)
	if err != nil {
		return nil, a.failed("list products", err)
	}
	a.mu.Lock()
	a.products = ps
	a.mu.Unlock()
	return append([]model.Product(nil), ps...), nil
}

// AddProduct validates and creates a product, then reloads the list.
func (a *Admin) AddProduct(ctx context.Context, f api.ProductForm) (*model.Product, error) {
	f.CategoryName = strings.TrimSpace(f.CategoryName)
	if f.CategoryName == "" {
		return nil, errs.Validation("categoryName", "categoryName is required")
	}
	if err := a.val.Struct(f); err != nil {
		return nil, err
	}
	p, err := a.api.AdminAddProduct(ctx, f)
	if err != nil {
		return nil, a.failed("add product", errs.WithDefault(err, "Failed to add product"))
	}
	a.log.Info("product added", zap.String("name", f.Name))
	a.reloadProducts(ctx)
	return p, nil
}

// UpdateProduct validates and updates a product, then reloads the list.
func (a *Admin) UpdateProduct(ctx context.Context, id string, f api.ProductForm) (*model.Product, error) {
	if id == "" {
		return nil, errs.Validation("id", "id is required")
	}
	if err := a.val.Struct(f); err != nil {
		return nil, err
	}
	p, err := a.api.AdminUpdateProduct(ctx, id, f)
	if err != nil {
		return nil, a.failed("update product", errs.WithDefault(err, "Failed to update product"))
	}
	a.log.Info("product updated", zap.String("id", id))
	a.reloadProducts(ctx)
	return p, nil
}

// DeleteProduct deletes a product and drops it from the cached list.
func (a *Admin) DeleteProduct(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", errs.Validation("id", "id is required")
	}
	msg, err := a.api.AdminDeleteProduct(ctx, id)
	if err != nil {
		return "", a.failed("delete product", errs.WithDefault(err, "Failed to delete product"))
	}
	a.mu.Lock()
	kept := make([]model.Product, 0, len(a.products))
	for _, p := range a.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	a.products = kept
	a.mu.Unlock()
	return msg, nil
}

// CachedProducts returns the last loaded product list.
func (a *Admin) CachedProducts() []model.Product {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Product(nil), a.products...)
}

// Orders reloads the order list.
func (a *Admin) Orders(ctx context.Context) ([]model.Order, error) {
	orders, err := a.api.ListOrders(ctx)
	if err != nil {
		return nil, a.failed("list orders", err)
	}
	a.mu.Lock()
	a.orders = orders
	a.mu.Unlock()
	return append([]model.Order(nil), orders...), nil
}

// SetOrderStatus moves an order to status and reloads the list.
func (a *Admin) SetOrderStatus(ctx context.Context, id string, status model.OrderStatus) ([]model.Order, error) {
	status = model.OrderStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, errs.Validation("status", "status must be one of: "+joinStatuses())
	}
	if err := a.api.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, a.failed("update order status", errs.WithDefault(err, "Failed to update order status"))
	}
	return a.Orders(ctx)
}

// DeleteOrder deletes an order and reloads the list.
func (a *Admin) DeleteOrder(ctx context.Context, id string) ([]model.Order, error) {
	if err := a.api.DeleteOrder(ctx, id); err != nil {
		return nil, a.failed("delete order", errs.WithDefault(err, "Failed to delete order"))
	}
	return a.Orders(ctx)
}

func (a *Admin) reloadProducts(ctx context.Context) {
	if _, err := a.Products(ctx); err != nil {
		a.log.Debug("reload after change failed", zap.Error(err))
	}
}

func (a *Admin) failed(op string, err error) error {
	if errs.IsAuthorization(err) {
		a.log.Debug(op+" not authorized", zap.Error(err))
	} else {
		a.log.Warn(op+" failed", zap.Error(err), zap.String("message", errs.Message(err)))
	}
	return err
}

func joinStatuses() string {
	names := make([]string, len(model.OrderStatuses))
	for i, s := range model.OrderStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
