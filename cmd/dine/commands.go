package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/checkout"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/guard"
	"github.com/and161185/restaurant-client/internal/model"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// flagValue is a required flag and the value it was given.
type flagValue struct{ name, value string }

// need reports the first empty required flag value, in the order given.
func need(cmd string, flags ...flagValue) error {
	for _, f := range flags {
		if strings.TrimSpace(f.value) == "" {
			return errs.Validation(f.name, fmt.Sprintf("%s needs -%s", cmd, f.name))
		}
	}
	return nil
}

// ---- account ----

func (a *app) cmdWhoami(ctx context.Context) error {
	a.printJSON(a.sf.Start(ctx))
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	a.sf.Start(ctx)
	res, err := a.sf.Login(ctx, api.Credentials{Email: strings.TrimSpace(*email), Password: *password})
	if err != nil {
		return err
	}
	a.printJSON(res)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password (min 6)")
	if err := parse(fs, args); err != nil {
		return err
	}
	a.sf.Start(ctx)
	id, err := a.sf.Register(ctx, api.Registration{
		Name:     strings.TrimSpace(*name),
		Email:    strings.TrimSpace(*email),
		Password: *password,
	})
	if err != nil {
		return err
	}
	a.printJSON(id)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	a.sf.Start(ctx)
	if err := a.sf.Logout(ctx); err != nil {
		a.log.Debug("logout: backend error ignored")
	}
	a.printJSON(a.sf.Session.Snapshot())
	return nil
}

// ---- menu ----

func (a *app) cmdMenu(ctx context.Context, args []string) error {
	fs := newFlags("menu")
	category := fs.String("category", "", "only this category")
	if err := parse(fs, args); err != nil {
		return err
	}
	groups, err := a.sf.Catalog.Menu(ctx, *category)
	if err != nil {
		return err
	}
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupView{Category: g.Category, Products: productViews(g.Products)})
	}
	a.printJSON(out)
	return nil
}

func (a *app) cmdFeatured(ctx context.Context) error {
	ps, err := a.sf.Catalog.Featured(ctx)
	if err != nil {
		return err
	}
	a.printJSON(productViews(ps))
	return nil
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	fs := newFlags("product")
	id := fs.String("id", "", "product id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need("product", flagValue{"id", *id}); err != nil {
		return err
	}
	p, err := a.sf.Catalog.Product(ctx, *id)
	if err != nil {
		return err
	}
	a.printJSON(newProductView(p))
	return nil
}

func (a *app) cmdCategories(ctx context.Context) error {
	cs, err := a.sf.Catalog.Categories(ctx)
	if err != nil {
		return err
	}
	a.printJSON(cs)
	return nil
}

// ---- cart ----

func (a *app) cmdCart(ctx context.Context) error {
	a.sf.Start(ctx)
	a.printJSON(newCartView(a.sf.Cart.Snapshot()))
	return nil
}

func (a *app) cartResult(c model.Cart, err error) error {
	if err != nil {
		return err
	}
	a.printJSON(newCartView(c))
	return nil
}

func (a *app) productFlag(name string, args []string) (string, error) {
	fs := newFlags(name)
	id := fs.String("id", "", "product id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	return *id, need(name, flagValue{"id", *id})
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	id, err := a.productFlag("add", args)
	if err != nil {
		return err
	}
	a.sf.Start(ctx)
	return a.cartResult(a.sf.AddToCart(ctx, id))
}

func (a *app) cmdStep(ctx context.Context, name string, args []string, delta int) error {
	id, err := a.productFlag(name, args)
	if err != nil {
		return err
	}
	a.sf.Start(ctx)
	return a.cartResult(a.sf.ChangeQuantity(ctx, id, delta))
}

func (a *app) cmdSet(ctx context.Context, args []string) error {
	fs := newFlags("set")
	id := fs.String("id", "", "product id")
	qty := fs.Int("qty", 0, "quantity (>= 1)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need("set", flagValue{"id", *id}); err != nil {
		return err
	}
	a.sf.Start(ctx)
	return a.cartResult(a.sf.SetQuantity(ctx, *id, *qty))
}

func (a *app) cmdRemove(ctx context.Context, args []string) error {
	id, err := a.productFlag("rm", args)
	if err != nil {
		return err
	}
	a.sf.Start(ctx)
	return a.cartResult(a.sf.RemoveFromCart(ctx, id))
}

func (a *app) cmdCheckout(ctx context.Context, args []string) error {
	fs := newFlags("checkout")
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "phone")
	address := fs.String("address", "", "delivery address")
	notes := fs.String("notes", "", "notes for the kitchen")
	if err := parse(fs, args); err != nil {
		return err
	}
	a.sf.Start(ctx)
	r, err := a.sf.PlaceOrder(ctx, checkout.Form{Name: *name, Phone: *phone, Address: *address, Notes: *notes})
	if err != nil {
		return err
	}
	a.printJSON(r)
	return nil
}

// ---- admin ----

func (a *app) admin(ctx context.Context, fn func(context.Context) (any, error)) error {
	a.sf.Start(ctx)
	v, err := guard.Run(ctx, a.sf.Guard, guard.Admin, fn)
	if err != nil {
		return err
	}
	a.printJSON(v)
	return nil
}

func (a *app) cmdAdminProducts(ctx context.Context) error {
	a.sf.Start(ctx)
	ps, err := a.sf.AdminProducts(ctx)
	if err != nil {
		return err
	}
	a.printJSON(productViews(ps))
	return nil
}

// productFlags binds the shared admin product form flags.
type productFlags struct {
	name, desc, price, discount, image string
	stock                              int
	featured, sale                     bool
}

func bindProduct(fs *flag.FlagSet) *productFlags {
	pf := &productFlags{}
	fs.StringVar(&pf.name, "name", "", "name")
	fs.StringVar(&pf.desc, "desc", "", "description")
	fs.StringVar(&pf.price, "price", "", "price")
	fs.IntVar(&pf.stock, "stock", 0, "stock")
	fs.StringVar(&pf.discount, "discount", "0", "discount percent")
	fs.BoolVar(&pf.featured, "featured", false, "featured")
	fs.BoolVar(&pf.sale, "sale", false, "on sale")
	fs.StringVar(&pf.image, "image", "", "cover image file")
	return pf
}

// form builds an api.ProductForm. The returned closer releases the image file.
func (pf *productFlags) form() (api.ProductForm, func(), error) {
	noop := func() {}
	price, err := decimal.NewFromString(strings.TrimSpace(pf.price))
	if err != nil {
		return api.ProductForm{}, noop, errs.Validation("price", "price must be a number")
	}
	discount, err := decimal.NewFromString(strings.TrimSpace(pf.discount))
	if err != nil {
		return api.ProductForm{}, noop, errs.Validation("discountPercent", "discount must be a number")
	}
	f := api.ProductForm{
		Name:        strings.TrimSpace(pf.name),
		Description: strings.TrimSpace(pf.desc),
		Price:       price,
		Stock:       pf.stock,
		Discount:    discount,
		Featured:    pf.featured,
		OnSale:      pf.sale,
	}
	if pf.image == "" {
		return f, noop, nil
	}
	file, err := os.Open(pf.image)
	if err != nil {
		return api.ProductForm{}, noop, err
	}
	f.Image = &api.Upload{Filename: pf.image, Content: file}
	return f, func() { _ = file.Close() }, nil
}

func (a *app) cmdAdminAdd(ctx context.Context, args []string) error {
	fs := newFlags("admin-add")
	pf := bindProduct(fs)
	category := fs.String("category", "", "category name")
	if err := parse(fs, args); err != nil {
		return err
	}
	f, done, err := pf.form()
	if err != nil {
		return err
	}
	defer done()
	f.CategoryName = *category
	return a.admin(ctx, func(ctx context.Context) (any, error) {
		p, err := a.sf.Admin.AddProduct(ctx, f)
		if err != nil || p == nil {
			return map[string]string{"message": "Product added"}, err
		}
		return newProductView(*p), nil
	})
}

func (a *app) cmdAdminUpdate(ctx context.Context, args []string) error {
	fs := newFlags("admin-update")
	id := fs.String("id", "", "product id")
	pf := bindProduct(fs)
	categoryID := fs.String("category-id", "", "category id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need("admin-update", flagValue{"id", *id}); err != nil {
		return err
	}
	f, done, err := pf.form()
	if err != nil {
		return err
	}
	defer done()
	f.CategoryID = *categoryID
	return a.admin(ctx, func(ctx context.Context) (any, error) {
		p, err := a.sf.Admin.UpdateProduct(ctx, *id, f)
		if err != nil || p == nil {
			return map[string]string{"message": "Product updated"}, err
		}
		return newProductView(*p), nil
	})
}

func (a *app) cmdAdminDelete(ctx context.Context, args []string) error {
	id, err := a.productFlag("admin-delete", args)
	if err != nil {
		return err
	}
	return a.admin(ctx, func(ctx context.Context) (any, error) {
		msg, err := a.sf.Admin.DeleteProduct(ctx, id)
		return map[string]string{"message": msg}, err
	})
}

func (a *app) cmdOrders(ctx context.Context) error {
	a.sf.Start(ctx)
	orders, err := a.sf.AdminOrders(ctx)
	if err != nil {
		return err
	}
	a.printJSON(orderViews(orders))
	return nil
}

func (a *app) cmdOrderStatus(ctx context.Context, args []string) error {
	fs := newFlags("order-status")
	id := fs.String("id", "", "order id")
	status := fs.String("status", "", "new status")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need("order-status", flagValue{"id", *id}, flagValue{"status", *status}); err != nil {
		return err
	}
	return a.admin(ctx, func(ctx context.Context) (any, error) {
		orders, err := a.sf.Admin.SetOrderStatus(ctx, *id, model.OrderStatus(*status))
		return orderViews(orders), err
	})
}

func (a *app) cmdOrderDelete(ctx context.Context, args []string) error {
	fs := newFlags("order-delete")
	id := fs.String("id", "", "order id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := need("order-delete", flagValue{"id", *id}); err != nil {
		return err
	}
	return a.admin(ctx, func(ctx context.Context) (any, error) {
		orders, err := a.sf.Admin.DeleteOrder(ctx, *id)
		return orderViews(orders), err
	})
}
