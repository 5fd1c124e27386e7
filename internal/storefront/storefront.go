// Package storefront wires the stores and services for one client session and
// translates view intents into store calls.
package storefront

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/cart"
	"github.com/and161185/restaurant-client/internal/catalog"
	"github.com/and161185/restaurant-client/internal/checkout"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/guard"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/session"
)

// Options configures a Storefront.
type Options struct {
	Checkout checkout.Options
	Catalog  catalog.Options
	// Navigator receives post-checkout redirects; may be nil.
	Navigator checkout.Navigator
	// SyncTimeout bounds the cart refetch after an identity change. The refetch
	// runs while the session publishes, so it also bounds how long the next
	// session change can wait.
	SyncTimeout time.Duration
}

// Storefront owns the session and cart stores and everything built on them.
type Storefront struct {
	Session  *session.Store
	Cart     *cart.Store
	Guard    *guard.Guard
	Checkout *checkout.Service
	Catalog  *catalog.Service
	Admin    *catalog.Admin

	log         *zap.Logger
	syncTimeout time.Duration
	unsub       func()
	closeOnce   sync.Once
	resyncs     atomic.Int64
}

// New wires a Storefront over client. Call Start before serving intents and Close when done.
func New(client *api.Client, opts Options, log *zap.Logger) *Storefront {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 10 * time.Second
	}
	ss := session.New(client, log)
	cs := cart.New(client, log)
	sf := &Storefront{
		Session:     ss,
		Cart:        cs,
		Guard:       guard.New(ss),
		Checkout:    checkout.New(client, cs, opts.Navigator, opts.Checkout, log),
		Catalog:     catalog.New(client, opts.Catalog, log),
		Admin:       catalog.NewAdmin(client, log),
		log:         log.Named("storefront"),
		syncTimeout: opts.SyncTimeout,
	}
	sf.unsub = ss.Subscribe(sf.onSession)
	return sf
}

// onSession keeps the cart tied to the identity: any change of identity drops the
// local cart and loads the one belonging to the new session.
//
// It runs inside the session's publish, so the intent that changed the identity
// returns with the new cart in place, and later session changes wait for the
// refetch (at most SyncTimeout).
func (sf *Storefront) onSession(c session.Change) {
	if !c.IdentityChanged() {
		return
	}
	sf.resyncs.Add(1)
	sf.log.Debug("identity changed, resyncing cart",
		zap.String("from", c.Prev.IdentityID()), zap.String("to", c.Next.IdentityID()))
	sf.Cart.Clear()
	ctx, cancel := context.WithTimeout(context.Background(), sf.syncTimeout)
	defer cancel()
	sf.Cart.Fetch(ctx)
}

// Start resolves the session and loads the cart. When resolving the session changed
// the identity the cart was already reloaded and is not fetched again.
func (sf *Storefront) Start(ctx context.Context) session.Snapshot {
	before := sf.resyncs.Load()
	snap := sf.Session.Verify(ctx)
	if sf.resyncs.Load() == before {
		sf.Cart.Fetch(ctx)
	}
	return snap
}

// Close detaches every store. Late responses are dropped.
func (sf *Storefront) Close() {
	sf.closeOnce.Do(func() {
		sf.unsub()
		sf.Checkout.Close()
		sf.Cart.Close()
		sf.Session.Close()
	})
}

// Login signs in; the cart follows through the identity subscription.
func (sf *Storefront) Login(ctx context.Context, cr api.Credentials) (session.LoginResult, error) {
	return sf.Session.Login(ctx, cr)
}

// Register signs up and in.
func (sf *Storefront) Register(ctx context.Context, r api.Registration) (model.Identity, error) {
	return sf.Session.Register(ctx, r)
}

// Logout ends the session. The local identity and cart are cleared regardless of
// the backend's answer.
func (sf *Storefront) Logout(ctx context.Context) error {
	return sf.Session.Logout(ctx)
}

// AddToCart adds one unit.
func (sf *Storefront) AddToCart(ctx context.Context, productID string) (model.Cart, error) {
	return sf.Cart.Add(ctx, productID)
}

// ChangeQuantity moves the quantity of a line by delta. A result below 1 is
// refused before reaching the store; use RemoveFromCart instead.
func (sf *Storefront) ChangeQuantity(ctx context.Context, productID string, delta int) (model.Cart, error) {
	cur := sf.Cart.Snapshot()
	have := cur.Quantity(productID)
	if have == 0 {
		return cur, errs.Validation("productId", "product is not in the cart")
	}
	return sf.SetQuantity(ctx, productID, have+delta)
}

// SetQuantity sets an absolute quantity, refusing anything below 1.
func (sf *Storefront) SetQuantity(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return sf.Cart.Snapshot(), errs.Validation("quantity", "quantity must be at least 1")
	}
	return sf.Cart.Update(ctx, productID, quantity)
}

// RemoveFromCart deletes a line.
func (sf *Storefront) RemoveFromCart(ctx context.Context, productID string) (model.Cart, error) {
	return sf.Cart.Remove(ctx, productID)
}

// PlaceOrder submits the checkout form.
func (sf *Storefront) PlaceOrder(ctx context.Context, f checkout.Form) (checkout.Receipt, error) {
	return sf.Checkout.Place(ctx, f)
}

// AdminProducts lists products behind the admin guard.
func (sf *Storefront) AdminProducts(ctx context.Context) ([]model.Product, error) {
	return guard.Run(ctx, sf.Guard, guard.Admin, sf.Admin.Products)
}

// AdminOrders lists orders behind the admin guard.
func (sf *Storefront) AdminOrders(ctx context.Context) ([]model.Order, error) {
	return guard.Run(ctx, sf.Guard, guard.Admin, sf.Admin.Orders)
}
