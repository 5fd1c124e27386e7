// Package cart mirrors the server-side cart of the current session.
//
// The server is the single writer. Every mutation sends its delta and then replaces
// the local snapshot with the cart the server returned; nothing is merged locally.
// When two mutations overlap, the response that arrives last wins.
package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/notify"
)

// Default failure messages shown when the server gave none.
const (
	MsgAddFailed     = "Failed to add product"
	MsgUpdateFailed  = "Failed to update cart"
	MsgRemoveFailed  = "Failed to remove product"
	MsgNetworkFailed = "Network error occurred"
)

// API is the subset of the backend the cart needs.
type API interface {
	GetCart(ctx context.Context) (model.Cart, bool, error)
	AddToCart(ctx context.Context, productID string) (model.Cart, error)
	UpdateCart(ctx context.Context, productID string, quantity int) (model.Cart, error)
	RemoveFromCart(ctx context.Context, productID string) (model.Cart, bool, error)
}

// Result is the outcome of a mutation as presented to a view.
type Result struct {
	OK      bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResultOf converts a mutation error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return Result{OK: true}
	}
	return Result{Message: errs.Message(err)}
}

// Store holds the last-known-good cart. Create with New.
type Store struct {
	api API
	log *zap.Logger

	pub    sync.Mutex // serializes commit+publish
	mu     sync.Mutex
	cur    model.Cart
	closed bool
	hub    *notify.Hub[model.Cart]
}

// New builds a Store holding an empty cart.
func New(a API, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api: a,
		log: log.Named("cart"),
		cur: model.EmptyCart(),
		hub: notify.NewHub(model.Cart.Clone),
	}
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Subscribe registers fn for every replacement of the cart.
func (s *Store) Subscribe(fn func(model.Cart)) (unsubscribe func()) { return s.hub.Subscribe(fn) }

// Close detaches the store. Responses arriving afterwards are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
}

// commit is the only place the cart changes. next receives the previous cart and
// returns the replacement; TotalItems is recomputed from its items.
func (s *Store) commit(next func(prev model.Cart) model.Cart) (model.Cart, error) {
	s.pub.Lock()
	defer s.pub.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Cart{}, errs.ErrClosed
	}
	c := next(s.cur)
	c = model.NewCart(c.ID, c.Items)
	s.cur = c
	s.mu.Unlock()

	s.hub.Publish(c)
	return c.Clone(), nil
}

func replace(c model.Cart) func(model.Cart) model.Cart {
	return func(model.Cart) model.Cart { return c }
}

// Fetch loads the session's cart. Any failure or a missing cart yields an empty cart,
// except when ctx is done: the caller has gone away and the cart is left as it is.
func (s *Store) Fetch(ctx context.Context) model.Cart {
	if ctx.Err() != nil {
		return s.Snapshot()
	}
	c, ok, err := s.api.GetCart(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		s.log.Debug("fetch abandoned", zap.Error(err))
		return s.Snapshot()
	case err != nil:
		s.logFailure("fetch", err)
		c = model.EmptyCart()
	case !ok:
		c = model.EmptyCart()
	}
	out, cerr := s.commit(replace(c))
	if cerr != nil {
		return c
	}
	return out
}

// Clear resets the cart locally without calling the backend.
func (s *Store) Clear() {
	_, _ = s.commit(func(model.Cart) model.Cart { return model.EmptyCart() })
}

// Add adds one unit of productID. On failure the cart is left untouched.
func (s *Store) Add(ctx context.Context, productID string) (model.Cart, error) {
	if productID == "" {
		return s.Snapshot(), errs.Validation("productId", "productId is required")
	}
	c, err := s.api.AddToCart(ctx, productID)
	if err != nil {
		return s.Snapshot(), s.failure("add", err, MsgAddFailed)
	}
	return s.commit(replace(c))
}

// Update sets the absolute quantity of productID. Quantities below 1 are refused
// without a request; removal is the only way to zero.
func (s *Store) Update(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	if productID == "" {
		return s.Snapshot(), errs.Validation("productId", "productId is required")
	}
	if quantity < 1 {
		return s.Snapshot(), errs.Validation("quantity", "quantity must be at least 1")
	}
	c, err := s.api.UpdateCart(ctx, productID, quantity)
	if err != nil {
		return s.Snapshot(), s.failure("update", err, MsgUpdateFailed)
	}
	return s.commit(replace(c))
}

// Remove deletes the line for productID. When the server acknowledges without a
// cart, the line is filtered out of the current snapshot instead.
func (s *Store) Remove(ctx context.Context, productID string) (model.Cart, error) {
	if productID == "" {
		return s.Snapshot(), errs.Validation("productId", "productId is required")
	}
	c, ok, err := s.api.RemoveFromCart(ctx, productID)
	if err != nil {
		return s.Snapshot(), s.failure("remove", err, MsgRemoveFailed)
	}
	if ok {
		return s.commit(replace(c))
	}
	s.log.Debug("remove returned no cart, filtering locally", zap.String("product_id", productID))
	return s.commit(func(prev model.Cart) model.Cart { return prev.Without(productID) })
}

func (s *Store) failure(op string, err error, def string) error {
	s.logFailure(op, err)
	if errors.Is(err, errs.ErrTransport) {
		def = MsgNetworkFailed
	}
	return errs.WithDefault(err, def)
}

func (s *Store) logFailure(op string, err error) {
	if errors.Is(err, errs.ErrTransport) {
		s.log.Error(op+" failed", zap.Error(err))
		return
	}
	s.log.Warn(op+" rejected", zap.Error(err), zap.String("message", errs.Message(err)))
}
