// Package checkout turns the current cart into an order.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/validate"
)

// Default messages.
const (
	MsgOrderFailed = "Failed to create order"
	MsgEmptyCart   = "Your cart is empty"
	MsgPlaced      = "Order placed successfully"
)

// Form is what the customer fills in.
type Form struct {
	Name    string `json:"customerName" validate:"required"`
	Phone   string `json:"customerPhone" validate:"required"`
	Address string `json:"customerAddress" validate:"required"`
	Notes   string `json:"notes"`
}

func (f Form) trimmed() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
		Notes:   strings.TrimSpace(f.Notes),
	}
}

// Receipt describes a placed order.
type Receipt struct {
	OrderID  string           `json:"orderId"`
	Message  string           `json:"message"`
	Total    decimal.Decimal  `json:"total"`
	Items    []model.LineItem `json:"items"`
	Redirect string           `json:"redirect"`
}

// API places orders.
type API interface {
	CreateOrder(ctx context.Context, r api.OrderRequest) (api.OrderPlaced, error)
}

// Cart is the part of the cart store checkout reads and clears.
type Cart interface {
	Snapshot() model.Cart
	Clear()
}

// Navigator moves the view to a route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Options tune the post-order redirect.
type Options struct {
	RedirectDelay time.Duration
	HomeRoute     string
}

// Service runs the checkout workflow.
type Service struct {
	api  API
	cart Cart
	nav  Navigator
	opts Options
	log  *zap.Logger
	val  *validate.Validator

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

// New builds a Service. nav may be nil when no navigation is wanted.
func New(a API, c Cart, nav Navigator, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HomeRoute == "" {
		opts.HomeRoute = "/"
	}
	return &Service{api: a, cart: c, nav: nav, opts: opts, log: log.Named("checkout"), val: validate.New()}
}

// Place validates the form, submits the cart as an order and, on success, clears
// the cart and schedules navigation home. On failure the cart is kept.
func (s *Service) Place(ctx context.Context, f Form) (Receipt, error) {
	f = f.trimmed()
	if err := s.val.Struct(f); err != nil {
		return Receipt{}, err
	}
	c := s.cart.Snapshot()
	if c.Empty() {
		return Receipt{}, errs.Validation("items", MsgEmptyCart)
	}

	req := api.OrderRequest{
		CustomerName:    f.Name,
		CustomerPhone:   f.Phone,
		CustomerAddress: f.Address,
		Notes:           f.Notes,
		Items:           make([]api.OrderLine, 0, len(c.Items)),
	}
	for _, it := range c.Items {
		req.Items = append(req.Items, api.OrderLine{ProductID: it.Product.ID, Quantity: it.Quantity})
	}
	if err := s.val.Struct(req); err != nil {
		return Receipt{}, err
	}

	placed, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		if errors.Is(err, errs.ErrTransport) {
			s.log.Error("create order failed", zap.Error(err))
		} else {
			s.log.Warn("create order rejected", zap.Error(err), zap.String("message", errs.Message(err)))
		}
		return Receipt{}, errs.WithDefault(err, MsgOrderFailed)
	}
	s.log.Info("order placed", zap.String("order_id", placed.OrderID), zap.Int("items", c.TotalItems))

	s.cart.Clear()
	s.scheduleRedirect()

	msg := placed.Message
	if msg == "" {
		msg = MsgPlaced
	}
	return Receipt{
		OrderID:  placed.OrderID,
		Message:  msg,
		Total:    c.Subtotal(),
		Items:    c.Items,
		Redirect: s.opts.HomeRoute,
	}, nil
}

func (s *Service) scheduleRedirect() {
	if s.nav == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	home := s.opts.HomeRoute
	if s.opts.RedirectDelay <= 0 {
		s.pending = nil
		go s.nav.Navigate(home)
		return
	}
	s.pending = time.AfterFunc(s.opts.RedirectDelay, func() { s.nav.Navigate(home) })
}

// Close cancels a pending redirect.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
