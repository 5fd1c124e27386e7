package checkout_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/restaurant-client/internal/apitest"
	"github.com/and161185/restaurant-client/internal/cart"
	"github.com/and161185/restaurant-client/internal/checkout"
	"github.com/and161185/restaurant-client/internal/errs"
)

type fixture struct {
	srv  *apitest.Server
	cart *cart.Store
	svc  *checkout.Service
	nav  chan string
}

func setup(t *testing.T, delay time.Duration) fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.Seed()
	c := srv.Client(t)
	log := zaptest.NewLogger(t)

	cs := cart.New(c, log)
	t.Cleanup(cs.Close)
	nav := make(chan string, 4)
	svc := checkout.New(c, cs, checkout.NavigatorFunc(func(r string) { nav <- r }),
		checkout.Options{RedirectDelay: delay, HomeRoute: "/"}, log)
	t.Cleanup(svc.Close)
	return fixture{srv: srv, cart: cs, svc: svc, nav: nav}
}

var form = checkout.Form{Name: "Ann", Phone: "555-0100", Address: "1 Main St", Notes: "ring twice"}

func (f fixture) fill(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.cart.Add(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestPlace_Success(t *testing.T) {
	f := setup(t, 20*time.Millisecond)
	f.fill(t, "p1", "p1", "p3")

	r, err := f.svc.Place(context.Background(), form)
	require.NoError(t, err)
	require.NotEmpty(t, r.OrderID)
	require.Equal(t, "Order created", r.Message)
	require.True(t, r.Total.Equal(decimal.RequireFromString("35")), r.Total.String()) // 2×10 + 20 at 25% off
	require.Len(t, r.Items, 2)
	require.True(t, f.cart.Snapshot().Empty())

	orders := f.srv.Orders()
	require.Len(t, orders, 1)
	require.Equal(t, "Ann", orders[0].CustomerName)
	require.Equal(t, "ring twice", orders[0].Notes)
	require.Len(t, orders[0].Lines, 2)
	require.Equal(t, 8, f.srv.Stock("p1"))

	select {
	case route := <-f.nav:
		require.Equal(t, "/", route)
	case <-time.After(time.Second):
		t.Fatal("no redirect")
	}
}

func TestPlace_RequiredFields(t *testing.T) {
	f := setup(t, 0)
	f.fill(t, "p1")

	tests := []struct {
		name  string
		form  checkout.Form
		field string
	}{
		{"name", checkout.Form{Phone: "1", Address: "a"}, "customerName"},
		{"phone", checkout.Form{Name: "n", Phone: "  ", Address: "a"}, "customerPhone"},
		{"address", checkout.Form{Name: "n", Phone: "1"}, "customerAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Place(context.Background(), tt.form)
			var ve *errs.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
		})
	}
	require.Zero(t, f.srv.Hits(apitest.RouteCreateOrder))
	require.Equal(t, 1, f.cart.Snapshot().TotalItems)
}

func TestPlace_EmptyCart(t *testing.T) {
	f := setup(t, 0)
	_, err := f.svc.Place(context.Background(), form)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, checkout.MsgEmptyCart, errs.Message(err))
	require.Zero(t, f.srv.Hits(apitest.RouteCreateOrder))
}

func TestPlace_FailureKeepsCart(t *testing.T) {
	f := setup(t, 0)
	f.fill(t, "p2")

	f.srv.FailNext(apitest.RouteCreateOrder, http.StatusBadRequest, "Kitchen closed")
	_, err := f.svc.Place(context.Background(), form)
	require.Equal(t, "Kitchen closed", errs.Message(err))
	require.Equal(t, 1, f.cart.Snapshot().TotalItems)

	f.srv.FailNext(apitest.RouteCreateOrder, http.StatusInternalServerError, "")
	_, err = f.svc.Place(context.Background(), form)
	require.Equal(t, checkout.MsgOrderFailed, errs.Message(err))
	require.Equal(t, 1, f.cart.Snapshot().TotalItems)

	select {
	case <-f.nav:
		t.Fatal("redirect after failure")
	default:
	}
}

func TestClose_CancelsRedirect(t *testing.T) {
	f := setup(t, 50*time.Millisecond)
	f.fill(t, "p1")
	_, err := f.svc.Place(context.Background(), form)
	require.NoError(t, err)
	f.svc.Close()

	select {
	case <-f.nav:
		t.Fatal("redirect after close")
	case <-time.After(150 * time.Millisecond):
	}
}
