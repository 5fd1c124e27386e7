package cart_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/restaurant-client/internal/apitest"
	"github.com/and161185/restaurant-client/internal/cart"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
)

func newStore(t *testing.T) (*cart.Store, *apitest.Server) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.Seed()
	st := cart.New(srv.Client(t), zaptest.NewLogger(t))
	t.Cleanup(st.Close)
	return st, srv
}

// fakeAPI lets a test script backend answers directly.
type fakeAPI struct {
	get    func() (model.Cart, bool, error)
	add    func(id string) (model.Cart, error)
	update func(id string, q int) (model.Cart, error)
	remove func(id string) (model.Cart, bool, error)
}

func (f *fakeAPI) GetCart(context.Context) (model.Cart, bool, error) { return f.get() }
func (f *fakeAPI) AddToCart(_ context.Context, id string) (model.Cart, error) {
	return f.add(id)
}
func (f *fakeAPI) UpdateCart(_ context.Context, id string, q int) (model.Cart, error) {
	return f.update(id, q)
}
func (f *fakeAPI) RemoveFromCart(_ context.Context, id string) (model.Cart, bool, error) {
	return f.remove(id)
}

func line(id string, q int) model.LineItem {
	return model.LineItem{Product: model.Product{ID: id}, Quantity: q}
}

func TestFetch_MissingCartIsEmpty(t *testing.T) {
	st, _ := newStore(t)
	c := st.Fetch(context.Background())
	require.True(t, c.Empty())
	require.Zero(t, c.TotalItems)
}

func TestFetch_FailureIsEmpty(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	_, err := st.Add(ctx, "p1")
	require.NoError(t, err)

	srv.FailNext(apitest.RouteGetCart, http.StatusInternalServerError, "down")
	c := st.Fetch(ctx)
	require.True(t, c.Empty())
	require.True(t, st.Snapshot().Empty())
}

func TestAdd_EmptyCart(t *testing.T) {
	st, _ := newStore(t)
	c, err := st.Add(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, 1, c.TotalItems)
	require.Equal(t, "Burger", c.Items[0].Product.Name)
}

func TestUpdate_SetsAbsoluteQuantity(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := st.Add(ctx, "p1")
		require.NoError(t, err)
	}
	require.Equal(t, 2, st.Snapshot().Quantity("p1"))

	c, err := st.Update(ctx, "p1", 5)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, 5, c.Quantity("p1"))
	require.Equal(t, 5, c.TotalItems)
}

func TestUpdate_BelowOneIsRefusedLocally(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	_, err := st.Add(ctx, "p1")
	require.NoError(t, err)

	for _, q := range []int{0, -1} {
		_, err = st.Update(ctx, "p1", q)
		require.ErrorIs(t, err, errs.ErrValidation)
	}
	require.Zero(t, srv.Hits(apitest.RouteUpdateCart))
	require.Equal(t, 1, st.Snapshot().TotalItems)
}

func TestRemove_FallbackWithoutPayload(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"p1", "p1", "p1", "p2"} {
		_, err := st.Add(ctx, id)
		require.NoError(t, err)
	}
	require.Equal(t, 4, st.Snapshot().TotalItems)

	srv.OmitRemovePayload(true)
	c, err := st.Remove(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, c.TotalItems)
	require.Len(t, c.Items, 1)
	require.Equal(t, "p2", c.Items[0].Product.ID)

	// fallback and server replace agree
	srv.OmitRemovePayload(false)
	require.Equal(t, c.TotalItems, st.Fetch(ctx).TotalItems)
}

func TestRemove_FallbackMatchesServerShape(t *testing.T) {
	prev := model.NewCart("c1", []model.LineItem{line("a", 3), line("b", 1)})
	server := model.NewCart("c1", []model.LineItem{line("b", 1)})

	viaServer := cart.New(&fakeAPI{
		get:    func() (model.Cart, bool, error) { return prev, true, nil },
		remove: func(string) (model.Cart, bool, error) { return server, true, nil },
	}, nil)
	viaFallback := cart.New(&fakeAPI{
		get:    func() (model.Cart, bool, error) { return prev, true, nil },
		remove: func(string) (model.Cart, bool, error) { return model.Cart{}, false, nil },
	}, nil)

	ctx := context.Background()
	viaServer.Fetch(ctx)
	viaFallback.Fetch(ctx)
	a, err := viaServer.Remove(ctx, "a")
	require.NoError(t, err)
	b, err := viaFallback.Remove(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAdd_RejectionKeepsCart(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := st.Add(ctx, "p2")
		require.NoError(t, err)
	}
	before := st.Snapshot()

	c, err := st.Add(ctx, "p2")
	require.ErrorIs(t, err, errs.ErrRejected)
	require.Equal(t, "Out of stock", errs.Message(err))
	require.Equal(t, before, c)
	require.Equal(t, before, st.Snapshot())

	res := cart.ResultOf(err)
	require.False(t, res.OK)
	require.Equal(t, "Out of stock", res.Message)
}

func TestMutationFailureMessages(t *testing.T) {
	transport := errors.Join(errs.ErrTransport, errors.New("dial tcp: refused"))
	st := cart.New(&fakeAPI{
		add:    func(string) (model.Cart, error) { return model.Cart{}, transport },
		update: func(string, int) (model.Cart, error) { return model.Cart{}, errs.ErrRejected },
		remove: func(string) (model.Cart, bool, error) { return model.Cart{}, false, errs.ErrNotFound },
	}, nil)
	ctx := context.Background()

	_, err := st.Add(ctx, "x")
	require.Equal(t, cart.MsgNetworkFailed, errs.Message(err))
	_, err = st.Update(ctx, "x", 2)
	require.Equal(t, cart.MsgUpdateFailed, errs.Message(err))
	_, err = st.Remove(ctx, "x")
	require.Equal(t, cart.MsgRemoveFailed, errs.Message(err))
	require.True(t, st.Snapshot().Empty())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	_, err := st.Add(ctx, "p2")
	require.NoError(t, err)
	before := st.Snapshot().TotalItems

	_, err = st.Add(ctx, "p1")
	require.NoError(t, err)
	c, err := st.Remove(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, before, c.TotalItems)
}

func TestClearIsLocal(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	_, err := st.Add(ctx, "p1")
	require.NoError(t, err)
	hits := srv.Hits(apitest.RouteGetCart) + srv.Hits(apitest.RouteRemove)

	st.Clear()
	require.True(t, st.Snapshot().Empty())
	require.Equal(t, hits, srv.Hits(apitest.RouteGetCart)+srv.Hits(apitest.RouteRemove))
}

func TestConcurrentMutationsConvergeToServerCart(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	st.Fetch(ctx) // establishes the anonymous session cookie

	// hold the first add so the second response arrives first
	srv.SetDelay(func(route string, n int) time.Duration {
		if route == apitest.RouteAddToCart && n == 1 {
			return 200 * time.Millisecond
		}
		return 0
	})

	var mu sync.Mutex
	var seen []model.Cart
	unsub := st.Subscribe(func(c model.Cart) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c)
	})
	defer unsub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := st.Add(gctx, "p1"); return err })
	time.Sleep(30 * time.Millisecond)
	g.Go(func() error { _, err := st.Add(gctx, "p2"); return err })
	require.NoError(t, g.Wait())

	final := st.Snapshot()
	require.True(t, final.Consistent())
	// the delayed response was generated before the second add was applied
	require.Equal(t, 1, final.TotalItems)
	require.Equal(t, 1, final.Quantity("p1"))

	unsub()
	mu.Lock()
	published := append([]model.Cart(nil), seen...)
	mu.Unlock()
	require.Len(t, published, 2)
	for _, c := range published {
		require.True(t, c.Consistent())
	}

	require.Equal(t, 2, st.Fetch(ctx).TotalItems)
}

func TestFetch_CancelledCallerKeepsCart(t *testing.T) {
	st, srv := newStore(t)
	ctx := context.Background()
	st.Fetch(ctx)
	_, err := st.Add(ctx, "p1")
	require.NoError(t, err)

	done, cancel := context.WithCancel(ctx)
	cancel()
	c := st.Fetch(done)
	require.Equal(t, 1, c.TotalItems)
	require.Equal(t, 1, st.Snapshot().TotalItems)

	srv.SetDelay(func(route string, _ int) time.Duration {
		if route == apitest.RouteGetCart {
			return 200 * time.Millisecond
		}
		return 0
	})
	short, cancelShort := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancelShort()
	c = st.Fetch(short)
	require.Equal(t, 1, c.TotalItems)
	require.Equal(t, 1, st.Snapshot().Quantity("p1"))
}

func TestConcurrentMutationsNeverCorrupt(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	st.Fetch(ctx)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		id := []string{"p1", "p2"}[i%2]
		g.Go(func() error {
			if _, err := st.Add(ctx, id); err != nil && !errors.Is(err, errs.ErrRejected) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.True(t, st.Snapshot().Consistent())
}

func TestCloseDropsLateResponses(t *testing.T) {
	release := make(chan struct{})
	st := cart.New(&fakeAPI{
		add: func(id string) (model.Cart, error) {
			<-release
			return model.NewCart("c", []model.LineItem{line(id, 1)}), nil
		},
	}, nil)

	called := false
	st.Subscribe(func(model.Cart) { called = true })

	done := make(chan error, 1)
	go func() {
		_, err := st.Add(context.Background(), "late")
		done <- err
	}()
	st.Close()
	close(release)

	require.ErrorIs(t, <-done, errs.ErrClosed)
	require.False(t, called)
	require.True(t, st.Snapshot().Empty())
}
