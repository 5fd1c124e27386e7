package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/session"
)

type fakeSessions struct {
	ready chan struct{}
	snap  session.Snapshot
}

func (f *fakeSessions) Ready() <-chan struct{}    { return f.ready }
func (f *fakeSessions) Snapshot() session.Snapshot { return f.snap }

func identity(role string) *model.Identity {
	id := model.NewIdentity("u1", "Ann", "ann@example.com", role)
	return &id
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		snap   session.Snapshot
		access Access
		want   Decision
	}{
		{"public anonymous", session.Snapshot{}, Public, Allow},
		{"auth anonymous", session.Snapshot{}, Authenticated, Deny},
		{"auth user", session.Snapshot{Identity: identity("user")}, Authenticated, Allow},
		{"admin user", session.Snapshot{Identity: identity("user")}, Admin, Deny},
		{"admin admin", session.Snapshot{Identity: identity(" ADMIN")}, Admin, Allow},
		{"admin anonymous", session.Snapshot{}, Admin, Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Evaluate(tt.snap, tt.access))
		})
	}
}

func TestCheck_WaitsForLoading(t *testing.T) {
	fs := &fakeSessions{ready: make(chan struct{}), snap: session.Snapshot{Loading: true}}
	g := New(fs)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Check(ctx, Admin)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	d, err := g.Check(context.Background(), Public)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	fs.snap = session.Snapshot{Identity: identity("admin")}
	close(fs.ready)
	d, err = g.Check(context.Background(), Admin)
	require.NoError(t, err)
	require.Equal(t, Allow, d)
}

func TestHandle(t *testing.T) {
	require.Equal(t, Deny, Handle(&api.Error{Status: 401}))
	require.Equal(t, Deny, Handle(&api.Error{Status: 403}))
	require.Equal(t, Allow, Handle(&api.Error{Status: 404}))
	require.Equal(t, Allow, Handle(nil))
}

func TestRun(t *testing.T) {
	ready := make(chan struct{})
	close(ready)
	g := New(&fakeSessions{ready: ready, snap: session.Snapshot{Identity: identity("admin")}})
	ctx := context.Background()

	v, err := Run(ctx, g, Admin, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)

	_, err = Run(ctx, g, Admin, func(context.Context) (int, error) { return 0, &api.Error{Status: 403} })
	require.ErrorIs(t, err, ErrRedirect)
	require.ErrorIs(t, err, errs.ErrForbidden)

	boom := errors.New("boom")
	_, err = Run(ctx, g, Admin, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrRedirect)

	anon := New(&fakeSessions{ready: ready})
	called := false
	_, err = Run(ctx, anon, Admin, func(context.Context) (int, error) { called = true; return 0, nil })
	require.ErrorIs(t, err, ErrRedirect)
	require.False(t, called)
}
