// Package session holds the authenticated identity mirrored from the backend.
//
// States: loading → unauthenticated | authenticated(identity). The loading flag is
// cleared by the first completed Verify, Login, Register or Logout, whatever its
// outcome, and never set again.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/model"
	"github.com/and161185/restaurant-client/internal/notify"
	"github.com/and161185/restaurant-client/internal/validate"
)

// Landing routes after login.
const (
	RouteHome          = "/"
	RouteAdminProducts = "/admin/products"
)

// VerifyTimeout bounds a shared verify request, independent of any caller.
const VerifyTimeout = 15 * time.Second

// API is the subset of the backend the session needs.
type API interface {
	Verify(ctx context.Context) (model.Identity, error)
	SignIn(ctx context.Context, cr api.Credentials) (api.SignInResult, error)
	Register(ctx context.Context, r api.Registration) (*model.Identity, error)
	Logout(ctx context.Context) error
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Loading  bool            `json:"loading"`
	Identity *model.Identity `json:"identity"`
}

// IsAuthenticated reports whether an identity is present.
func (s Snapshot) IsAuthenticated() bool { return s.Identity != nil }

// IsAdmin is derived from the identity's normalized role; false when absent.
func (s Snapshot) IsAdmin() bool { return s.Identity != nil && s.Identity.IsAdmin() }

// IdentityID returns the identity id or "" when absent.
func (s Snapshot) IdentityID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

func (s Snapshot) clone() Snapshot {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

// Change is delivered to subscribers on every commit.
type Change struct {
	Prev Snapshot
	Next Snapshot
}

// IdentityChanged reports a transition between different identities (or to/from absent).
func (c Change) IdentityChanged() bool { return c.Prev.IdentityID() != c.Next.IdentityID() }

// LoginResult is a successful sign-in.
type LoginResult struct {
	Identity model.Identity `json:"identity"`
	Landing  string         `json:"landing"`
}

// Store is the session state container. Create with New; share the pointer.
type Store struct {
	api API
	log *zap.Logger
	val *validate.Validator

	pub sync.Mutex // serializes commit+publish
	mu  sync.Mutex
	cur Snapshot

	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
	flight    singleflight.Group
	hub       *notify.Hub[Change]
}

// New builds a Store in the loading state. Call Verify to resolve it.
func New(a API, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:   a,
		log:   log.Named("session"),
		val:   validate.New(),
		cur:   Snapshot{Loading: true},
		ready: make(chan struct{}),
		hub: notify.NewHub(func(c Change) Change {
			return Change{Prev: c.Prev.clone(), Next: c.Next.clone()}
		}),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// Ready is closed once the session left the loading state (or the store was closed).
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) { return s.hub.Subscribe(fn) }

// Close detaches the store: subscribers are dropped and late results are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	s.markReady()
}

func (s *Store) markReady() { s.readyOnce.Do(func() { close(s.ready) }) }

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// commit replaces the identity wholesale (nil clears it), leaves the loading state
// and notifies subscribers. It reports false when the store is closed.
func (s *Store) commit(id *model.Identity) bool {
	s.pub.Lock()
	defer s.pub.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	prev := s.cur
	next := Snapshot{}
	if id != nil {
		cp := *id
		cp.Role = model.NormalizeRole(string(cp.Role))
		next.Identity = &cp
	}
	s.cur = next
	s.mu.Unlock()
	s.markReady()

	s.hub.Publish(Change{Prev: prev, Next: next})
	return true
}

// Verify resolves the identity behind the ambient session cookie. Any failure leaves
// the session unauthenticated; concurrent calls share one request.
//
// The shared request runs detached from ctx under VerifyTimeout, so one caller
// giving up does not decide the outcome for the others. A caller whose ctx is done
// gets the current snapshot back and the session is left as it is.
func (s *Store) Verify(ctx context.Context) Snapshot {
	if ctx.Err() != nil {
		return s.Snapshot()
	}
	ch := s.flight.DoChan("verify", func() (any, error) {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), VerifyTimeout)
		defer cancel()
		s.verify(vctx)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
	return s.Snapshot()
}

// Refresh is Verify under the name views use after login elsewhere.
func (s *Store) Refresh(ctx context.Context) Snapshot { return s.Verify(ctx) }

func (s *Store) verify(ctx context.Context) {
	defer s.markReady()

	id, err := s.api.Verify(ctx)
	if err != nil {
		s.logFailure("verify", err)
		s.commit(nil)
		return
	}
	s.commit(&id)
}

// Login signs in. On failure the current identity is left untouched and the error
// carries the server message, if any.
func (s *Store) Login(ctx context.Context, cr api.Credentials) (LoginResult, error) {
	if err := s.val.Struct(cr); err != nil {
		return LoginResult{}, err
	}
	if s.isClosed() {
		return LoginResult{}, errs.ErrClosed
	}
	res, err := s.api.SignIn(ctx, cr)
	if err != nil {
		s.logFailure("login", err)
		return LoginResult{}, errs.WithDefault(err, "Login failed")
	}
	id, err := s.resolve(ctx, res.Identity)
	if err != nil {
		return LoginResult{}, err
	}
	if !s.commit(&id) {
		return LoginResult{}, errs.ErrClosed
	}
	landing := res.Redirect
	if landing == "" {
		landing = RouteHome
		if id.IsAdmin() || model.NormalizeRole(res.Role) == model.RoleAdmin {
			landing = RouteAdminProducts
		}
	}
	return LoginResult{Identity: id, Landing: landing}, nil
}

// Register creates an account and signs in with it. A rejection carries the
// server message; a transport failure carries none.
func (s *Store) Register(ctx context.Context, r api.Registration) (model.Identity, error) {
	if err := s.val.Struct(r); err != nil {
		return model.Identity{}, err
	}
	if s.isClosed() {
		return model.Identity{}, errs.ErrClosed
	}
	embedded, err := s.api.Register(ctx, r)
	if err != nil {
		s.logFailure("register", err)
		if errors.Is(err, errs.ErrTransport) {
			return model.Identity{}, err
		}
		return model.Identity{}, errs.WithDefault(err, "Register failed")
	}
	id, err := s.resolve(ctx, embedded)
	if err != nil {
		return model.Identity{}, err
	}
	if !s.commit(&id) {
		return model.Identity{}, errs.ErrClosed
	}
	return id, nil
}

// resolve returns the embedded identity or asks the backend when the response had none.
func (s *Store) resolve(ctx context.Context, embedded *model.Identity) (model.Identity, error) {
	if embedded != nil {
		return *embedded, nil
	}
	id, err := s.api.Verify(ctx)
	if err != nil {
		s.logFailure("verify after sign-in", err)
		return model.Identity{}, fmt.Errorf("signed in but identity unavailable: %w", err)
	}
	return id, nil
}

// Logout asks the backend to end the session and then clears the local identity,
// whatever the backend answered. The returned error is informational only.
func (s *Store) Logout(ctx context.Context) (err error) {
	defer func() { s.commit(nil) }()

	if err = s.api.Logout(ctx); err != nil {
		s.logFailure("logout", err)
	}
	return err
}

func (s *Store) logFailure(op string, err error) {
	switch {
	case errors.Is(err, errs.ErrTransport):
		s.log.Error(op+" failed", zap.Error(err))
	case errs.IsAuthorization(err):
		s.log.Debug(op+" not authorized", zap.Error(err))
	default:
		s.log.Warn(op+" rejected", zap.Error(err), zap.String("message", errs.Message(err)))
	}
}
