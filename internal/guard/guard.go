// Package guard decides whether a view may be shown for the current session.
package guard

import (
	"context"
	"errors"

	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/session"
)

// RouteFallback is where unauthorized visitors are sent.
const RouteFallback = "/"

// Access is the level a view requires.
type Access int

const (
	Public Access = iota
	Authenticated
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Decision is either Allowed or a redirect target.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Allow and Deny are the two possible decisions.
var (
	Allow = Decision{Allowed: true}
	Deny  = Decision{Redirect: RouteFallback}
)

// ErrRedirect is returned by Run when the caller must navigate away.
var ErrRedirect = errors.New("redirect")

// Sessions is what the guard reads from the session store.
type Sessions interface {
	Ready() <-chan struct{}
	Snapshot() session.Snapshot
}

// Guard evaluates access rules against a session.
type Guard struct {
	sessions Sessions
}

// New returns a Guard over s.
func New(s Sessions) *Guard { return &Guard{sessions: s} }

// Check waits for the session to finish loading and evaluates access.
func (g *Guard) Check(ctx context.Context, access Access) (Decision, error) {
	if access == Public {
		return Allow, nil
	}
	select {
	case <-g.sessions.Ready():
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
	return Evaluate(g.sessions.Snapshot(), access), nil
}

// Evaluate is the pure access rule.
func Evaluate(s session.Snapshot, access Access) Decision {
	switch access {
	case Public:
		return Allow
	case Authenticated:
		if s.IsAuthenticated() {
			return Allow
		}
	case Admin:
		if s.IsAdmin() {
			return Allow
		}
	}
	return Deny
}

// Handle maps an operation error to a decision: authorization failures redirect.
func Handle(err error) Decision {
	if errs.IsAuthorization(err) {
		return Deny
	}
	return Allow
}

// Run checks access, runs fn and converts authorization failures into ErrRedirect.
func Run[T any](ctx context.Context, g *Guard, access Access, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	d, err := g.Check(ctx, access)
	if err != nil {
		return zero, err
	}
	if !d.Allowed {
		return zero, ErrRedirect
	}
	v, err := fn(ctx)
	if err != nil && !Handle(err).Allowed {
		return zero, errors.Join(ErrRedirect, err)
	}
	return v, err
}
