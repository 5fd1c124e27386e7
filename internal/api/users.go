package api

import (
	"context"
	"net/http"

	"github.com/and161185/restaurant-client/internal/convert"
	"github.com/and161185/restaurant-client/internal/model"
)

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignInResult is what /users/signin reports on success.
// Identity is nil when the response did not embed the user.
type SignInResult struct {
	Identity *model.Identity
	Role     string
	Redirect string
}

type userEnvelope struct {
	User     *convert.User `json:"user"`
	Role     string        `json:"role"`
	Redirect string        `json:"redirect"`
}

func (e userEnvelope) identity() *model.Identity {
	if e.User == nil {
		return nil
	}
	id := convert.ToIdentity(*e.User)
	return &id
}

// Verify resolves the identity behind the current session cookie.
func (c *Client) Verify(ctx context.Context) (model.Identity, error) {
	const path = "/users/verify"
	var env userEnvelope
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return model.Identity{}, err
	}
	id := env.identity()
	if id == nil {
		return model.Identity{}, errMissing(http.MethodGet, path, "user")
	}
	return *id, nil
}

// SignIn authenticates and stores the session cookie in the jar.
func (c *Client) SignIn(ctx context.Context, cr Credentials) (SignInResult, error) {
	var env userEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/users/signin", cr, &env); err != nil {
		return SignInResult{}, err
	}
	return SignInResult{Identity: env.identity(), Role: env.Role, Redirect: env.Redirect}, nil
}

// Register creates an account. The identity is nil when the response did not embed it.
func (c *Client) Register(ctx context.Context, r Registration) (*model.Identity, error) {
	var env userEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/users/register", r, &env); err != nil {
		return nil, err
	}
	return env.identity(), nil
}

// Logout invalidates the session server-side and expires the local session
// cookies whatever the backend answered.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ForgetSession()
	return c.doJSON(ctx, http.MethodPost, "/users/logout", nil, nil)
}
