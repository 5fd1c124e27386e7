package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/restaurant-client/internal/apitest"
)

type cli struct {
	t   *testing.T
	srv *apitest.Server
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.Seed()
	dir := t.TempDir()
	t.Setenv("DINE_SESSION_DIR", dir)
	t.Setenv("DINE_CONFIG", "")
	t.Setenv("DINE_CHECKOUT_REDIRECT_DELAY", "0s")
	return &cli{t: t, srv: srv, dir: dir}
}

func (c *cli) run(args ...string) (code int, stdout, stderr string) {
	c.t.Helper()
	var out, errb bytes.Buffer
	full := append([]string{"-base-url", c.srv.URL}, args...)
	code = run(context.Background(), full, &out, &errb)
	return code, out.String(), errb.String()
}

func (c *cli) ok(v any, args ...string) {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, exitOK, code, "stderr: %s", errOut)
	if v != nil {
		require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
	}
}

func Test_version_and_usage(t *testing.T) {
	var out, errb bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), []string{"version"}, &out, &errb))
	require.True(t, strings.HasPrefix(out.String(), "dine "))

	require.Equal(t, exitUsage, run(context.Background(), nil, &out, &errb))

	c := newCLI(t)
	code, _, errOut := c.run("frobnicate")
	require.Equal(t, exitUsage, code)
	require.Contains(t, errOut, "Usage:")
}

func Test_menu_and_featured(t *testing.T) {
	c := newCLI(t)

	var groups []groupView
	c.ok(&groups, "menu")
	require.Len(t, groups, 2)
	require.Equal(t, "Mains", groups[0].Category)

	var featured []productView
	c.ok(&featured, "featured")
	require.Len(t, featured, 1)
	require.Equal(t, "p3", featured[0].ID)
	require.Equal(t, "15", featured[0].FinalPrice.String())
	require.True(t, featured[0].DiscountPercent.Set)
	require.Equal(t, "25", featured[0].DiscountPercent.Value.String())

	code, _, errOut := c.run("product", "-id", "missing")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "Product not found")
}

func Test_session_persists_between_runs(t *testing.T) {
	c := newCLI(t)

	var res struct {
		Landing string `json:"landing"`
	}
	c.ok(&res, "login", "-email", "bob@example.com", "-password", "secret1")
	require.Equal(t, "/", res.Landing)
	require.FileExists(t, filepath.Join(c.dir, "session.json"))

	var snap struct {
		Identity *struct {
			ID string `json:"id"`
		} `json:"identity"`
	}
	c.ok(&snap, "whoami")
	require.NotNil(t, snap.Identity)
	require.Equal(t, "u-user", snap.Identity.ID)

	c.ok(nil, "logout")
	snap.Identity = nil
	c.ok(&snap, "whoami")
	require.Nil(t, snap.Identity)
}

func Test_login_failure(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run("login", "-email", "bob@example.com", "-password", "nope")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "Invalid email or password")

	code, _, errOut = c.run("login", "-email", "bob", "-password", "x")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "email")
}

func Test_cart_flow_and_checkout(t *testing.T) {
	c := newCLI(t)

	var cv cartView
	c.ok(&cv, "add", "-id", "p1")
	require.Equal(t, 1, cv.TotalItems)
	c.ok(&cv, "inc", "-id", "p1")
	require.Equal(t, 2, cv.TotalItems)
	c.ok(&cv, "add", "-id", "p3")
	require.Equal(t, 3, cv.TotalItems)
	require.Equal(t, "35", cv.Total.String())

	c.ok(&cv, "set", "-id", "p1", "-qty", "1")
	require.Equal(t, 2, cv.TotalItems)

	code, _, errOut := c.run("dec", "-id", "p1")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "quantity must be at least 1")

	c.ok(&cv, "cart")
	require.Equal(t, 2, cv.TotalItems)

	code, _, errOut = c.run("checkout", "-name", "Ann", "-phone", "1")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "customerAddress")

	var receipt struct {
		OrderID  string `json:"orderId"`
		Redirect string `json:"redirect"`
	}
	c.ok(&receipt, "checkout", "-name", "Ann", "-phone", "1", "-address", "Main St")
	require.NotEmpty(t, receipt.OrderID)
	require.Equal(t, "/", receipt.Redirect)

	c.ok(&cv, "cart")
	require.Zero(t, cv.TotalItems)
	require.Len(t, c.srv.Orders(), 1)

	c.ok(&cv, "add", "-id", "p2")
	c.ok(&cv, "rm", "-id", "p2")
	require.Zero(t, cv.TotalItems)
}

func Test_admin_requires_admin(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run("orders")
	require.Equal(t, exitRedirect, code)
	require.Contains(t, errOut, "redirect: /")

	c.ok(nil, "login", "-email", "bob@example.com", "-password", "secret1")
	code, _, _ = c.run("admin-products")
	require.Equal(t, exitRedirect, code)
}

func Test_admin_flow(t *testing.T) {
	c := newCLI(t)
	var res struct {
		Landing string `json:"landing"`
	}
	c.ok(&res, "login", "-email", "admin@example.com", "-password", "secret1")
	require.Equal(t, "/admin/products", res.Landing)

	img := filepath.Join(t.TempDir(), "cake.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))

	var p productView
	c.ok(&p, "admin-add", "-name", "Cake", "-desc", "Chocolate", "-price", "4.50",
		"-stock", "5", "-category", "Desserts", "-discount", "10", "-image", img)
	require.Equal(t, "Desserts", p.Category)
	require.Equal(t, "4.05", p.FinalPrice.String())

	code, _, errOut := c.run("admin-add", "-name", "Bad", "-desc", "x", "-price", "1", "-category", "X", "-discount", "150")
	require.Equal(t, exitErr, code)
	require.Contains(t, errOut, "discountPercent")

	c.ok(&p, "admin-update", "-id", p.ID, "-name", "Cake", "-desc", "Dark chocolate", "-price", "5", "-stock", "2")
	require.Equal(t, "Dark chocolate", p.Description)

	var ps []productView
	c.ok(&ps, "admin-products")
	require.Len(t, ps, 4)

	c.ok(nil, "admin-delete", "-id", p.ID)
	c.ok(&ps, "admin-products")
	require.Len(t, ps, 3)

	c.ok(nil, "add", "-id", "p1")
	c.ok(nil, "checkout", "-name", "Ann", "-phone", "1", "-address", "Main St")

	var orders []orderView
	c.ok(&orders, "orders")
	require.Len(t, orders, 1)
	require.Equal(t, "pending", string(orders[0].Status))

	c.ok(&orders, "order-status", "-id", orders[0].ID, "-status", "ready")
	require.Equal(t, "ready", string(orders[0].Status))

	code, _, _ = c.run("order-status", "-id", orders[0].ID, "-status", "lost")
	require.Equal(t, exitErr, code)

	c.ok(&orders, "order-delete", "-id", orders[0].ID)
	require.Empty(t, orders)
}

func Test_sealed_session_file(t *testing.T) {
	c := newCLI(t)
	t.Setenv("DINE_SESSION_PASSPHRASE", "hunter22")
	c.ok(nil, "login", "-email", "bob@example.com", "-password", "secret1")

	raw, err := os.ReadFile(filepath.Join(c.dir, "session.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"salt"`)

	// a wrong passphrase leaves the session anonymous rather than failing
	t.Setenv("DINE_SESSION_PASSPHRASE", "wrong")
	var snap struct {
		Identity any `json:"identity"`
	}
	c.ok(&snap, "whoami")
	require.Nil(t, snap.Identity)
}

func Test_missing_flags_reported_in_order(t *testing.T) {
	for i := 0; i < 20; i++ {
		err := need("order-status", flagValue{"id", ""}, flagValue{"status", " "})
		require.EqualError(t, err, "validation: id: order-status needs -id")
	}
	require.NoError(t, need("order-status", flagValue{"id", "o1"}, flagValue{"status", "ready"}))

	c := newCLI(t)
	code, _, errOut := c.run("order-status")
	require.NotEqual(t, exitOK, code)
	require.Contains(t, errOut, "order-status needs -id")
}
