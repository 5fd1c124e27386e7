// Command dine is a command-line client for the restaurant ordering backend.
// Every subcommand is one customer or admin action; output is JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/restaurant-client/internal/api"
	"github.com/and161185/restaurant-client/internal/catalog"
	"github.com/and161185/restaurant-client/internal/checkout"
	"github.com/and161185/restaurant-client/internal/config"
	"github.com/and161185/restaurant-client/internal/credstore"
	"github.com/and161185/restaurant-client/internal/errs"
	"github.com/and161185/restaurant-client/internal/guard"
	"github.com/and161185/restaurant-client/internal/storefront"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK       = 0
	exitErr      = 1
	exitUsage    = 2
	exitRedirect = 3
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprint(w, `dine CLI
Usage:
  dine [-config file] [-base-url URL] [-v] <cmd> [args]

Account:
  version
  whoami
  login      -email <email> -password <password>
  register   -name <name> -email <email> -password <password>
  logout

Menu:
  menu       [-category <name>]
  featured
  product    -id <id>
  categories

Cart:
  cart
  add        -id <product>
  inc        -id <product>
  dec        -id <product>
  set        -id <product> -qty <n>
  rm         -id <product>
  checkout   -name <name> -phone <phone> -address <address> [-notes <text>]

Admin:
  admin-products
  admin-add     -name -desc -price -stock -category [-discount] [-featured] [-sale] [-image file]
  admin-update  -id <product> -name -desc -price -stock [-category-id] [-discount] [-featured] [-sale] [-image file]
  admin-delete  -id <product>
  orders
  order-status  -id <order> -status <pending|confirmed|preparing|ready|delivered|cancelled>
  order-delete  -id <order>
`)
}

// app is what every subcommand gets.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	out   io.Writer
	sf    *storefront.Storefront
	creds *credstore.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, wires the storefront and dispatches one subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	gf := flag.NewFlagSet("dine", flag.ContinueOnError)
	gf.SetOutput(stderr)
	cfgPath := gf.String("config", os.Getenv("DINE_CONFIG"), "config file (YAML)")
	baseURL := gf.String("base-url", "", "backend URL (overrides config)")
	verbose := gf.Bool("v", false, "debug logging")
	gf.Usage = func() { usage(stderr) }
	if err := gf.Parse(args); err != nil {
		return exitUsage
	}
	if gf.NArg() < 1 {
		usage(stderr)
		return exitUsage
	}
	cmd, rest := gf.Arg(0), gf.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "dine %s (%s)\n", version, buildDate)
		return exitOK
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitErr
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	log, err := newLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitErr
	}
	defer func() { _ = log.Sync() }()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			fmt.Fprintln(stderr, "internal error")
			code = exitErr
		}
	}()

	client, err := api.New(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Logger:    log,
	})
	if err != nil {
		return fail(stderr, err)
	}

	creds := credstore.New(cfg.Session.Dir, cfg.Session.Passphrase)
	if n, err := creds.Load(client.Jar(), client.BaseURL()); err != nil {
		log.Warn("session file ignored", zap.Error(err))
	} else {
		log.Debug("session restored", zap.Int("cookies", n))
	}

	sf := storefront.New(client, storefront.Options{
		Checkout: checkout.Options{RedirectDelay: cfg.Checkout.RedirectDelay, HomeRoute: cfg.Checkout.HomeRoute},
		Catalog: catalog.Options{
			FeaturedCategory: cfg.Catalog.FeaturedCategory,
			FeaturedLimit:    cfg.Catalog.FeaturedLimit,
		},
		SyncTimeout: cfg.API.Timeout,
	}, log)
	defer sf.Close()

	a := &app{cfg: cfg, log: log, out: stdout, sf: sf, creds: creds}

	ctx, cancel := context.WithTimeout(ctx, 2*cfg.API.Timeout+5*time.Second)
	defer cancel()

	err = a.dispatch(ctx, cmd, rest)

	// the jar reflects whatever the backend set, including a cleared cookie on logout
	if serr := creds.Save(client.Jar(), client.BaseURL()); serr != nil {
		log.Warn("session not saved", zap.Error(serr))
	}

	if errors.Is(err, errUsage) {
		usage(stderr)
		return exitUsage
	}
	if err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "whoami":
		return a.cmdWhoami(ctx)
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)

	case "menu":
		return a.cmdMenu(ctx, args)
	case "featured":
		return a.cmdFeatured(ctx)
	case "product":
		return a.cmdProduct(ctx, args)
	case "categories":
		return a.cmdCategories(ctx)

	case "cart":
		return a.cmdCart(ctx)
	case "add":
		return a.cmdAdd(ctx, args)
	case "inc":
		return a.cmdStep(ctx, "inc", args, +1)
	case "dec":
		return a.cmdStep(ctx, "dec", args, -1)
	case "set":
		return a.cmdSet(ctx, args)
	case "rm":
		return a.cmdRemove(ctx, args)
	case "checkout":
		return a.cmdCheckout(ctx, args)

	case "admin-products":
		return a.cmdAdminProducts(ctx)
	case "admin-add":
		return a.cmdAdminAdd(ctx, args)
	case "admin-update":
		return a.cmdAdminUpdate(ctx, args)
	case "admin-delete":
		return a.cmdAdminDelete(ctx, args)
	case "orders":
		return a.cmdOrders(ctx)
	case "order-status":
		return a.cmdOrderStatus(ctx, args)
	case "order-delete":
		return a.cmdOrderDelete(ctx, args)
	default:
		return errUsage
	}
}

// ---- helpers ----

func newLogger(c config.LogConfig, stderr io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	enc := zapcore.NewConsoleEncoder(encCfg)
	if strings.EqualFold(c.Format, "json") {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(stderr), level)
	return zap.New(core).Named("dine"), nil
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// fail prints err for a human and picks the exit code.
func fail(stderr io.Writer, err error) int {
	if errors.Is(err, guard.ErrRedirect) || errs.IsAuthorization(err) {
		fmt.Fprintln(stderr, "redirect: "+guard.RouteFallback)
		return exitRedirect
	}
	msg := errs.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	fmt.Fprintln(stderr, "error: "+msg)
	return exitErr
}
