// Command mt is a CLI client for the MachTrueke marketplace.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/api"
	"github.com/and161185/machtrueke/internal/api/mockapi"
	"github.com/and161185/machtrueke/internal/config"
	"github.com/and161185/machtrueke/internal/errs"
	"github.com/and161185/machtrueke/internal/likes"
	"github.com/and161185/machtrueke/internal/service"
	"github.com/and161185/machtrueke/internal/session"
	"github.com/and161185/machtrueke/internal/tokenstore"
)

// ---- wiring ----

// app holds everything a command needs. One per process.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	in     io.Reader
	out    io.Writer
	tokens tokenstore.Store
	client *api.Client
	sess   *session.Store
	likes  *likes.List

	account service.AccountService
	profile service.ProfileService
	matches service.MatchService

	// set in mock mode only
	mock *mockapi.Backend
}

func newApp(cfg config.Config, log *zap.Logger, in io.Reader, out io.Writer) *app {
	if log == nil {
		log = zap.NewNop()
	}
	a := &app{cfg: cfg, log: log, in: in, out: out, likes: likes.New()}

	opts := []api.Option{api.WithLogger(log), api.WithTimeout(cfg.API.Timeout)}
	baseURL := cfg.API.URL
	if cfg.API.UseMock {
		a.mock = mockapi.New(mockapi.WithLogger(log))
		a.tokens = tokenstore.NewMemory()
		opts = append(opts, api.WithHTTPClient(a.mock.Client()))
		baseURL = "http://mockapi"
	} else {
		a.tokens = tokenstore.NewFile(cfg.Token.Dir, cfg.Token.Passphrase)
	}

	a.client = api.New(baseURL, a.tokens, opts...)
	a.sess = session.New(a.client, a.tokens, log)
	a.account = service.NewAccountService(a.client, a.sess, log)
	a.profile = service.NewProfileService(a.client, a.sess, log)
	a.matches = service.NewMatchService(a.client, a.likes)
	return a
}

// requireUser returns the signed-in user. In mock mode an anonymous session
// is signed in with the seeded demo account.
func (a *app) requireUser(ctx context.Context) (session.Snapshot, error) {
	snap := a.sess.Init(ctx)
	if snap.IsAuthenticated {
		return snap, nil
	}
	if a.mock != nil {
		if _, err := a.account.SignIn(ctx, mockapi.DemoEmail, mockapi.DemoPassword); err != nil {
			return snap, err
		}
		return a.sess.Snapshot(), nil
	}
	return snap, errs.ErrNoToken
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}

func usage() {
	fmt.Fprintf(os.Stderr, `mt CLI
Usage:
  mt [-config file] [-api URL] [-mock] [-log-level L] <cmd> [args]

Commands:
  version
  register        -u <username> -name <full name> -email <email> -p <password> -confirm <password> -campus <id>
  login           -email <email> -p <password>        (saves token)
  logout
  whoami
  open            -path <view>                         (route guard decision)
  profile-update  -u <username> [-bio <text>] [-campus <id>]
  passwd          -old <password> -new <password> -confirm <password>
  delete-account  -yes
  avatar-set      -file <image>
  avatar-rm
  campuses        [-q <text>]
  products
  matches
  swipe                                                (reads left/right/drag N/release/quit from stdin)
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorLine(err))
	os.Exit(1)
}

// errorLine renders err for the terminal.
func errorLine(err error) string {
	var he *errs.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("http error: status=%d msg=%s", he.Status, he.Error())
	}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message)
	}
	if errors.Is(err, errs.ErrNoToken) {
		return "not logged in (run: mt login)"
	}
	return err.Error()
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, applies global flags and dispatches the subcommand.
func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file (YAML)")
	apiURL := flag.String("api", "", "API base URL")
	useMock := flag.Bool("mock", false, "use the in-process mock backend")
	logLevel := flag.String("log-level", "", "debug|info|warn|error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api":
			cfg.API.URL = *apiURL
		case "mock":
			cfg.API.UseMock = *useMock
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	logger, err := config.NewLogger(cfg.Log.Level)
	if err != nil {
		fail(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("mt starting",
		zap.String("version", version),
		zap.String("api", cfg.API.URL),
		zap.Bool("mock", cfg.API.UseMock),
	)

	a := newApp(cfg, logger, os.Stdin, os.Stdout)
	if err := a.run(flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}
