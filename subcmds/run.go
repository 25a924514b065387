// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/ctxutil"
	"github.com/bvk/triarb/daemonize"
	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/httputil"
	"github.com/bvk/triarb/pathdb"
	"github.com/bvk/triarb/server"
	"github.com/bvk/triarb/sink"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.ConfigFlags
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof bool

	logFiles bool
	debug    bool

	pathsFile string

	initialAsset    string
	initialQuantity string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the detector in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, stops any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for old instance shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.logFiles, "log-files", false, "when true, logs are written to files under the data directory")
	fset.BoolVar(&c.debug, "debug", false, "when true, debug messages are logged")
	fset.StringVar(&c.pathsFile, "paths-file", "", "reads triangular paths from a json file instead of the database")
	fset.StringVar(&c.initialAsset, "initial-asset", "", "overrides the configured initial asset")
	fset.StringVar(&c.initialQuantity, "initial-quantity", "", "overrides the configured initial quantity")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the arbitrage detector in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the triangular arbitrage detector. Detector loads the
triangular paths saved by the "paths generate" command, subscribes to the
depth streams of every symbol used by the paths that start with the initial
asset and reports profitable cycles to the configured sinks.

CONFIGURATION

Configuration is read from the TOML file given with the -config flag, if any,
and is overridden by TRIARB_* environment variables. Environment variables are
also loaded from a .env file in the current directory and from the
secrets.env file in the data directory, which is updated by the "setup"
commands.

A status api is served on the listen address, which is used by the "status"
and "opportunities" commands. Database can be accessed remotely through the
same address with the -remote flag of the "db" and "paths" commands while the
detector holds the database lock.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}

	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		_, ppid, err := parsePIDs(string(data))
		if err != nil {
			return err
		}
		if ppid != os.Getpid() {
			return fmt.Errorf("is another instance already running? parent pid mismatch: want %d got %d", os.Getpid(), ppid)
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, nil /* opts */, check); err != nil {
			return err
		}
	}

	if c.logFiles || daemonize.IsChild() {
		logDir, err := cmdutil.EnsureDir(filepath.Join(cfg.DataDir, "logs"))
		if err != nil {
			return err
		}
		backend := sglog.NewBackend(&sglog.Options{
			LogDirs:    []string{logDir},
			LogLinkDir: logDir,
		})
		defer backend.Close()
		if c.debug {
			backend.EnableDebugLog()
		}
		slog.SetDefault(slog.New(backend.Handler()))
	} else if c.debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("using data directory", "dir", cfg.DataDir, "config", c.ConfigFlags.ConfigFile())

	lockPath := filepath.Join(cfg.DataDir, "triarb.lock")
	flock, err := c.lock(ctx, lockPath)
	if err != nil {
		return err
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	db, bdb, err := cmdutil.OpenBadger(cmdutil.DatabaseDir(cfg.DataDir))
	if err != nil {
		return err
	}
	defer bdb.Close()

	s.AddHandler(cmdutil.DBPath+"/", http.StripPrefix(cmdutil.DBPath, kvhttp.Handler(db)))

	var paths []*gobs.TriangularPath
	if len(c.pathsFile) != 0 {
		if paths, err = pathdb.ReadFile(c.pathsFile); err != nil {
			return err
		}
	} else {
		ps, meta, err := pathdb.Load(ctx, db)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no triangular paths in the database; use \"paths generate\" command first: %w", err)
			}
			return err
		}
		slog.Info("loaded triangular paths from the database", "paths", len(ps), "generated", meta.GeneratedAt)
		paths = ps
	}

	sinks, tclient, err := server.OpenSinks(ctx, cfg, db)
	if err != nil {
		return err
	}

	detector, err := server.New(paths, sinks, tclient, server.NewOptions(cfg))
	if err != nil {
		sink.CloseAll(sinks...)
		return err
	}
	defer detector.Close()

	apis := detector.HandlerMap()
	for k, v := range apis {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range apis {
			s.RemoveHandler(k)
		}
	}()

	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%d %d", os.Getpid(), daemonize.ParentPID())
	}))

	slog.Info("started triarb server", "addr", addr)
	if err := detector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("triarb server is shutting down")
	return nil
}

func (c *Run) applyOverrides(cfg *config.Config) error {
	if len(c.initialAsset) != 0 {
		cfg.Arbitrage.InitialAsset = strings.ToUpper(c.initialAsset)
	}
	if len(c.initialQuantity) != 0 {
		v, err := decimal.NewFromString(c.initialQuantity)
		if err != nil {
			return fmt.Errorf("could not parse initial quantity %q: %w", c.initialQuantity, err)
		}
		cfg.Arbitrage.InitialQuantity = v
	}
	return cfg.Validate()
}

// lock takes the lock file. When restart is requested, current owner is
// interrupted and killed if it doesn't release the lock in time.
func (c *Run) lock(ctx context.Context, lockPath string) (*lockfile.Lockfile, error) {
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return nil, fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err == nil {
		return &flock, nil
	} else if !c.restart {
		return nil, fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}

	owner, err := flock.GetOwner()
	if err != nil {
		return nil, fmt.Errorf("could not get current owner of the lock file: %w", err)
	}
	if err := owner.Signal(os.Interrupt); err == nil {
		slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
		tctx, cancel := context.WithTimeout(ctx, c.shutdownTimeout)
		err := ctxutil.Retry(tctx, ctxutil.Fixed(time.Second), flock.TryLock)
		cancel()
		if err != nil {
			if err := owner.Signal(os.Kill); err != nil {
				return nil, fmt.Errorf("could not kill current owner of the lock file: %w", err)
			}
			ctxutil.Sleep(ctx, time.Millisecond)
		}
	}
	if err := flock.TryLock(); err != nil {
		return nil, fmt.Errorf("could not get lock on file %q after stopping previous instance: %w", lockPath, err)
	}
	return &flock, nil
}

// parsePIDs parses the "pid ppid" response of the /pid endpoint.
func parsePIDs(s string) (pid, ppid int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected pid response %q", s)
	}
	if pid, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("could not parse pid %q: %w", fields[0], err)
	}
	if ppid, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("could not parse parent pid %q: %w", fields[1], err)
	}
	return pid, ppid, nil
}
