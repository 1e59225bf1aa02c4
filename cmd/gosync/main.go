// Package main is the entry point for the gosync application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/gosync/internal/config"
	"github.com/joe/gosync/internal/eventbus"
	"github.com/joe/gosync/internal/history"
	"github.com/joe/gosync/internal/logging"
	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/tui"
	"github.com/joe/gosync/internal/tui/shared"
	"github.com/joe/gosync/internal/watch"
	"github.com/joe/gosync/pkg/filesystem"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)

	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	path := cfg.ConfigPath
	if path == "" {
		var err error

		path, err = config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)

			return 1
		}
	}

	store := config.NewStore(path)
	store.Overrides = config.Overrides{
		Remote:    cfg.RemoteTarget,
		LocalPath: cfg.LocalPath,
		AutoSync:  cfg.Auto,
	}

	switch {
	case cfg.Init:
		return initConfig(store)
	case cfg.History > 0:
		return printHistory(cfg.History)
	}

	interactive := !cfg.Headless && !cfg.Once && term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := setupLogging(cfg, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}
	defer func() { _ = closeLog() }()

	slog.SetDefault(logger)

	lock, err := config.NewInstanceLock("")
	if err == nil {
		err = lock.Lock()
	}

	if err != nil {
		logger.Error("cannot start", "error", err)

		return 1
	}
	defer func() { _ = lock.Unlock() }()

	if written, err := store.EnsureDefault(); err != nil {
		logger.Error("cannot create config file", "error", err)

		return 1
	} else if written {
		logger.Warn("created a default config file; fill in the ssh section", "path", store.Path())
	}

	app := newApp(store, logger)
	defer app.close()

	if cfg.Once {
		return app.once(ctx)
	}

	if err := app.serve(ctx, cfg, interactive); err != nil {
		logger.Error("gosync stopped", "error", err)

		return 1
	}

	return 0
}

func setupLogging(cfg *config.Config, interactive bool) (*slog.Logger, func() error, error) {
	logPath, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}

	var console io.Writer = os.Stderr
	if interactive {
		console = nil
	}

	return logging.Setup(logging.Options{
		Verbose:  cfg.Verbose,
		Console:  console,
		FilePath: logPath,
	})
}

func initConfig(store *config.Store) int {
	written, err := store.EnsureDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	if written {
		fmt.Printf("Wrote default config to %s\n", store.Path())
	} else {
		fmt.Printf("Config already exists at %s\n", store.Path())
	}

	return 0
}

func printHistory(n int) int {
	path, err := config.HistoryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	journal, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}
	defer func() { _ = journal.Close() }()

	records, err := journal.Recent(n)
	if err == nil {
		err = history.Print(os.Stdout, records, time.Now())
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	return 0
}

// app holds the wired components of a running gosync.
type app struct {
	store   *config.Store
	logger  *slog.Logger
	bus     *eventbus.Bus
	manager *filesystem.Manager
	engine  *syncengine.Engine
	journal *history.Journal
}

func newApp(store *config.Store, logger *slog.Logger) *app {
	a := &app{store: store, logger: logger, bus: eventbus.New()}

	a.manager = filesystem.NewManager(store, &filesystem.SSHDialer{Logger: logger},
		filesystem.WithLogger(logger),
		filesystem.WithStatusFunc(func(success bool, message string) {
			a.engine.ReportConnection(success, message)
		}),
	)

	a.engine = syncengine.NewEngine(filesystem.NewRealFileSystem(), a.manager, store)
	a.engine.Logger = logger
	a.engine.SetEventEmitter(a.bus)

	if path, err := config.HistoryPath(); err != nil {
		logger.Warn("pass history disabled", "error", err)
	} else if journal, err := history.Open(path); err != nil {
		logger.Warn("pass history disabled", "error", err)
	} else {
		a.journal = journal
	}

	a.subscribe()

	return a
}

func (a *app) subscribe() {
	record := func(complete syncengine.SyncComplete) {
		a.logger.Info("pass finished",
			"outcome", complete.Outcome,
			"sent", complete.TransferredCount,
			"failed", len(complete.Failures),
			"duration", complete.Duration,
		)

		if a.journal == nil {
			return
		}

		if err := a.journal.Record(complete); err != nil {
			a.logger.Warn("failed to record pass", "error", err)
		}
	}

	if err := a.bus.SubscribeAsync(eventbus.TopicSyncComplete, record); err != nil {
		a.logger.Warn("pass history disabled", "error", err)
	}
}

// once runs a single pass and reports it on stdout.
func (a *app) once(ctx context.Context) int {
	complete, err := a.engine.SyncOnce(ctx)
	if err != nil {
		a.logger.Error("sync did not run", "error", err)

		return 1
	}

	fmt.Println(complete.Message)

	for _, failure := range complete.Failures {
		fmt.Printf("  %s: %s\n", failure.Path, failure.Reason)
	}

	for _, suggestion := range complete.Suggestions {
		fmt.Printf("  • %s\n", suggestion)
	}

	if !complete.Success {
		return 1
	}

	return 0
}

// serve runs the auto loop, the watcher and the status screen until ctx ends
// or the user quits the status screen.
func (a *app) serve(ctx context.Context, cfg *config.Config, interactive bool) error {
	settings, err := a.store.SyncSettings()
	if err != nil {
		return err //nolint:wrapcheck // ConfigError is already user-facing
	}

	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(groupCtx)

	defer cancel()

	if settings.AutoSync {
		if err := a.engine.StartAuto(runCtx, cfg.IntervalDuration()); err != nil {
			return fmt.Errorf("failed to start auto sync: %w", err)
		}
	} else {
		a.engine.RequestPass(runCtx)
	}

	if !cfg.NoWatch {
		watcher, err := a.startWatcher(settings)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()

		group.Go(func() error {
			if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher: %w", err)
			}

			return nil
		})
	}

	if interactive {
		bridge := shared.NewEventBridge()
		if err := a.bus.Subscribe(eventbus.TopicAll, bridge.Emit); err != nil {
			return fmt.Errorf("failed to attach status screen: %w", err)
		}

		interval := cfg.IntervalDuration()
		if interval == 0 {
			interval = settings.Interval
		}

		group.Go(func() error {
			defer cancel()
			defer bridge.Close()

			return tui.Run(runCtx, a.engine, bridge, tui.Options{
				Remote:    a.remoteLabel(),
				LocalPath: settings.LocalPath,
				AutoSync:  settings.AutoSync,
				Interval:  interval,
			})
		})
	} else {
		a.logger.Info("gosync running", "local", settings.LocalPath, "remote", a.remoteLabel(), "auto", settings.AutoSync)

		group.Go(func() error {
			<-runCtx.Done()

			return nil
		})
	}

	err = group.Wait()

	a.engine.Stop()

	return err //nolint:wrapcheck // Each goroutine wraps its own error
}

func (a *app) startWatcher(settings syncengine.SyncSettings) (*watch.Watcher, error) {
	if err := os.MkdirAll(settings.LocalPath, syncengine.DefaultLocalDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", settings.LocalPath, err)
	}

	watcher, err := watch.New(settings.LocalPath, a.engine.Pending(), a.engine)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", settings.LocalPath, err)
	}

	watcher.Filter = syncengine.NewExcludeFilter(settings.Exclude)
	watcher.Logger = a.logger

	if err := watcher.Start(); err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", settings.LocalPath, err)
	}

	return watcher, nil
}

// remoteLabel renders the configured remote for the status screen.
func (a *app) remoteLabel() string {
	creds, err := a.store.RemoteCredentials()
	if err != nil {
		return "(not configured)"
	}

	return formatRemote(creds)
}

// formatRemote renders user@host:port:path, with the port the dialer would use.
func formatRemote(creds filesystem.RemoteCredentials) string {
	return creds.Username + "@" + creds.Address() + ":" + creds.RemoteBasePath
}

func (a *app) close() {
	a.engine.Stop()
	a.manager.Disconnect()
	a.bus.WaitAsync()

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close pass history", "error", err)
		}
	}
}
