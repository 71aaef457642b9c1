package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pyshape/internal/core/app"
	"pyshape/internal/core/config"
	"pyshape/internal/core/ports"
	"pyshape/internal/data/cache"
	"pyshape/internal/data/history"
	"pyshape/internal/engine/external"
	"pyshape/internal/engine/pipeline"
	"pyshape/internal/shared/observability"

	"github.com/spf13/cobra"
)

func configureLogging(stderr io.Writer, tui, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if tui {
		// Keep log lines out of the progress view.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyshape", "pyshape.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pyshape", "pyshape.log")
	}

	return "pyshape.log"
}

// loadConfig reads the explicit file, else the nearest pyshape.toml, else
// the defaults. Environment and flag overrides are applied on top.
func loadConfig(opts *rootOptions, cwd string) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		path = config.Find(cwd)
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, "", err
		}
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func applyOverrides(cfg *config.Config, opts *rootOptions) error {
	config.ApplyEnvOverrides(cfg)
	if opts.workers > 0 {
		cfg.Run.Workers = opts.workers
	}
	if len(opts.options) > 0 {
		cfg.Options = opts.options
	}
	if opts.noCache {
		off := false
		cfg.Cache.Enabled = &off
	}
	return config.Validate(cfg)
}

// buildEngine binds the configured external commands into a pipeline.
func buildEngine(cfg *config.Config) (*pipeline.Pipeline, error) {
	runner := external.NewRunner(external.Options{
		Timeout:      cfg.External.Timeout,
		MaxPerSecond: cfg.External.MaxPerSecond,
		Burst:        cfg.External.Burst,
	})
	bound := make(map[string]external.Transform, len(cfg.External.Commands))
	for key, argv := range cfg.External.Commands {
		fn, err := runner.Bind(key, argv)
		if err != nil {
			return nil, err
		}
		bound[key] = fn
	}
	return pipeline.New(bound)
}

// historyPath puts the run history next to the cache database.
func historyPath(paths config.ResolvedPaths) string {
	return filepath.Join(filepath.Dir(paths.CachePath), "history.db")
}

// session is everything a command needs after startup.
type session struct {
	opts    *rootOptions
	cfg     *config.Config
	cfgPath string
	paths   config.ResolvedPaths
	app     *app.App
	cache   ports.CleanCache
	tui     bool

	closers []func(context.Context) error
}

func newSession(cmd *cobra.Command, opts *rootOptions, mode app.Mode) (*session, error) {
	tui, err := UseTUI(opts.ui, os.Stderr)
	if err != nil {
		return nil, err
	}
	closeLogs := configureLogging(cmd.ErrOrStderr(), tui, opts.verbose)

	s := &session{opts: opts, tui: tui}
	s.closers = append(s.closers, func(context.Context) error { closeLogs(); return nil })

	if err := s.init(cmd.Context(), mode); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) init(ctx context.Context, mode app.Mode) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	s.cfg, s.cfgPath, err = loadConfig(s.opts, cwd)
	if err != nil {
		return err
	}
	if s.paths, err = config.ResolvePaths(s.cfg, cwd); err != nil {
		return err
	}
	slog.Debug("config loaded", "path", s.cfgPath, "root", s.paths.ProjectRoot, "options", s.cfg.Options)

	shutdown, err := observability.InitTracing(ctx, s.cfg.Observability.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	s.closers = append(s.closers, shutdown)

	engine, err := buildEngine(s.cfg)
	if err != nil {
		return err
	}
	s.cache = cache.NewMemory()
	if s.cfg.Cache.On() {
		disk, err := cache.OpenSQLite(s.paths.CachePath)
		if err != nil {
			slog.Warn("cache unavailable, continuing without it", "path", s.paths.CachePath, "error", err)
		} else {
			s.cache = disk
		}
	}
	s.closers = append(s.closers, func(context.Context) error { return s.cache.Close() })

	if mode == app.ModeWrite && s.cfg.Run.Check {
		mode = app.ModeCheck
	}
	if s.app, err = app.New(s.cfg, engine, s.cache, mode); err != nil {
		return err
	}
	if s.cfg.Cache.On() {
		store, err := history.Open(historyPath(s.paths))
		if err != nil {
			slog.Warn("run history unavailable", "error", err)
		} else {
			s.closers = append(s.closers, func(context.Context) error { return store.Close() })
			s.app.SetHistory(store, s.paths.ProjectRoot)
		}
	}

	if addr := s.cfg.Observability.MetricsAddress; addr != "" {
		server := NewObservabilityServer(addr, app.NewHealthService(s.app))
		if err := server.Start(ctx); err != nil {
			return err
		}
		s.closers = append(s.closers, server.Stop)
	}
	return nil
}

// targets returns the command arguments, or the configured paths.
func (s *session) targets(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return s.paths.Targets
}

// base is the directory paths are displayed relative to.
func (s *session) base() string {
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return s.paths.ProjectRoot
}

func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
