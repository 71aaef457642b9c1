package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"pyshape/internal/core/app"
	"pyshape/internal/core/config"
	"pyshape/internal/core/ports"
	"pyshape/internal/data/cache"
	"pyshape/internal/data/history"
	"pyshape/internal/engine/pipeline"
	"pyshape/internal/ui/report"

	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [paths...]",
		Short: "Rewrite files in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, args, app.ModeWrite)
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [paths...]",
		Short: "List files that would change; exit 1 if any would",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, args, app.ModeCheck)
		},
	}
}

func newDiffCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [paths...]",
		Short: "Print unified diffs of the changes without writing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, args, app.ModeDiff)
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func checkFormat(format string) error {
	switch format {
	case "", "text", "sarif", "tsv":
		return nil
	}
	return fmt.Errorf("unknown format %q: want text, sarif or tsv", format)
}

func runOnce(cmd *cobra.Command, opts *rootOptions, args []string, mode app.Mode) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	s, err := newSession(cmd, opts, mode)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	files, err := s.app.Discover(s.targets(args))
	if err != nil {
		return err
	}

	mode = s.app.Mode()
	var progress ports.Progress
	var view *Progress
	if s.tui {
		view = StartProgress(cmd.ErrOrStderr(), "pyshape "+mode.String(), s.base(), cancel)
		progress = view
	}
	summary, err := s.app.Run(ctx, files, progress)
	if view != nil {
		_ = view.Stop()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if mode == app.ModeDiff {
		if err := report.Diffs(out, summary, s.base()); err != nil {
			return err
		}
	}
	summaryOut := out
	if mode == app.ModeDiff {
		summaryOut = cmd.ErrOrStderr()
	}
	if err := writeSummary(summaryOut, opts.format, summary, s); err != nil {
		return err
	}

	switch {
	case summary.Failed():
		return &exitError{code: exitDirty, msg: fmt.Sprintf("%d file(s) failed", summary.Count(ports.OutcomeFailed))}
	case mode != app.ModeWrite && len(summary.Changed()) > 0:
		return &exitError{code: exitDirty, msg: fmt.Sprintf("%d file(s) would be reshaped", len(summary.Changed()))}
	}
	return nil
}

func writeSummary(w io.Writer, format string, summary *app.Summary, s *session) error {
	switch format {
	case "", "text":
		return report.Summary(w, summary, s.base())
	case "sarif":
		return report.SARIF(w, summary, s.paths.ProjectRoot)
	case "tsv":
		return report.TSV(w, summary, s.base())
	}
	return checkFormat(format)
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Rewrite files whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := app.ModeWrite
			if check {
				mode = app.ModeCheck
			}
			return runWatch(cmd, opts, args, mode)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only report files that would change")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *rootOptions, args []string, mode app.Mode) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	s, err := newSession(cmd, opts, mode)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if s.cfgPath != "" {
		w := config.NewWatcher(s.cfgPath, func(cfg *config.Config) {
			if err := applyOverrides(cfg, s.opts); err != nil {
				slog.Warn("reloaded config rejected", "error", err)
				return
			}
			engine, err := buildEngine(cfg)
			if err != nil {
				slog.Warn("reloaded config rejected", "error", err)
				return
			}
			if err := s.app.Reconfigure(cfg); err != nil {
				slog.Warn("reloaded config rejected", "error", err)
				return
			}
			s.app.SetEngine(engine)
			slog.Info("config reloaded", "options", cfg.Options)
		})
		if err := w.Start(ctx); err != nil {
			slog.Warn("config hot reload unavailable", "error", err)
		} else {
			defer w.Stop()
		}
	}

	targets := s.targets(args)
	var progress ports.Progress
	if s.tui {
		view := StartProgress(cmd.ErrOrStderr(), "pyshape watch", s.base(), cancel)
		defer view.Stop()
		progress = view
	}
	mode = s.app.Mode()
	onRun := func(summary *app.Summary) {
		if s.tui {
			return
		}
		if mode == app.ModeDiff {
			_ = report.Diffs(cmd.OutOrStdout(), summary, s.base())
		}
		_ = writeSummary(cmd.ErrOrStderr(), opts.format, summary, s)
	}

	// One full pass first, then only changed files.
	files, err := s.app.Discover(targets)
	if err != nil {
		return err
	}
	summary, err := s.app.Run(ctx, files, progress)
	if err != nil {
		return ignoreCanceled(err)
	}
	onRun(summary)
	return ignoreCanceled(s.app.Watch(ctx, targets, progress, onRun))
}

// ignoreCanceled treats an interrupt as a clean stop.
func ignoreCanceled(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newPassesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List the passes in the order they run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(opts, cwd)
			if err != nil {
				return err
			}
			enabled, err := pipeline.Resolve(cfg.Options)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range pipeline.Passes() {
				state := "off"
				if enabled[p.Key] {
					state = "on"
				}
				kind := p.Kind.String()
				if p.OptIn {
					kind = "opt-in"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Key, kind, state, p.Description)
			}
			return tw.Flush()
		},
	}
}

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the clean-file cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every file recorded as clean",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(opts, cwd)
			if err != nil {
				return err
			}
			paths, err := config.ResolvePaths(cfg, cwd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(paths.CachePath); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
				return nil
			}
			c, err := cache.OpenSQLite(paths.CachePath)
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache entries from %s\n", n, paths.CachePath)
			return nil
		},
	})
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		since  time.Duration
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(opts, cwd)
			if err != nil {
				return err
			}
			paths, err := config.ResolvePaths(cfg, cwd)
			if err != nil {
				return err
			}
			path := historyPath(paths)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			runs, err := store.LoadRuns(paths.ProjectRoot, from, limit)
			if err != nil {
				return err
			}
			render := report.RenderRunsTSV
			if asJSON {
				render = report.RenderRunsJSON
			}
			out, err := render(runs)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only runs newer than this, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of TSV")
	return cmd
}
