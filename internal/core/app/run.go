package app

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/data/cache"
	"pyshape/internal/shared/observability"
	"pyshape/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates one run.
type Summary struct {
	RunID   string
	Mode    Mode
	Reports []ports.FileReport
	Elapsed time.Duration
}

func (s *Summary) Count(outcome ports.Outcome) int {
	n := 0
	for _, r := range s.Reports {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// Changed lists the reports of files that changed or would change.
func (s *Summary) Changed() []ports.FileReport {
	var out []ports.FileReport
	for _, r := range s.Reports {
		if r.Outcome == ports.OutcomeChanged {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) Failed() bool {
	return s.Count(ports.OutcomeFailed) > 0
}

// Run processes files concurrently. Per-file failures are reported, not
// returned; the error is only set when ctx ends the run early.
func (a *App) Run(ctx context.Context, files []string, progress ports.Progress) (*Summary, error) {
	snap := a.snapshot()
	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)
	start := time.Now()

	ctx, span := observability.Tracer.Start(ctx, "run",
		trace.WithAttributes(attribute.String("run_id", runID), attribute.Int("files", len(files)), attribute.String("mode", a.mode.String())))
	defer span.End()

	if progress != nil {
		progress.Start(len(files))
		defer progress.Done()
	}

	reports := make([]ports.FileReport, len(files))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(snap.cfg.Run.Workers, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report := a.processFile(gctx, logger, runID, snap, path)
			mu.Lock()
			reports[i] = report
			mu.Unlock()
			if progress != nil {
				progress.File(report)
			}
			return nil
		})
	}
	err := g.Wait()

	summary := &Summary{RunID: runID, Mode: a.mode, Elapsed: time.Since(start)}
	for _, r := range reports {
		if r.Path != "" {
			summary.Reports = append(summary.Reports, r)
		}
	}
	sort.Slice(summary.Reports, func(i, j int) bool { return summary.Reports[i].Path < summary.Reports[j].Path })
	a.mu.Lock()
	a.last = summary
	a.mu.Unlock()

	logger.Info("run finished",
		"mode", a.mode.String(),
		"files", len(summary.Reports),
		"changed", summary.Count(ports.OutcomeChanged),
		"cached", summary.Count(ports.OutcomeCached),
		"failed", summary.Count(ports.OutcomeFailed),
		"elapsed", summary.Elapsed.Round(time.Millisecond),
		"heap_mb", util.HeapAllocMB(),
	)
	if a.history != nil && len(summary.Reports) > 0 {
		if herr := a.history.SaveRun(a.projectKey, summary.Record(snap.cfg.Options)); herr != nil {
			logger.Warn("failed to record run history", "error", herr)
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	return summary, nil
}

// Record condenses the summary for the run history.
func (s *Summary) Record(options []string) ports.RunRecord {
	return ports.RunRecord{
		RunID:     s.RunID,
		Mode:      s.Mode.String(),
		Timestamp: time.Now().UTC(),
		Files:     len(s.Reports),
		Changed:   s.Count(ports.OutcomeChanged),
		Cached:    s.Count(ports.OutcomeCached),
		Failed:    s.Count(ports.OutcomeFailed),
		Elapsed:   s.Elapsed,
		Options:   append([]string(nil), options...),
	}
}

func (a *App) processFile(ctx context.Context, logger *slog.Logger, runID string, snap snapshot, path string) (report ports.FileReport) {
	ctx, span := observability.Tracer.Start(ctx, "file", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()
	start := time.Now()
	report.Path = path
	defer func() {
		report.Elapsed = time.Since(start)
		span.SetAttributes(attribute.String("outcome", report.Outcome.String()))
		observability.FilesProcessed.WithLabelValues(report.Outcome.String()).Inc()
		if report.Err != nil {
			span.SetStatus(codes.Error, report.Err.Error())
			logger.Warn("file failed", "path", path, "error", report.Err)
			return
		}
		logger.Debug("file processed", "path", path, "outcome", report.Outcome.String(), "applied", report.Applied)
	}()

	src, err := os.ReadFile(path)
	if err != nil {
		report.Outcome = ports.OutcomeFailed
		report.Err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "read file"), errors.CtxPath, path)
		return report
	}
	report.Before = src

	key := cache.Key(path, src, snap.fingerprint)
	if a.cache != nil {
		hit, err := a.cache.Lookup(ctx, key)
		if err != nil {
			logger.Warn("cache lookup failed", "path", path, "error", err)
		}
		if hit {
			observability.CacheHits.Inc()
			report.Outcome = ports.OutcomeCached
			report.After = src
			return report
		}
	}

	res, err := snap.engine.Run(ctx, path, src, snap.cfg.Options)
	if err != nil {
		report.Outcome = ports.OutcomeFailed
		report.Err = errors.AddContext(err, errors.CtxPath, path)
		return report
	}
	report.After = res.Output
	report.Applied = res.Applied
	report.Skipped = res.Skipped
	for _, skip := range res.Skipped {
		logger.Debug("pass skipped", "path", path, "pass", skip.Pass, "error", skip.Err)
	}

	if !res.Changed {
		report.Outcome = ports.OutcomeClean
		if len(res.Skipped) == 0 {
			a.record(ctx, logger, key, runID, snap)
		}
		return report
	}

	report.Outcome = ports.OutcomeChanged
	if a.mode != ModeWrite {
		return report
	}
	if err := writeFile(path, res.Output); err != nil {
		report.Outcome = ports.OutcomeFailed
		report.Err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "write file"), errors.CtxPath, path)
		return report
	}
	if len(res.Skipped) == 0 {
		// Passes are idempotent, so the written text is clean.
		a.record(ctx, logger, cache.Key(path, res.Output, snap.fingerprint), runID, snap)
	}
	return report
}

func (a *App) record(ctx context.Context, logger *slog.Logger, key ports.CacheKey, runID string, snap snapshot) {
	if a.cache == nil {
		return
	}
	entry := ports.CacheEntry{RunID: runID, Options: snap.cfg.Options, CheckedAt: time.Now()}
	if err := a.cache.Record(ctx, key, entry); err != nil {
		logger.Warn("cache record failed", "path", key.Path, "error", err)
	}
}
