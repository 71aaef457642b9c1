// Package external runs configured formatter commands as text-to-text
// transforms. Source is written to the command's stdin and the rewritten
// text is read from its stdout.
package external

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/shared/observability"
	"pyshape/internal/shared/util"
)

// PathPlaceholder in a command argument is replaced with the file path, as
// in ["ruff", "format", "--stdin-filename", "{path}", "-"].
const PathPlaceholder = "{path}"

const defaultTimeout = 30 * time.Second

// Transform rewrites the source of one file.
type Transform func(ctx context.Context, path string, src []byte) ([]byte, error)

type Options struct {
	Timeout      time.Duration
	MaxPerSecond float64
	Burst        int
}

// Runner spawns external commands, rate limited per command.
type Runner struct {
	timeout  time.Duration
	limiters *util.LimiterRegistry
}

func NewRunner(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Runner{
		timeout:  opts.Timeout,
		limiters: util.NewLimiterRegistry(opts.MaxPerSecond, opts.Burst, 0),
	}
}

// Bind returns a transform running argv. The transform fails with
// CodeFormatterFailed when the command exits non-zero or times out.
func (r *Runner) Bind(name string, argv []string) (Transform, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.AddContext(
			errors.New(errors.CodeConfigInvalid, "external command is empty"),
			errors.CtxCommand, name,
		)
	}
	argv = append([]string(nil), argv...)
	return func(ctx context.Context, path string, src []byte) ([]byte, error) {
		return r.run(ctx, name, argv, path, src)
	}, nil
}

func (r *Runner) run(ctx context.Context, name string, argv []string, path string, src []byte) ([]byte, error) {
	if err := r.limiters.Get(name).Wait(ctx, 1); err != nil {
		return nil, errors.Wrap(err, errors.CodeFormatterFailed, "waiting for rate limiter")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		args[i] = strings.ReplaceAll(a, PathPlaceholder, path)
	}
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	observability.ExternalDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if ctx.Err() == context.DeadlineExceeded {
			msg = "timed out after " + r.timeout.String()
		}
		slog.Debug("external command failed", "command", name, "path", path, "error", err, "stderr", msg)
		wrapped := errors.Wrap(err, errors.CodeFormatterFailed, "external command "+name+" failed: "+msg)
		wrapped = errors.AddContext(wrapped, errors.CtxCommand, name)
		return nil, errors.AddContext(wrapped, errors.CtxPath, path)
	}
	return stdout.Bytes(), nil
}
