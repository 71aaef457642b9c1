// Package pipeline runs the enabled passes over one file in their fixed
// sequence. Passes fail open: a pass that errors or produces text that no
// longer parses is dropped and the text it received flows on.
package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/cst"
	"pyshape/internal/engine/external"
	"pyshape/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoChange is returned by Apply when no pass altered the source.
var ErrNoChange = stderrors.New("no change")

// Normalize maps an option key to its kebab-case form.
func Normalize(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "-")
}

// Skip records a pass whose result was dropped.
type Skip struct {
	Pass string
	Err  error
}

type Result struct {
	Output  []byte
	Changed bool
	// Applied lists the passes that changed the text, in order.
	Applied []string
	Skipped []Skip
}

// Pipeline binds external passes to their commands.
type Pipeline struct {
	external map[string]external.Transform
}

// New builds a pipeline. Keys of ext name external passes.
func New(ext map[string]external.Transform) (*Pipeline, error) {
	p := &Pipeline{external: make(map[string]external.Transform, len(ext))}
	for key, fn := range ext {
		pass, ok := Lookup(key)
		if !ok || pass.Kind != External {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeUnknownOption, "%q is not an external pass", key),
				errors.CtxOption, key,
			)
		}
		p.external[pass.Key] = fn
	}
	return p, nil
}

// Resolve normalizes option keys and rejects unknown ones.
func Resolve(options []string) (map[string]bool, error) {
	enabled := make(map[string]bool, len(options))
	for _, opt := range options {
		pass, ok := Lookup(opt)
		if !ok {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeUnknownOption, "unknown option %q", opt),
				errors.CtxOption, opt,
			)
		}
		enabled[pass.Key] = true
	}
	return enabled, nil
}

// Run applies the enabled passes to src.
func (p *Pipeline) Run(ctx context.Context, path string, src []byte, options []string) (*Result, error) {
	enabled, err := Resolve(options)
	if err != nil {
		return nil, err
	}
	res := &Result{Output: src}
	for _, pass := range sequence {
		if !enabled[pass.Key] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.step(ctx, path, pass, res)
	}
	res.Changed = !bytes.Equal(res.Output, src)
	return res, nil
}

func (p *Pipeline) step(ctx context.Context, path string, pass Pass, res *Result) {
	ctx, span := observability.Tracer.Start(ctx, "pass "+pass.Key,
		trace.WithAttributes(attribute.String("path", path), attribute.String("kind", pass.Kind.String())))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.PassDuration.WithLabelValues(pass.Key).Observe(time.Since(start).Seconds())
	}()

	out, err := p.invoke(ctx, path, pass, res.Output)
	outcome := observability.OutcomeChanged
	switch {
	case err != nil:
		outcome = observability.OutcomeSkipped
		slog.Debug("pass skipped", "pass", pass.Key, "path", path, "error", err)
		span.SetStatus(codes.Error, err.Error())
		res.Skipped = append(res.Skipped, Skip{Pass: pass.Key, Err: err})
	case bytes.Equal(out, res.Output):
		outcome = observability.OutcomeUnchanged
	default:
		if err := validate(out); err != nil {
			outcome = observability.OutcomeDiscarded
			slog.Warn("pass output does not parse, discarding it", "pass", pass.Key, "path", path)
			res.Skipped = append(res.Skipped, Skip{Pass: pass.Key, Err: err})
			break
		}
		res.Output = out
		res.Applied = append(res.Applied, pass.Key)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	observability.PassOutcomes.WithLabelValues(pass.Key, outcome).Inc()
}

func (p *Pipeline) invoke(ctx context.Context, path string, pass Pass, src []byte) ([]byte, error) {
	if pass.Kind == Builtin {
		return pass.run(src)
	}
	fn, ok := p.external[pass.Key]
	if !ok {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, "no command configured"),
			errors.CtxOption, pass.Key,
		)
	}
	return fn(ctx, path, src)
}

func validate(src []byte) error {
	doc, err := cst.Parse(src)
	if err != nil {
		return err
	}
	doc.Close()
	return nil
}

// Apply runs the built-in passes among options over src. It returns
// ErrNoChange when the text comes back identical.
func Apply(src []byte, options ...string) ([]byte, error) {
	p := &Pipeline{}
	res, err := p.Run(context.Background(), "", src, options)
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		return nil, ErrNoChange
	}
	return res.Output, nil
}
