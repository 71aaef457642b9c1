// Package report renders run results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pyshape/internal/core/app"
	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/ports"

	"github.com/charmbracelet/lipgloss"
)

var (
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	cleanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

// verb names what happened to a changed file.
func verb(mode app.Mode) string {
	if mode == app.ModeWrite {
		return "reshaped"
	}
	return "would reshape"
}

// Summary writes one line per changed or failed file followed by totals.
// Paths are shown relative to base.
func Summary(w io.Writer, s *app.Summary, base string) error {
	var b strings.Builder
	for _, r := range s.Reports {
		path := helpers.DisplayPath(r.Path, base)
		switch r.Outcome {
		case ports.OutcomeChanged:
			fmt.Fprintf(&b, "%s %s", changedStyle.Render(verb(s.Mode)), path)
			if len(r.Applied) > 0 {
				b.WriteString(" " + mutedStyle.Render("("+strings.Join(r.Applied, ", ")+")"))
			}
			b.WriteByte('\n')
		case ports.OutcomeFailed:
			fmt.Fprintf(&b, "%s %s: %v\n", failedStyle.Render("failed"), path, r.Err)
		}
		for _, skip := range r.Skipped {
			fmt.Fprintf(&b, "  %s %s: %v\n", mutedStyle.Render("skipped "+skip.Pass+" on"), path, skip.Err)
		}
	}
	b.WriteString(Totals(s))
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// Totals is the one-line count summary of a run.
func Totals(s *app.Summary) string {
	changed := s.Count(ports.OutcomeChanged)
	failed := s.Count(ports.OutcomeFailed)
	unchanged := s.Count(ports.OutcomeClean) + s.Count(ports.OutcomeCached)

	parts := []string{}
	if changed > 0 {
		parts = append(parts, changedStyle.Render(fmt.Sprintf("%d %s", changed, plural(changed, verb(s.Mode)))))
	}
	if failed > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if unchanged > 0 || len(parts) == 0 {
		parts = append(parts, cleanStyle.Render(fmt.Sprintf("%d unchanged", unchanged)))
	}
	return strings.Join(parts, ", ") + mutedStyle.Render(fmt.Sprintf(" in %s", s.Elapsed.Round(time.Millisecond)))
}

func plural(n int, v string) string {
	if n == 1 {
		return "file " + v
	}
	return "files " + v
}
