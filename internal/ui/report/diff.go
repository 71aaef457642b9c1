package report

import (
	"io"
	"path/filepath"
	"strings"

	"pyshape/internal/core/app"
	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/ports"

	"github.com/pmezard/go-difflib/difflib"
)

// Diffs writes a unified diff for every changed file of the run.
func Diffs(w io.Writer, s *app.Summary, base string) error {
	for _, r := range s.Changed() {
		if err := Diff(w, r, base); err != nil {
			return err
		}
	}
	return nil
}

// Diff writes the unified diff between the old and new content of one file.
func Diff(w io.Writer, r ports.FileReport, base string) error {
	name := filepath.ToSlash(helpers.DisplayPath(r.Path, base))
	return difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        splitLines(string(r.Before)),
		B:        splitLines(string(r.After)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}

const noNewline = "\n\\ No newline at end of file\n"

// splitLines keeps each line's terminator. An unterminated last line carries
// the marker git prints for it, so it still differs from a terminated one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += noNewline
	}
	return lines
}
