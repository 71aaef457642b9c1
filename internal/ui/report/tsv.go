package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pyshape/internal/core/app"
	"pyshape/internal/core/app/helpers"
)

var cellEscaper = strings.NewReplacer("\t", " ", "\n", " ")

// TSV writes one row per file: path, outcome, applied and skipped passes,
// and the error of a failed file.
func TSV(w io.Writer, s *app.Summary, base string) error {
	var buf strings.Builder

	buf.WriteString("Path\tOutcome\tApplied\tSkipped\tError\n")
	for _, r := range s.Reports {
		skipped := make([]string, 0, len(r.Skipped))
		for _, skip := range r.Skipped {
			skipped = append(skipped, skip.Pass)
		}
		errText := ""
		if r.Err != nil {
			errText = cellEscaper.Replace(r.Err.Error())
		}
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\n",
			filepath.ToSlash(helpers.DisplayPath(r.Path, base)),
			r.Outcome,
			strings.Join(r.Applied, ","),
			strings.Join(skipped, ","),
			errText,
		))
	}

	_, err := io.WriteString(w, buf.String())
	return err
}
