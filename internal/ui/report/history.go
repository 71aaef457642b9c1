package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pyshape/internal/core/ports"
)

func RenderRunsTSV(runs []ports.RunRecord) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRun\tMode\tFiles\tChanged\tCached\tFailed\tElapsedMs\tOptions\n")
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			run.Timestamp.Format(time.RFC3339),
			run.RunID,
			run.Mode,
			run.Files,
			run.Changed,
			run.Cached,
			run.Failed,
			run.Elapsed.Milliseconds(),
			strings.Join(run.Options, ","),
		))
	}

	return []byte(buf.String()), nil
}

func RenderRunsJSON(runs []ports.RunRecord) ([]byte, error) {
	if runs == nil {
		runs = []ports.RunRecord{}
	}
	return json.MarshalIndent(runs, "", "  ")
}
