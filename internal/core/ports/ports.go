package ports

import (
	"context"
	"time"

	"pyshape/internal/engine/pipeline"
)

// Engine rewrites one file through the enabled passes.
type Engine interface {
	Run(ctx context.Context, path string, src []byte, options []string) (*pipeline.Result, error)
}

// CacheKey identifies one file state under one configuration.
type CacheKey struct {
	Path string
	// Hash is the hex SHA-256 of the file content.
	Hash string
	// Fingerprint identifies the option set and bound commands.
	Fingerprint string
}

// CacheEntry describes a file recorded as clean.
type CacheEntry struct {
	RunID     string
	Options   []string
	CheckedAt time.Time
}

// CleanCache remembers files that passed through every enabled pass unchanged.
type CleanCache interface {
	Lookup(ctx context.Context, key CacheKey) (bool, error)
	Record(ctx context.Context, key CacheKey, entry CacheEntry) error
	// Clear drops every entry and returns how many there were.
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// Outcome is the result of processing one file.
type Outcome int

const (
	OutcomeClean Outcome = iota
	OutcomeCached
	OutcomeChanged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeCached:
		return "cached"
	case OutcomeChanged:
		return "changed"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// FileReport is the per-file record produced by a run.
type FileReport struct {
	Path    string
	Outcome Outcome
	Before  []byte
	After   []byte
	Applied []string
	Skipped []pipeline.Skip
	Err     error
	Elapsed time.Duration
}

// Progress receives per-file reports while a run is in flight. Calls may
// come from several goroutines.
type Progress interface {
	Start(total int)
	File(report FileReport)
	Done()
}

// RunRecord is the persisted summary of one run.
type RunRecord struct {
	RunID     string        `json:"run_id"`
	Mode      string        `json:"mode"`
	Timestamp time.Time     `json:"timestamp"`
	Files     int           `json:"files"`
	Changed   int           `json:"changed"`
	Cached    int           `json:"cached"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Options   []string      `json:"options"`
}

// RunHistory keeps run records per project.
type RunHistory interface {
	SaveRun(projectKey string, run RunRecord) error
	LoadRuns(projectKey string, since time.Time, limit int) ([]RunRecord, error)
	Close() error
}
