package helpers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// SourceExt is the extension of the files pyshape rewrites.
const SourceExt = ".py"

func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

// Filter decides which directories to descend into and which files to
// rewrite. Patterns match base names.
type Filter struct {
	dirs  []glob.Glob
	files []glob.Glob
}

func NewFilter(dirs, files []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.dirs, err = compile(dirs); err != nil {
		return nil, err
	}
	if f.files, err = compile(files); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !HasWildcard(pattern) {
			out = append(out, glob.MustCompile(glob.QuoteMeta(pattern)))
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *Filter) SkipDir(path string) bool {
	return matchAny(f.dirs, filepath.Base(path))
}

// Accept reports whether path is a Python source that is not excluded.
func (f *Filter) Accept(path string) bool {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), SourceExt) {
		return false
	}
	return !matchAny(f.files, base)
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
