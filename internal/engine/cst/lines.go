package cst

import "strings"

// LineStart returns the offset of the first byte of the line containing off.
func (d *Document) LineStart(off int) int {
	if off > len(d.Source) {
		off = len(d.Source)
	}
	for off > 0 && d.Source[off-1] != '\n' {
		off--
	}
	return off
}

// LineEnd returns the offset just past the newline terminating the line
// containing off, or len(Source) on the last line.
func (d *Document) LineEnd(off int) int {
	if off > 0 && off <= len(d.Source) && d.Source[off-1] == '\n' {
		return off
	}
	for off < len(d.Source) {
		if d.Source[off] == '\n' {
			return off + 1
		}
		off++
	}
	return len(d.Source)
}

// nextLine returns the offset just past the newline at or after pos.
func (d *Document) nextLine(pos int) int {
	for pos < len(d.Source) {
		if d.Source[pos] == '\n' {
			return pos + 1
		}
		pos++
	}
	return len(d.Source)
}

// Indent returns the leading whitespace of the line containing off.
func (d *Document) Indent(off int) string {
	start := d.LineStart(off)
	end := start
	for end < len(d.Source) && (d.Source[end] == ' ' || d.Source[end] == '\t') {
		end++
	}
	return string(d.Source[start:end])
}

// StartsLine reports whether only whitespace precedes off on its line.
func (d *Document) StartsLine(off int) bool {
	for i := d.LineStart(off); i < off; i++ {
		if d.Source[i] != ' ' && d.Source[i] != '\t' {
			return false
		}
	}
	return true
}

// Line is one physical line of trivia, newline included.
type Line struct {
	Start int
	End   int
	Text  string
}

func (l Line) Blank() bool {
	return strings.TrimSpace(l.Text) == ""
}

func (l Line) Comment() bool {
	return strings.HasPrefix(strings.TrimSpace(l.Text), "#")
}

// IndentWidth counts leading columns, expanding tabs to eight.
func (l Line) IndentWidth() int {
	return indentWidth(l.Text)
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 8 - w%8
		default:
			return w
		}
	}
	return w
}

// Lines splits [start, end) into physical lines.
func (d *Document) Lines(start, end int) []Line {
	var out []Line
	for pos := start; pos < end; {
		next := d.nextLine(pos)
		if next > end {
			next = end
		}
		out = append(out, Line{Start: pos, End: next, Text: string(d.Source[pos:next])})
		pos = next
	}
	return out
}

// EnsureNewline appends nl to s unless it already ends with a newline.
func EnsureNewline(s, nl string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + nl
}

// IndentUnit returns the indentation of the first indented code line, or four
// spaces when the module has none.
func (d *Document) IndentUnit() string {
	for _, line := range d.Lines(0, len(d.Source)) {
		if line.Blank() || line.Comment() {
			continue
		}
		if ws := line.Text[:len(line.Text)-len(strings.TrimLeft(line.Text, " \t"))]; ws != "" {
			return ws
		}
	}
	return "    "
}
