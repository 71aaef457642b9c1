// Package cst wraps the tree-sitter Python grammar in a trivia-preserving
// statement model. Every edit is expressed as a byte-range replacement over
// the original source, so text outside an edit is reproduced exactly.
package cst

import (
	"bytes"
	"math"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/shared/observability"

	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Document is one parsed source file. It owns the tree-sitter tree and must
// be closed.
type Document struct {
	Source  []byte
	Root    *sitter.Node
	Newline string

	tree *sitter.Tree
}

// Parse parses src as a Python module. Sources containing syntax errors are
// rejected with CodeParseFailed.
func Parse(src []byte) (*Document, error) {
	start := time.Now()
	defer func() { observability.ParseDuration.Observe(time.Since(start).Seconds()) }()

	sp := defaultPool.Get()
	defer defaultPool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseFailed, "parser returned no tree")
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		return nil, errors.New(errors.CodeParseFailed, "source contains syntax errors")
	}

	nl := "\n"
	if bytes.Contains(src, []byte("\r\n")) {
		nl = "\r\n"
	}
	return &Document{Source: src, Root: root, Newline: nl, tree: tree}, nil
}

func (d *Document) Close() {
	if d == nil || d.tree == nil {
		return
	}
	d.tree.Close()
	d.tree = nil
}

// ParseExpression parses text as a single Python expression. The returned
// document must be closed by the caller.
func ParseExpression(text string) (*Document, *sitter.Node, error) {
	doc, err := Parse([]byte(text + "\n"))
	if err != nil {
		return nil, nil, err
	}
	stmts := NamedChildren(doc.Root)
	if len(stmts) != 1 || stmts[0].Kind() != "expression_statement" {
		doc.Close()
		return nil, nil, errors.New(errors.CodeParseFailed, "not a single expression")
	}
	inner := NamedChildren(stmts[0])
	if len(inner) != 1 || inner[0].Kind() == "assignment" || inner[0].Kind() == "augmented_assignment" {
		doc.Close()
		return nil, nil, errors.New(errors.CodeParseFailed, "not a single expression")
	}
	return doc, inner[0], nil
}

// Off converts a tree-sitter byte offset into an int index.
func Off(n uint) int {
	v, err := safecast.Conv[int](n)
	if err != nil {
		return math.MaxInt
	}
	return v
}

func Start(n *sitter.Node) int { return Off(n.StartByte()) }

func End(n *sitter.Node) int { return Off(n.EndByte()) }

func (d *Document) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(d.Source[Start(n):End(n)])
}

func (d *Document) Slice(start, end int) string {
	return string(d.Source[start:end])
}

// Row returns the zero-based line of n's first byte.
func Row(n *sitter.Node) int {
	return Off(n.StartPosition().Row)
}

// EndRow returns the zero-based line of n's last byte.
func EndRow(n *sitter.Node) int {
	return Off(n.EndPosition().Row)
}

// ContentEnd returns the end of n ignoring trailing comments that the grammar
// folds into nested blocks.
func ContentEnd(n *sitter.Node) int {
	for {
		count := n.ChildCount()
		var last *sitter.Node
		for i := count; i > 0; i-- {
			c := n.Child(i - 1)
			if c.Kind() == "comment" {
				continue
			}
			if c.EndByte() == c.StartByte() {
				continue
			}
			last = c
			break
		}
		if last == nil {
			return End(n)
		}
		n = last
		if n.ChildCount() == 0 {
			return End(n)
		}
	}
}
