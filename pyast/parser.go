// Package pyast parses Python source into tree-sitter syntax trees and
// provides a depth-first walker that tracks lexical scope.
package pyast

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ParseError describes malformed source in a single file. It is scoped to
// that file: the caller reports it as one parse_error violation and skips
// rule evaluation, without aborting a multi-file run.
type ParseError struct {
	// Message is a short description of the failure.
	Message string

	// Line is the approximate 1-based line of the first syntax error.
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Tree is a fully parsed source file. Parsing never partially succeeds:
// either a complete Tree is produced or a ParseError is returned.
type Tree struct {
	tree *sitter.Tree
	src  []byte
}

// Root returns the module-level root node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Src returns the raw source the tree was parsed from.
func (t *Tree) Src() []byte {
	return t.src
}

// Text returns the source text covered by a node.
func (t *Tree) Text(n *sitter.Node) string {
	return string(t.src[n.StartByte():n.EndByte()])
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// Parser wraps a tree-sitter parser configured for the Python grammar.
// A Parser is not safe for concurrent use; create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses src. On malformed syntax the returned error is a *ParseError
// rather than a partial tree; rule evaluation must only ever see complete
// trees. Context cancellation is returned as-is: an interrupted parse says
// nothing about the source being malformed.
func (p *Parser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	// ParseCtx only observes cancellation mid-parse; short sources can win
	// the race and parse anyway. Check up front so an already-canceled
	// context never produces a tree.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ParseError{Message: err.Error(), Line: 1}
	}

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, &ParseError{Message: "syntax error", Line: line}
	}

	return &Tree{tree: tree, src: src}, nil
}

// firstErrorLine locates the first ERROR or MISSING node depth-first and
// returns its 1-based line.
func firstErrorLine(root *sitter.Node) int {
	var walk func(n *sitter.Node) int
	walk = func(n *sitter.Node) int {
		if n.Type() == "ERROR" || n.IsMissing() {
			return int(n.StartPoint().Row) + 1
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if line := walk(n.Child(i)); line > 0 {
				return line
			}
		}
		return 0
	}

	if line := walk(root); line > 0 {
		return line
	}
	return 1
}
