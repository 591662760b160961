package jsparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"prologue/internal/source"
)

// TreeSitter parses with the tree-sitter JavaScript and TypeScript grammars.
// A sitter.Parser is not safe for concurrent use, so each call creates its
// own; TreeSitter itself is stateless and may be shared.
type TreeSitter struct{}

// NewTreeSitter returns the tree-sitter backend.
func NewTreeSitter() TreeSitter { return TreeSitter{} }

func language(d Dialect) *sitter.Language {
	switch d {
	case DialectTS:
		return typescript.GetLanguage()
	case DialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Parse implements Parser. The tree is walked eagerly and closed before
// returning, so the Program holds no native memory.
func (TreeSitter) Parse(ctx context.Context, file source.FileID, text []byte, dialect Dialect) (Program, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language(dialect))

	tree, err := parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter %s: %w", dialect, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstError(root)
		return nil, fmt.Errorf("%w at %d:%d", ErrSyntax, line, col)
	}

	prog := &tsProgram{isProgram: root.Type() == "program"}
	if !prog.isProgram {
		return prog, nil
	}
	prologue := true
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "comment", "hash_bang_line":
			continue
		}
		st, bare := newStatement(child, file, text)
		// The ECMAScript directive prologue is the run of unparenthesized
		// string statements at the top of the program.
		if prologue && bare {
			st.flag = FlagSet
		} else {
			prologue = false
		}
		prog.stmts = append(prog.stmts, st)
	}
	return prog, nil
}

// newStatement builds the view of one top-level statement. bare reports an
// unparenthesized string expression statement. A string wrapped in a single
// pair of parentheses is still a literal, but never a directive.
func newStatement(n *sitter.Node, file source.FileID, text []byte) (st tsStatement, bare bool) {
	st = tsStatement{span: source.Span{File: file, Start: n.StartByte(), End: n.EndByte()}}
	if n.Type() != "expression_statement" {
		return st, false
	}
	expr := soleChild(n)
	if expr == nil {
		return st, false
	}
	bare = true
	if expr.Type() == "parenthesized_expression" {
		bare = false
		expr = soleChild(expr)
		if expr == nil {
			return st, false
		}
	}
	if expr.Type() != "string" {
		return st, false
	}
	raw := expr.Content(text)
	if len(raw) < 2 {
		return st, false
	}
	st.literal = true
	st.text = raw[1 : len(raw)-1]
	return st, bare
}

// soleChild returns the only named non-comment child of n.
func soleChild(n *sitter.Node) *sitter.Node {
	var only *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	return only
}

// firstError locates the first ERROR or MISSING node, 1-based.
func firstError(n *sitter.Node) (line, col uint32) {
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return p.Row + 1, p.Column + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() {
			return firstError(c)
		}
	}
	p := n.StartPoint()
	return p.Row + 1, p.Column + 1
}

type tsProgram struct {
	isProgram bool
	stmts     []Statement
}

func (p *tsProgram) IsProgram() bool         { return p.isProgram }
func (p *tsProgram) Statements() []Statement { return p.stmts }

type tsStatement struct {
	span    source.Span
	literal bool
	text    string
	flag    Flag
}

func (s tsStatement) Span() source.Span { return s.span }

// Literal reports FlagSet for members of the directive prologue. Literals
// outside it carry FlagUnknown, as an ESTree parser leaves them unmarked.
func (s tsStatement) Literal() (string, Flag, bool) {
	return s.text, s.flag, s.literal
}
