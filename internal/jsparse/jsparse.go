// Package jsparse exposes the narrow view of an ECMAScript syntax tree that
// prologue extraction needs: the top-level statements of a program and, for
// each, whether it is a string-literal expression statement.
package jsparse

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"prologue/internal/source"
)

// ErrSyntax is returned when the text does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

// Flag is a backend's own verdict on whether a literal is a directive.
type Flag uint8

const (
	// FlagUnknown means the backend leaves the decision to the textual rule.
	FlagUnknown Flag = iota
	FlagSet
	FlagUnset
)

func (f Flag) String() string {
	switch f {
	case FlagSet:
		return "set"
	case FlagUnset:
		return "unset"
	default:
		return "unknown"
	}
}

// Dialect selects a grammar.
type Dialect uint8

const (
	DialectJS Dialect = iota
	DialectTS
	DialectTSX
)

func (d Dialect) String() string {
	switch d {
	case DialectTS:
		return "ts"
	case DialectTSX:
		return "tsx"
	default:
		return "js"
	}
}

// DialectFor picks the grammar for a file extension. JSX is part of the
// JavaScript grammar.
func DialectFor(ext string) Dialect {
	switch strings.ToLower(ext) {
	case ".ts", ".mts", ".cts":
		return DialectTS
	case ".tsx":
		return DialectTSX
	default:
		return DialectJS
	}
}

// DialectForPath is DialectFor applied to the extension of path.
func DialectForPath(path string) Dialect {
	return DialectFor(filepath.Ext(path))
}

// Statement is one top-level statement as seen by a backend adapter.
type Statement interface {
	// Span is the exact source range of the statement, terminator included.
	Span() source.Span
	// Literal reports whether the statement is an expression statement whose
	// sole expression is a string literal, and if so the raw text between
	// its quotes together with the backend's directive flag.
	Literal() (text string, flag Flag, ok bool)
}

// Program is a parsed module.
type Program interface {
	// IsProgram reports whether the root is a program node.
	IsProgram() bool
	// Statements lists top-level statements in source order. Comments are
	// not statements.
	Statements() []Statement
}

// Parser is implemented by every backend. Implementations must accept a
// leading hashbang line and top-level return statements.
type Parser interface {
	Parse(ctx context.Context, file source.FileID, text []byte, dialect Dialect) (Program, error)
}
