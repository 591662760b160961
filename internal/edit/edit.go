// Package edit applies remove/prepend operations to an immutable original
// text and keeps enough bookkeeping to map output offsets back to it.
package edit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"prologue/internal/source"
)

// ErrConflict is returned when two removals overlap or a span leaves the text.
var ErrConflict = errors.New("edit: conflicting spans")

// OpKind discriminates edit operations.
type OpKind uint8

const (
	OpRemove OpKind = iota + 1
	OpPrepend
)

func (k OpKind) String() string {
	switch k {
	case OpRemove:
		return "remove"
	case OpPrepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// Op is a single edit. Remove uses Span, Prepend uses Text.
type Op struct {
	Kind OpKind
	Span source.Span
	Text string
}

// List is an ordered collection of edits against one original text.
type List struct {
	ops []Op
}

// Remove marks span for deletion. Empty spans are ignored.
func (l *List) Remove(span source.Span) {
	if span.Empty() {
		return
	}
	l.ops = append(l.ops, Op{Kind: OpRemove, Span: span})
}

// Prepend inserts text before the original content. Several prepends are
// emitted in call order.
func (l *List) Prepend(text string) {
	if text == "" {
		return
	}
	l.ops = append(l.ops, Op{Kind: OpPrepend, Text: text})
}

// Empty reports whether the list holds no operations.
func (l *List) Empty() bool {
	return l == nil || len(l.ops) == 0
}

// Ops returns a copy of the recorded operations.
func (l *List) Ops() []Op {
	if l == nil {
		return nil
	}
	return append([]Op(nil), l.ops...)
}

// Result is the edited text together with its position remap.
type Result struct {
	Text  string
	Remap *Remap
}

// Apply produces the edited text. Everything not removed is kept verbatim
// and in order.
func (l *List) Apply(original string) (Result, error) {
	origLen, err := safecast.Conv[uint32](len(original))
	if err != nil {
		return Result{}, fmt.Errorf("edit: text too large: %w", err)
	}

	var prefix strings.Builder
	removals := make([]source.Span, 0, len(l.Ops()))
	for _, op := range l.Ops() {
		switch op.Kind {
		case OpPrepend:
			prefix.WriteString(op.Text)
		case OpRemove:
			if op.Span.End > origLen || op.Span.Start > op.Span.End {
				return Result{}, fmt.Errorf("%w: span %s outside text of %d bytes", ErrConflict, op.Span, origLen)
			}
			removals = append(removals, op.Span)
		}
	}
	sort.Slice(removals, func(i, j int) bool { return removals[i].Start < removals[j].Start })
	for i := 1; i < len(removals); i++ {
		if removals[i].Start < removals[i-1].End {
			return Result{}, fmt.Errorf("%w: %s overlaps %s", ErrConflict, removals[i], removals[i-1])
		}
	}

	remap := &Remap{}
	var out strings.Builder
	out.Grow(prefix.Len() + len(original))
	out.WriteString(prefix.String())
	if prefix.Len() > 0 {
		remap.add(Segment{Out: 0, Len: uint32(prefix.Len()), Generated: true})
	}

	cursor := uint32(0)
	keep := func(start, end uint32) {
		if start == end {
			return
		}
		outOff := uint32(out.Len())
		out.WriteString(original[start:end])
		remap.add(Segment{Out: outOff, Orig: start, Len: end - start})
	}
	for _, r := range removals {
		keep(cursor, r.Start)
		cursor = r.End
	}
	keep(cursor, origLen)

	return Result{Text: out.String(), Remap: remap}, nil
}
