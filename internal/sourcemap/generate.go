package sourcemap

import (
	"sort"
	"strings"
	"unicode/utf8"

	"prologue/internal/edit"
	"prologue/internal/source"
)

// Options controls map generation.
type Options struct {
	File           string
	Source         string
	IncludeContent bool
}

// lineTable resolves byte offsets to zero-based line and UTF-16 column.
type lineTable struct {
	text   string
	starts []int
}

func newLineTable(text string) lineTable {
	starts := []int{0}
	for pos := 0; ; {
		at, width, ok := source.NextLineBreak(text, pos, true)
		if !ok {
			break
		}
		pos = at + width
		starts = append(starts, pos)
	}
	return lineTable{text: text, starts: starts}
}

func (t lineTable) position(off int) (line, col int) {
	line = sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return line, utf16Len(t.text[t.starts[line]:off])
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// FromRemap builds a map from the edited output back to original. A segment
// is emitted at the start of every generated line and wherever the remap
// jumps, so lines stitched from several original ranges stay exact.
func FromRemap(remap *edit.Remap, output, original string, opts Options) *Map {
	gen := newLineTable(output)
	orig := newLineTable(original)

	points := make(map[int]struct{})
	for _, start := range gen.starts {
		if start < len(output) {
			points[start] = struct{}{}
		}
	}
	for _, seg := range remap.Segments() {
		if !seg.Generated {
			points[int(seg.Out)] = struct{}{}
		}
	}
	offsets := make([]int, 0, len(points))
	for off := range points {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	var sb strings.Builder
	var curLine, prevGenCol, prevOrigLine, prevOrigCol int
	firstInLine := true
	for _, off := range offsets {
		o, ok := remap.Original(uint32(off))
		if !ok {
			continue
		}
		line, col := gen.position(off)
		for curLine < line {
			sb.WriteByte(';')
			curLine++
			prevGenCol = 0
			firstInLine = true
		}
		if !firstInLine {
			sb.WriteByte(',')
		}
		oLine, oCol := orig.position(int(o))
		appendVLQ(&sb, col-prevGenCol)
		appendVLQ(&sb, 0)
		appendVLQ(&sb, oLine-prevOrigLine)
		appendVLQ(&sb, oCol-prevOrigCol)
		prevGenCol, prevOrigLine, prevOrigCol = col, oLine, oCol
		firstInLine = false
	}

	m := &Map{
		Version:  3,
		File:     opts.File,
		Sources:  []string{opts.Source},
		Names:    []string{},
		Mappings: sb.String(),
	}
	if opts.IncludeContent && utf8.ValidString(original) {
		content := original
		m.SourcesContent = []*string{&content}
	}
	return m
}

// CountLines returns how many line breaks text contains. Prepending text that
// ends in a line break shifts the following content by exactly this many lines.
func CountLines(text string) int {
	n := 0
	for pos := 0; ; {
		at, width, ok := source.NextLineBreak(text, pos, true)
		if !ok {
			return n
		}
		n++
		pos = at + width
	}
}
