package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"prologue/internal/diag"
	"prologue/internal/source"
)

type palette struct {
	err, warn, info, bold, dim, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		bold:  color.New(color.Bold),
		dim:   color.New(color.Faint),
		caret: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.bold, p.dim, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем, если включено, строку исходника с подчёркиванием ^~~~ по Span.
// Диагностики без файла печатаются с id модуля вместо пути.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for _, d := range items {
		loc := locationLabel(d.Primary, d.Module, fs, opts.PathMode)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			pal.bold.Sprint(loc),
			pal.severity(d.Severity).Sprint(strings.ToUpper(d.Severity.String())),
			pal.dim.Sprint(d.Code.ID()),
			d.Message,
		)
		if opts.ShowSource {
			writeSnippet(w, pal, fs, d.Primary)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(w, "  %s %s\n", pal.info.Sprint("note:"), n.Msg)
			}
		}
	}
}

func locationLabel(span source.Span, module string, fs *source.FileSet, mode PathMode) string {
	f := resolvedFile(fs, span)
	if f == nil {
		if module == "" {
			return "<build>"
		}
		return module
	}
	start := f.Position(span.Start)
	return fmt.Sprintf("%s:%d:%d", displayPath(f, fs, mode), start.Line, start.Col)
}

// writeSnippet prints the first line of span with a caret underline. The
// underline is measured in terminal cells.
func writeSnippet(w io.Writer, pal palette, fs *source.FileSet, span source.Span) {
	f := resolvedFile(fs, span)
	if f == nil {
		return
	}
	start := f.Position(span.Start)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	col := int(start.Col) - 1
	col = min(max(col, 0), len(line))
	width := int(span.Len())
	if width <= 0 || col+width > len(line) {
		width = len(line) - col
	}
	prefix := runewidth.StringWidth(strings.ReplaceAll(line[:col], "\t", "    "))
	under := max(runewidth.StringWidth(line[col:col+width]), 1)

	gutter := fmt.Sprintf("%4d | ", start.Line)
	fmt.Fprintf(w, "%s%s\n", pal.dim.Sprint(gutter), strings.ReplaceAll(line, "\t", "    "))
	fmt.Fprintf(w, "%s%s%s\n",
		strings.Repeat(" ", len(gutter)+prefix),
		pal.caret.Sprint("^"),
		pal.caret.Sprint(strings.Repeat("~", under-1)),
	)
}
