package diagfmt

import (
	"prologue/internal/source"
)

// resolvedFile returns the file a span points into, or nil when the span has
// no backing file in fs.
func resolvedFile(fs *source.FileSet, span source.Span) *source.File {
	if fs == nil {
		return nil
	}
	return fs.Get(span.File)
}

func displayPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	case PathModeAuto:
		return f.FormatPath("auto", "")
	default:
		return f.Path
	}
}
