package extract

import (
	"path"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the ECMAScript-family extensions processed when no
// override is configured.
var DefaultExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// Filter decides which modules are processed.
type Filter struct {
	exts    map[string]struct{}
	include []string
	exclude []string
}

// NewFilter builds a filter. Empty exts means DefaultExtensions; empty
// include means every module.
func NewFilter(exts, include, exclude []string) *Filter {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	f := &Filter{exts: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f.exts[e] = struct{}{}
	}
	f.include = normalizePatterns(include)
	f.exclude = normalizePatterns(exclude)
	return f
}

func normalizePatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, filepath.ToSlash(p))
		}
	}
	return out
}

// Extension returns the lower-cased extension of id, ignoring any query or
// fragment suffix some hosts append to module ids.
func Extension(id string) string {
	if i := strings.IndexAny(id, "?#"); i > 0 {
		id = id[:i]
	}
	return strings.ToLower(path.Ext(filepath.ToSlash(id)))
}

// Accepts reports whether a module with the given id and extension should be
// processed.
func (f *Filter) Accepts(id, ext string) bool {
	if ext == "" {
		ext = Extension(id)
	}
	if _, ok := f.exts[strings.ToLower(ext)]; !ok {
		return false
	}
	slashed := filepath.ToSlash(id)
	if len(f.include) > 0 && !matchAny(f.include, slashed) {
		return false
	}
	return !matchAny(f.exclude, slashed)
}

func matchAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if matchGlob(p, id) {
			return true
		}
	}
	return false
}

// matchGlob extends path.Match with "**" spanning any number of segments.
// Patterns without a slash are matched against the base name.
func matchGlob(pattern, id string) bool {
	if !strings.Contains(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(id))
		return ok
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(strings.TrimPrefix(id, "/"), "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}
