package source

import (
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBOM strips a UTF-8 byte order mark and transcodes UTF-16 input
// (detected by its BOM) to UTF-8. Content without a BOM is returned as is.
func decodeBOM(content []byte) ([]byte, bool, error) {
	if !hasBOM(content) {
		return content, false, nil
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), content)
	if err != nil {
		return content, false, err
	}
	return out, true, nil
}

func hasBOM(content []byte) bool {
	switch {
	case len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF:
		return true
	case len(content) >= 2 && content[0] == 0xFE && content[1] == 0xFF:
		return true
	case len(content) >= 2 && content[0] == 0xFF && content[1] == 0xFE:
		return true
	}
	return false
}

// buildLineIndex records the start offset of every line after the first.
// CRLF is one terminator; lone CR, LS and PS each end a line too.
func buildLineIndex(content []byte) []uint32 {
	text := string(content)
	out := make([]uint32, 0, len(content)/32+1)
	for pos := 0; ; {
		at, width, ok := NextLineBreak(text, pos, true)
		if !ok {
			break
		}
		pos = at + width
		out = append(out, uint32(pos))
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// бинпоиск: наибольший lineIdx[i] <= off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] <= off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if hi < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	return LineCol{Line: uint32(hi + 2), Col: off - lineIdx[hi] + 1}
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}

// RelativePath returns target relative to baseDir, or the normalized absolute
// path when target lies outside baseDir.
func RelativePath(target, baseDir string) (string, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return normalizePath(absTarget), nil
	}
	if rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(os.PathSeparator) {
		return normalizePath(absTarget), nil
	}
	return normalizePath(rel), nil
}
