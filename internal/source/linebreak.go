package source

import "unicode/utf8"

const (
	lineSeparator      = '\u2028'
	paragraphSeparator = '\u2029'
)

// IsLineBreak reports whether r terminates a line in ECMAScript source text.
func IsLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', lineSeparator, paragraphSeparator:
		return true
	}
	return false
}

// NextLineBreak finds the first line break at or after byte offset from.
// It returns the offset of the break and its width in bytes. A "\r\n" pair
// counts as a single break of width 2 only when crlf is true; otherwise the
// '\r' alone is reported.
func NextLineBreak(text string, from int, crlf bool) (at, width int, ok bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(text); {
		c := text[i]
		if c < utf8.RuneSelf {
			switch c {
			case '\n':
				return i, 1, true
			case '\r':
				if crlf && i+1 < len(text) && text[i+1] == '\n' {
					return i, 2, true
				}
				return i, 1, true
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == lineSeparator || r == paragraphSeparator {
			return i, size, true
		}
		i += size
	}
	return 0, 0, false
}
