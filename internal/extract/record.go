package extract

import (
	"crypto/sha256"

	"prologue/internal/source"
)

// Record is what extraction learned about one module text. It is enough to
// replay the edit and the store writes without parsing again.
type Record struct {
	Shebang    string        `msgpack:"shebang"`
	HasShebang bool          `msgpack:"has_shebang"`
	Directives []string      `msgpack:"directives"`
	Removals   []source.Span `msgpack:"removals"`
}

// Empty reports whether the module needs no edit.
func (r *Record) Empty() bool {
	return r == nil || len(r.Removals) == 0
}

// RecordCache persists records across builds. Implementations must be safe
// for concurrent use.
type RecordCache interface {
	Get(key [32]byte) (*Record, bool)
	Put(key [32]byte, rec *Record) error
}

// recordVersion is mixed into cache keys; bump it when detection rules change.
const recordVersion = "prologue-extract-v1"

// RecordKey derives the cache key of a module text parsed with ext.
func RecordKey(ext, text string) [32]byte {
	h := sha256.New()
	h.Write([]byte(recordVersion))
	h.Write([]byte{0})
	h.Write([]byte(ext))
	h.Write([]byte{0})
	h.Write([]byte(text))
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
