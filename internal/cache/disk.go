// Package cache keeps extraction records between builds so unchanged
// modules are not parsed again.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"prologue/internal/extract"
)

// Current schema version - increment when payload format changes
const schemaVersion uint16 = 1

// ErrSchema marks an entry written by a different schema version.
var ErrSchema = errors.New("cache: schema mismatch")

// Disk stores records as msgpack files keyed by content digest.
// Thread-safe for concurrent access.
type Disk struct {
	mu  sync.RWMutex
	dir string
	log *zap.Logger
}

// payload is the on-disk envelope of one record.
type payload struct {
	Schema  uint16          `msgpack:"schema"`
	Written int64           `msgpack:"written"`
	Record  *extract.Record `msgpack:"record"`
}

// DefaultDir returns $XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDisk creates dir if needed and returns a cache rooted there.
func OpenDisk(dir string, log *zap.Logger) (*Disk, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Disk{dir: dir, log: log}, nil
}

// Dir returns the cache root.
func (c *Disk) Dir() string { return c.dir }

func (c *Disk) pathFor(key [32]byte) string {
	hexKey := hex.EncodeToString(key[:])
	// two-letter fan-out directory
	return filepath.Join(c.dir, "records", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a record.
func (c *Disk) Put(key [32]byte, rec *extract.Record) (err error) {
	if c == nil || rec == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&payload{Schema: schemaVersion, Written: time.Now().Unix(), Record: rec}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Load reads a record. A missing entry is (nil, nil); unreadable or foreign
// entries return an error.
func (c *Disk) Load(key [32]byte) (*extract.Record, error) {
	if c == nil {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out payload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", hex.EncodeToString(key[:4]), err)
	}
	if out.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, out.Schema, schemaVersion)
	}
	if out.Record == nil {
		return nil, fmt.Errorf("cache: empty entry")
	}
	return out.Record, nil
}

// Get implements extract.RecordCache. Corrupt entries count as misses.
func (c *Disk) Get(key [32]byte) (*extract.Record, bool) {
	rec, err := c.Load(key)
	if err != nil {
		c.log.Debug("ignoring unreadable cache entry", zap.Error(err))
		return nil, false
	}
	return rec, rec != nil
}

// DropAll invalidates the cache.
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// rename the directory, then remove it whole
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
