package cache

import (
	"sync"

	"prologue/internal/extract"
)

// Memory is a per-process record cache.
type Memory struct {
	mu   sync.RWMutex
	recs map[[32]byte]*extract.Record
}

// NewMemory creates a Memory with the given capacity hint.
func NewMemory(capHint int) *Memory {
	return &Memory{recs: make(map[[32]byte]*extract.Record, capHint)}
}

func (c *Memory) Get(key [32]byte) (*extract.Record, bool) {
	c.mu.RLock()
	rec, ok := c.recs[key]
	c.mu.RUnlock()
	return rec, ok
}

func (c *Memory) Put(key [32]byte, rec *extract.Record) error {
	c.mu.Lock()
	c.recs[key] = rec
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached records.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recs)
}

// Layered checks the in-process cache before the disk and fills it on disk
// hits.
type Layered struct {
	mem  *Memory
	disk *Disk
}

// NewLayered combines mem and disk; disk may be nil.
func NewLayered(mem *Memory, disk *Disk) *Layered {
	return &Layered{mem: mem, disk: disk}
}

func (c *Layered) Get(key [32]byte) (*extract.Record, bool) {
	if rec, ok := c.mem.Get(key); ok {
		return rec, true
	}
	if c.disk == nil {
		return nil, false
	}
	rec, ok := c.disk.Get(key)
	if ok {
		_ = c.mem.Put(key, rec)
	}
	return rec, ok
}

func (c *Layered) Put(key [32]byte, rec *extract.Record) error {
	_ = c.mem.Put(key, rec)
	if c.disk == nil {
		return nil
	}
	return c.disk.Put(key, rec)
}
