package chunk

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest lists pre-bundled chunk files together with their membership.
type Manifest struct {
	Chunks []Entry
}

// Entry is one chunk of a manifest.
type Entry struct {
	FileName   string
	Membership Membership
}

// manifestFile is the on-disk shape: {"chunks": [ {...}, ... ]} or a bare
// array of chunk records.
type manifestFile struct {
	Chunks []json.RawMessage `json:"chunks"`
}

// ParseManifest decodes a manifest whose records may use either membership
// shape, even mixed within one file.
func ParseManifest(data []byte) (*Manifest, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		var mf manifestFile
		if err2 := json.Unmarshal(data, &mf); err2 != nil {
			return nil, fmt.Errorf("chunk manifest: %w", err2)
		}
		records = mf.Chunks
	}
	m := &Manifest{Chunks: make([]Entry, 0, len(records))}
	for i, rec := range records {
		mem, err := Detect(rec)
		if err != nil {
			return nil, fmt.Errorf("chunk manifest: record %d: %w", i, err)
		}
		var named struct {
			FileName string `json:"fileName"`
		}
		if err := json.Unmarshal(rec, &named); err != nil {
			return nil, fmt.Errorf("chunk manifest: record %d: fileName: %w", i, err)
		}
		if named.FileName == "" {
			return nil, fmt.Errorf("chunk manifest: record %d has no fileName", i)
		}
		m.Chunks = append(m.Chunks, Entry{FileName: named.FileName, Membership: mem})
	}
	return m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}
