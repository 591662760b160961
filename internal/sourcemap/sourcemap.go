// Package sourcemap models version 3 source maps: encoding mappings from an
// edit remap, shifting a map below prepended lines, and reading maps back.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Map is a version 3 source map.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Mapping is one decoded segment. Source, OrigLine and OrigCol are -1 for
// segments that only carry a generated column.
type Mapping struct {
	GenCol   int
	Source   int
	OrigLine int
	OrigCol  int
}

// Parse decodes a JSON source map.
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("sourcemap: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("sourcemap: unsupported version %d", m.Version)
	}
	return &m, nil
}

// Marshal encodes the map as JSON.
func (m *Map) Marshal() ([]byte, error) {
	if m.Sources == nil {
		m.Sources = []string{}
	}
	if m.Names == nil {
		m.Names = []string{}
	}
	return json.Marshal(m)
}

// ShiftLines moves every mapping n generated lines down, which is exactly the
// effect of prepending n complete lines to the generated file.
func (m *Map) ShiftLines(n int) {
	if n <= 0 {
		return
	}
	m.Mappings = strings.Repeat(";", n) + m.Mappings
}

// Lines decodes the mappings into per-generated-line segments with absolute
// values.
func (m *Map) Lines() ([][]Mapping, error) {
	var lines [][]Mapping
	var current []Mapping
	var source, origLine, origCol int
	s := m.Mappings
	genCol := 0
	for i := 0; i < len(s); {
		switch s[i] {
		case ';':
			lines = append(lines, current)
			current = nil
			genCol = 0
			i++
			continue
		case ',':
			i++
			continue
		}
		var fields [5]int
		n := 0
		for i < len(s) && s[i] != ',' && s[i] != ';' {
			if n == len(fields) {
				return nil, errBadVLQ
			}
			v, next, err := readVLQ(s, i)
			if err != nil {
				return nil, err
			}
			fields[n] = v
			n++
			i = next
		}
		genCol += fields[0]
		seg := Mapping{GenCol: genCol, Source: -1, OrigLine: -1, OrigCol: -1}
		if n >= 4 {
			source += fields[1]
			origLine += fields[2]
			origCol += fields[3]
			seg.Source, seg.OrigLine, seg.OrigCol = source, origLine, origCol
		} else if n != 1 {
			return nil, errBadVLQ
		}
		current = append(current, seg)
	}
	lines = append(lines, current)
	return lines, nil
}

const dataURLPrefix = "data:application/json;base64,"

// DataURL renders the map as a base64 data URL.
func (m *Map) DataURL() (string, error) {
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// ParseDataURL decodes a map embedded as a base64 data URL.
func ParseDataURL(url string) (*Map, error) {
	idx := strings.Index(url, ";base64,")
	if !strings.HasPrefix(url, "data:") || idx < 0 {
		return nil, fmt.Errorf("sourcemap: not a base64 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(url[idx+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("sourcemap: %w", err)
	}
	return Parse(data)
}
