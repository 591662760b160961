package chunk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"prologue/internal/directive"
)

// ErrUnknownShape is returned by Detect for JSON that carries no membership.
var ErrUnknownShape = errors.New("chunk: unrecognized membership shape")

// ModuleList is the newer host shape: an ordered "moduleIds" array.
type ModuleList struct {
	FileName       string   `json:"fileName,omitempty"`
	IDs            []string `json:"moduleIds"`
	FacadeModuleID string   `json:"facadeModuleId,omitempty"`
}

func (l *ModuleList) ModuleIDs() []directive.ModuleID { return toIDs(l.IDs) }

func (l *ModuleList) Facade() (directive.ModuleID, bool) {
	return directive.ModuleID(l.FacadeModuleID), l.FacadeModuleID != ""
}

// KeyedInputs is the older shape: an object keyed by module id, where key
// order is bundle order. Values are ignored.
type KeyedInputs struct {
	FileName   string
	Keys       []string
	EntryPoint string
}

func (k *KeyedInputs) ModuleIDs() []directive.ModuleID { return toIDs(k.Keys) }

func (k *KeyedInputs) Facade() (directive.ModuleID, bool) {
	return directive.ModuleID(k.EntryPoint), k.EntryPoint != ""
}

func toIDs(in []string) []directive.ModuleID {
	out := make([]directive.ModuleID, len(in))
	for i, s := range in {
		out[i] = directive.ModuleID(s)
	}
	return out
}

// Detect picks the backing for one chunk record. "moduleIds" selects
// ModuleList; a "modules" or "inputs" object selects KeyedInputs, with the
// facade read from "facadeModuleId" or "entryPoint".
func Detect(raw json.RawMessage) (Membership, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if _, ok := probe["moduleIds"]; ok {
		var l ModuleList
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("chunk: moduleIds: %w", err)
		}
		return &l, nil
	}
	for _, field := range []string{"modules", "inputs"} {
		obj, ok := probe[field]
		if !ok {
			continue
		}
		keys, err := ObjectKeys(obj)
		if err != nil {
			return nil, fmt.Errorf("chunk: %s: %w", field, err)
		}
		k := &KeyedInputs{Keys: keys}
		for _, f := range []string{"facadeModuleId", "entryPoint"} {
			if v, ok := probe[f]; ok {
				if err := json.Unmarshal(v, &k.EntryPoint); err != nil {
					return nil, fmt.Errorf("chunk: %s: %w", f, err)
				}
				break
			}
		}
		if v, ok := probe["fileName"]; ok {
			if err := json.Unmarshal(v, &k.FileName); err != nil {
				return nil, fmt.Errorf("chunk: fileName: %w", err)
			}
		}
		return k, nil
	}
	return nil, ErrUnknownShape
}

// ObjectKeys returns the keys of a JSON object in document order.
func ObjectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
