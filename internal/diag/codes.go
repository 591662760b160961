package diag

import (
	"fmt"
	"strings"
)

type Code uint16

const (
	// UnknownCode covers host messages without a recognised category.
	UnknownCode Code = 0

	// Module phase
	ModuleParseFailure Code = 1001
	ModuleSkipped      Code = 1002

	// Chunk phase
	ModuleLevelDirective Code = 2001
	ChunkSourcemapBroken Code = 2002

	// Host / infrastructure
	HostMessage  Code = 3001
	CacheCorrupt Code = 4001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown diagnostic",
		ModuleParseFailure:   "Module could not be parsed",
		ModuleSkipped:        "Module skipped",
		ModuleLevelDirective: "Module level directive away from the top of a file was ignored",
		ChunkSourcemapBroken: "Chunk source map could not be regenerated",
		HostMessage:          "Message forwarded from the bundler",
		CacheCorrupt:         "Extraction cache entry is unreadable",
	}

	// codeName holds the stable category names hosts use to label log records.
	codeName = map[Code]string{
		UnknownCode:          "UNKNOWN",
		ModuleParseFailure:   "PARSE_FAILURE",
		ModuleSkipped:        "MODULE_SKIPPED",
		ModuleLevelDirective: "MODULE_LEVEL_DIRECTIVE",
		ChunkSourcemapBroken: "SOURCEMAP_BROKEN",
		HostMessage:          "HOST_MESSAGE",
		CacheCorrupt:         "CACHE_CORRUPT",
	}
)

// ID returns the short numeric identifier, e.g. "MOD1001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("MOD%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CHK%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("HST%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	default:
		return fmt.Sprintf("E%04d", ic)
	}
}

// Name returns the category name, e.g. "MODULE_LEVEL_DIRECTIVE".
func (c Code) Name() string {
	if name, ok := codeName[c]; ok {
		return name
	}
	return codeName[UnknownCode]
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// LookupCode maps a host category (a category name, a code ID or one of the
// given aliases) to a Code. Matching is case-insensitive.
func LookupCode(category string, aliases map[string]Code) (Code, bool) {
	category = strings.TrimSpace(category)
	if category == "" {
		return UnknownCode, false
	}
	for alias, code := range aliases {
		if strings.EqualFold(alias, category) {
			return code, true
		}
	}
	for code, name := range codeName {
		if code == UnknownCode {
			continue
		}
		if strings.EqualFold(name, category) || strings.EqualFold(code.ID(), category) {
			return code, true
		}
	}
	return UnknownCode, false
}
