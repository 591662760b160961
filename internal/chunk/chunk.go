// Package chunk describes which modules ended up in an output chunk.
//
// Bundlers report membership in different shapes: newer hosts give an ordered
// list of module ids, older ones an object keyed by module id (the esbuild
// metafile "inputs" of an output, or a rollup "modules" map). Both are
// hidden behind Membership.
package chunk

import (
	"prologue/internal/directive"
)

// Membership lists a chunk's surviving modules in bundle order and names the
// facade module, if any.
type Membership interface {
	ModuleIDs() []directive.ModuleID
	Facade() (directive.ModuleID, bool)
}

// Descriptor is the normalized membership handed to synthesis. An empty
// Entry means the chunk has no facade; hosts never assign empty ids.
type Descriptor struct {
	Modules []directive.ModuleID
	Entry   directive.ModuleID
}

func (d Descriptor) ModuleIDs() []directive.ModuleID { return d.Modules }

func (d Descriptor) Facade() (directive.ModuleID, bool) {
	return d.Entry, d.Entry != ""
}

// Describe normalizes any Membership into a Descriptor.
func Describe(m Membership) Descriptor {
	if d, ok := m.(Descriptor); ok {
		return d
	}
	desc := Descriptor{Modules: append([]directive.ModuleID(nil), m.ModuleIDs()...)}
	if f, ok := m.Facade(); ok {
		desc.Entry = f
	}
	return desc
}
