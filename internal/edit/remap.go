package edit

import "sort"

// Segment maps a contiguous run of output bytes. Generated runs have no
// counterpart in the original text.
type Segment struct {
	Out       uint32
	Orig      uint32
	Len       uint32
	Generated bool
}

// Remap translates offsets of an edited text back to the original.
type Remap struct {
	segments []Segment
}

func (r *Remap) add(s Segment) {
	r.segments = append(r.segments, s)
}

// Segments returns the segments in output order.
func (r *Remap) Segments() []Segment {
	if r == nil {
		return nil
	}
	return append([]Segment(nil), r.segments...)
}

// Original maps an output offset to the original offset. ok is false for
// generated text and offsets past the end.
func (r *Remap) Original(out uint32) (orig uint32, ok bool) {
	if r == nil {
		return 0, false
	}
	i := sort.Search(len(r.segments), func(i int) bool {
		s := r.segments[i]
		return s.Out+s.Len > out
	})
	if i == len(r.segments) {
		return 0, false
	}
	s := r.segments[i]
	if out < s.Out || s.Generated {
		return 0, false
	}
	return s.Orig + (out - s.Out), true
}

// Identity reports whether the remap maps every output byte to the same
// original offset.
func (r *Remap) Identity() bool {
	if r == nil {
		return true
	}
	for _, s := range r.segments {
		if s.Generated || s.Out != s.Orig {
			return false
		}
	}
	return true
}
