package directive

// OrderedSet keeps directive strings in first-insertion order without
// duplicates.
type OrderedSet struct {
	items []string
	index map[string]struct{}
}

// NewOrderedSet builds a set from values, keeping the first occurrence of each.
func NewOrderedSet(values ...string) *OrderedSet {
	s := &OrderedSet{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was new.
func (s *OrderedSet) Add(v string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Union adds every value of other in its order.
func (s *OrderedSet) Union(other []string) {
	for _, v := range other {
		s.Add(v)
	}
}

func (s *OrderedSet) Has(v string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[v]
	return ok
}

func (s *OrderedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Values returns a copy of the members in insertion order.
func (s *OrderedSet) Values() []string {
	if s == nil || len(s.items) == 0 {
		return nil
	}
	return append([]string(nil), s.items...)
}
