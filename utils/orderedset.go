package utils

// OrderedSet is a set of strings that remembers insertion order.
// It is not safe for concurrent use; the pipeline is sequential.
type OrderedSet struct {
	seen  map[string]struct{}
	items []string
}

// NewOrderedSet creates an empty OrderedSet.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[string]struct{})}
}

// Add returns true if s was newly added, false if already present.
func (s *OrderedSet) Add(v string) bool {
	if _, exists := s.seen[v]; exists {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Contains returns true if v has already been added.
func (s *OrderedSet) Contains(v string) bool {
	_, exists := s.seen[v]
	return exists
}

// Values returns the members in the order they were first added.
func (s *OrderedSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Size returns the number of unique members.
func (s *OrderedSet) Size() int {
	return len(s.items)
}
