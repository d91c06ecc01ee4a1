package heap

// newSpace is the young generation: two equal-role slot lists used as a
// copying semi-space pair (spec §4.E). "Bump-allocation" here is simply
// appending to the active list; the companion list is empty until the
// next fast GC swaps them.
type newSpace struct {
	active []*cell
	other  []*cell
	limit  int // soft size limit that triggers a fast GC
}

func newNewSpace(limit int) *newSpace {
	return &newSpace{limit: limit}
}

func (s *newSpace) full() bool { return len(s.active) >= s.limit }

// swap makes the other list (holding the survivors just copied into it)
// active, and empties the previously active list, reusing its backing
// array as the new other list.
func (s *newSpace) swap() {
	s.active, s.other = s.other, s.active[:0]
}
