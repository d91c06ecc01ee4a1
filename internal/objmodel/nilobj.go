package objmodel

import "j5.nz/ovm/internal/value"

// IsNil reports whether v is the nil singleton object — distinct from
// value.Nil, which is the heap package's internal "no object" pointer
// sentinel and never observed at VM level.
func (r *Registry) IsNil(v value.Value) bool { return v == r.NilValue }
