package objmodel

import (
	"hash/fnv"
	"math"
)

// hashBytes is the FNV-1a hash used throughout objmodel for byte
// content (string rope flattening, symbol names) — spec §3.1: "String
// hashing uses FNV-1a over the flattened byte content". hash/fnv is the
// standard library's own FNV implementation; no corpus repo wraps this
// in a third-party hashing library, so stdlib is the grounded choice.
func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func hashFloatBits(f float64) uint64 {
	return math.Float64bits(f)
}
