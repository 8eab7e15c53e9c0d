// Package bits provides sub-word bit range manipulation used to split packed
// values into named groups and to pack them back.
package bits

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Mask creates a mask covering bits start (inclusive) to end (exclusive).
// Index starts at 0, so Mask(1, 4) covers bits 1 to 3. If start >= end,
// this panics.
func Mask[U constraints.Unsigned](start, end uint64) U {
	if start >= end {
		panic("start cannot be >= end")
	}
	if end-start >= 64 {
		return ^U(0) << start
	}
	return U((uint64(1)<<(end-start))-1) << start
}

// Extract returns the bits of store from start (inclusive) to end
// (exclusive), shifted down to bit 0.
func Extract[U constraints.Unsigned](store U, start, end uint64) U {
	return (store & Mask[U](start, end)) >> start
}

// Insert ORs val, masked to end-start bits, into store at bit position start.
func Insert[U constraints.Unsigned](store, val U, start, end uint64) U {
	return store | ((val << start) & Mask[U](start, end))
}

// OnesString renders bs as a binary string, one group of 8 per byte. Debug
// helper only.
func OnesString(bs []byte) string {
	out := ""
	for _, n := range bs {
		out += fmt.Sprintf("% 08b", n)
	}
	return out
}
