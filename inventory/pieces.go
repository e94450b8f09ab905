package inventory

import "math"

// =============================================================================
// PIECE FRAGMENTATION
// =============================================================================

// Split describes how a count of n base units maps onto pieces of size s.
//
// Whole is the quantity moved on the size-s identity. Fragment, when
// nonzero, is both the size and the quantity of the single leftover piece.
//
//	addition: Whole + Fragment == n
//	removal:  Whole - Fragment == n
type Split struct {
	Size     uint64
	Whole    uint64
	Fragment uint64
}

// SplitAddition splits an incoming quantity. Full pieces stay on size s;
// less than one piece left over becomes a fragment of size n % s.
func SplitAddition(n, s uint64) Split {
	if s == 0 {
		return Split{Whole: n}
	}
	return Split{Size: s, Whole: n / s * s, Fragment: n % s}
}

// SplitRemoval splits an outgoing quantity. A cut piece is removed whole
// and its uncut rest, of size s - n % s, is added back as a fragment.
func SplitRemoval(n, s uint64) Split {
	if s == 0 {
		return Split{Whole: n}
	}
	full, rem := n/s, n%s
	if rem == 0 {
		return Split{Size: s, Whole: n}
	}
	if full >= math.MaxUint64/s {
		return Split{Size: s, Whole: n}
	}
	return Split{Size: s, Whole: (full + 1) * s, Fragment: s - rem}
}
