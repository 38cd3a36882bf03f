package threshold

// Bound is one edge of a range: either a finite number or unbounded.
// Which infinity an unbounded edge stands for is determined by its
// position in the range — negative on the start side, positive on the
// end side.
type Bound struct {
	value    float64
	infinite bool
}

// Finite returns a bound fixed at v.
func Finite(v float64) Bound {
	return Bound{value: v}
}

// Unbounded returns an open-ended bound.
func Unbounded() Bound {
	return Bound{infinite: true}
}

// Value returns the finite value of the bound. The second return is
// false when the bound is unbounded.
func (b Bound) Value() (float64, bool) {
	if b.infinite {
		return 0, false
	}
	return b.value, true
}

// IsInfinite reports whether the bound is open-ended.
func (b Bound) IsInfinite() bool {
	return b.infinite
}
