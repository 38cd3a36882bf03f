// Package threshold parses and evaluates Nagios-style threshold range
// expressions as described in the Nagios plugin development guidelines.
//
// A range expression encodes an inclusive interval with optional
// open-ended sides and a polarity marker:
//
//	10       alert when the value is outside [0, 10]
//	10:      alert when the value is below 10
//	~:10     alert when the value is above 10
//	10:20    alert when the value is outside [10, 20]
//	@10:20   alert when the value is inside [10, 20]
//
// Bounds are parsed as signed decimal float64 values. NaN and infinity
// literals are rejected; an open-ended side can only be expressed
// through the grammar ("~" on the left, an empty right side).
package threshold

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Polarity selects which side of the interval the alert predicate
// fires on.
type Polarity int

const (
	// Outside fires when a value falls outside the interval. This is
	// the default when no marker is present.
	Outside Polarity = iota
	// Inside fires when a value falls within the interval. Selected by
	// a leading "@".
	Inside
)

func (p Polarity) String() string {
	if p == Inside {
		return "inside"
	}
	return "outside"
}

// Range is an immutable threshold: an inclusive interval plus a
// polarity. The zero value is not meaningful; construct via Parse or
// New. A Range may be copied and evaluated concurrently without
// synchronization.
type Range struct {
	polarity Polarity
	start    Bound
	end      Bound
}

// Parse builds a Range from a threshold expression.
//
// The grammar is ["@"] [bound] ":" [bound] | ["@"] bound. An empty
// left side defaults to 0, "~" on the left means negative infinity,
// an empty right side means positive infinity. Without a separator
// the whole expression is the end bound and the start defaults to 0.
// Tokens are taken literally; surrounding whitespace is not trimmed.
func Parse(expr string) (Range, error) {
	if expr == "" {
		return Range{}, ErrEmptyRange
	}

	polarity := Outside
	rest := expr
	if rest[0] == '@' {
		polarity = Inside
		rest = rest[1:]
	}

	var start, end Bound
	left, right, found := strings.Cut(rest, ":")
	if !found {
		start = Finite(0)
		v, err := parseBound(rest, ErrParseEndPoint)
		if err != nil {
			return Range{}, err
		}
		end = Finite(v)
	} else {
		switch {
		case left == "~":
			start = Unbounded()
		case left == "":
			start = Finite(0)
		default:
			v, err := parseBound(left, ErrParseStartPoint)
			if err != nil {
				return Range{}, err
			}
			start = Finite(v)
		}

		if right == "" {
			end = Unbounded()
		} else {
			v, err := parseBound(right, ErrParseEndPoint)
			if err != nil {
				return Range{}, err
			}
			end = Finite(v)
		}
	}

	return New(polarity, start, end)
}

// New builds a Range from explicit bounds. It fails with
// ErrStartGreaterThanEnd when both bounds are finite and out of
// order, and with ErrBoundNotFinite when a finite bound carries NaN
// or an IEEE infinity.
func New(polarity Polarity, start, end Bound) (Range, error) {
	if !start.infinite && !finite(start.value) {
		return Range{}, fmt.Errorf("%w: start point", ErrBoundNotFinite)
	}
	if !end.infinite && !finite(end.value) {
		return Range{}, fmt.Errorf("%w: end point", ErrBoundNotFinite)
	}
	if !start.infinite && !end.infinite && start.value > end.value {
		return Range{}, ErrStartGreaterThanEnd
	}
	return Range{polarity: polarity, start: start, end: end}, nil
}

// parseBound parses a single bound numeral, wrapping failures in the
// given side sentinel. Infinity and NaN literals are rejected even
// though strconv accepts them.
func parseBound(text string, side error) (float64, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", side, err)
	}
	if !finite(v) {
		return 0, fmt.Errorf("%w: %q is not a finite number", side, text)
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Polarity returns the alert polarity of the range.
func (r Range) Polarity() Polarity { return r.polarity }

// IsInside reports whether the range alerts on values inside the
// interval.
func (r Range) IsInside() bool { return r.polarity == Inside }

// IsOutside reports whether the range alerts on values outside the
// interval.
func (r Range) IsOutside() bool { return r.polarity == Outside }

// Start returns the lower bound.
func (r Range) Start() Bound { return r.start }

// End returns the upper bound.
func (r Range) End() Bound { return r.end }

// StartIsInfinite reports whether the lower bound is negative
// infinity.
func (r Range) StartIsInfinite() bool { return r.start.infinite }

// EndIsInfinite reports whether the upper bound is positive infinity.
func (r Range) EndIsInfinite() bool { return r.end.infinite }

// Contains reports whether x lies within the inclusive interval,
// ignoring polarity. An infinite side is always satisfied.
func (r Range) Contains(x float64) bool {
	if !r.start.infinite && x < r.start.value {
		return false
	}
	if !r.end.infinite && x > r.end.value {
		return false
	}
	return true
}

// Alerts is the polarity-aware decision: with Inside polarity it
// equals Contains(x), with Outside polarity its negation.
func (r Range) Alerts(x float64) bool {
	if r.polarity == Inside {
		return r.Contains(x)
	}
	return !r.Contains(x)
}

// String renders the canonical form of the range. It round-trips
// through Parse but does not reproduce the original spelling: an
// omitted start is rendered as an explicit 0, and an unbounded end as
// an empty right side (a literal "~" is not parseable there).
func (r Range) String() string {
	var b strings.Builder
	if r.polarity == Inside {
		b.WriteByte('@')
	}
	if r.start.infinite {
		b.WriteByte('~')
	} else {
		b.WriteString(strconv.FormatFloat(r.start.value, 'g', -1, 64))
	}
	b.WriteByte(':')
	if !r.end.infinite {
		b.WriteString(strconv.FormatFloat(r.end.value, 'g', -1, 64))
	}
	return b.String()
}
