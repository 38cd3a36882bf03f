package threshold

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func mustParse(t *testing.T, expr string) Range {
	t.Helper()
	r, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", expr, err)
	}
	return r
}

func finiteValue(t *testing.T, b Bound) float64 {
	t.Helper()
	v, ok := b.Value()
	if !ok {
		t.Fatal("expected a finite bound")
	}
	return v
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		expr     string
		polarity Polarity
		start    float64
		startInf bool
		end      float64
		endInf   bool
	}{
		{"10", Outside, 0, false, 10, false},
		{"10:", Outside, 10, false, 0, true},
		{":10", Outside, 0, false, 10, false},
		{"~:10", Outside, 0, true, 10, false},
		{"10:20", Outside, 10, false, 20, false},
		{"@10:20", Inside, 10, false, 20, false},
		{"@-10:20", Inside, -10, false, 20, false},
		{"@~:10", Inside, 0, true, 10, false},
		{"@10:", Inside, 10, false, 0, true},
		{"~:", Outside, 0, true, 0, true},
		{"-10:-5", Outside, -10, false, -5, false},
		{"0.5:1.5", Outside, 0.5, false, 1.5, false},
		{"-3.2:", Outside, -3.2, false, 0, true},
		{":0", Outside, 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := mustParse(t, tt.expr)

			if r.Polarity() != tt.polarity {
				t.Errorf("polarity = %v, want %v", r.Polarity(), tt.polarity)
			}
			if r.StartIsInfinite() != tt.startInf {
				t.Errorf("StartIsInfinite() = %v, want %v", r.StartIsInfinite(), tt.startInf)
			}
			if !tt.startInf {
				if got := finiteValue(t, r.Start()); got != tt.start {
					t.Errorf("start = %v, want %v", got, tt.start)
				}
			}
			if r.EndIsInfinite() != tt.endInf {
				t.Errorf("EndIsInfinite() = %v, want %v", r.EndIsInfinite(), tt.endInf)
			}
			if !tt.endInf {
				if got := finiteValue(t, r.End()); got != tt.end {
					t.Errorf("end = %v, want %v", got, tt.end)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"", ErrEmptyRange},
		{"@-10:-20", ErrStartGreaterThanEnd},
		{"@20:-20", ErrStartGreaterThanEnd},
		{"10:5", ErrStartGreaterThanEnd},
		{"abc", ErrParseEndPoint},
		{"abc:10", ErrParseStartPoint},
		{"10:abc", ErrParseEndPoint},
		{"@", ErrParseEndPoint},
		{":", ErrParseEndPoint},
		{"10:~", ErrParseEndPoint},
		{"~5:10", ErrParseStartPoint},
		{" 10:20", ErrParseStartPoint},
		{"10:20 ", ErrParseEndPoint},
		{"nan:10", ErrParseStartPoint},
		{"10:nan", ErrParseEndPoint},
		{"inf:10", ErrParseStartPoint},
		{"10:inf", ErrParseEndPoint},
		{"-inf:10", ErrParseStartPoint},
		{"10:20:30", ErrParseEndPoint},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.expr, err, tt.want)
			}
		})
	}
}

func TestParseErrorCarriesCause(t *testing.T) {
	_, err := Parse("abc:10")
	if !errors.Is(err, ErrParseStartPoint) {
		t.Fatalf("expected ErrParseStartPoint, got %v", err)
	}
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Fatalf("expected a *strconv.NumError cause, got %v", err)
	}
	if numErr.Num != "abc" {
		t.Errorf("cause numeral = %q, want %q", numErr.Num, "abc")
	}
}

func TestParseOrderingCheckedAfterBothSides(t *testing.T) {
	// A malformed side must surface before any ordering check.
	_, err := Parse("20:abc")
	if !errors.Is(err, ErrParseEndPoint) {
		t.Errorf("expected ErrParseEndPoint, got %v", err)
	}
}

func TestParseEmptyBeforeAnythingElse(t *testing.T) {
	_, err := Parse("")
	if !errors.Is(err, ErrEmptyRange) {
		t.Errorf("expected ErrEmptyRange, got %v", err)
	}
}

func TestNew(t *testing.T) {
	r, err := New(Inside, Finite(10), Finite(20))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !r.IsInside() || r.IsOutside() {
		t.Error("expected inside polarity")
	}

	if _, err := New(Outside, Finite(20), Finite(10)); !errors.Is(err, ErrStartGreaterThanEnd) {
		t.Errorf("expected ErrStartGreaterThanEnd, got %v", err)
	}

	// Ordering is not checked against an infinite side.
	if _, err := New(Outside, Finite(20), Unbounded()); err != nil {
		t.Errorf("unbounded end should skip ordering check, got %v", err)
	}
	if _, err := New(Outside, Unbounded(), Finite(-100)); err != nil {
		t.Errorf("unbounded start should skip ordering check, got %v", err)
	}

	if _, err := New(Outside, Finite(math.NaN()), Finite(10)); !errors.Is(err, ErrBoundNotFinite) {
		t.Errorf("expected ErrBoundNotFinite for NaN start, got %v", err)
	}
	if _, err := New(Outside, Finite(0), Finite(math.Inf(1))); !errors.Is(err, ErrBoundNotFinite) {
		t.Errorf("expected ErrBoundNotFinite for infinite end, got %v", err)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		expr string
		x    float64
		want bool
	}{
		{"10:20", 15, true},
		{"10:20", 10, true},
		{"10:20", 20, true},
		{"10:20", 9.999, false},
		{"10:20", 20.001, false},
		{"~:10", -1e9, true},
		{"~:10", 10, true},
		{"~:10", 11, false},
		{"10:", 10, true},
		{"10:", 1e12, true},
		{"10:", 9, false},
		{"~:", -1e300, true},
		{"~:", 1e300, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := mustParse(t, tt.expr)
			if got := r.Contains(tt.x); got != tt.want {
				t.Errorf("Parse(%q).Contains(%v) = %v, want %v", tt.expr, tt.x, got, tt.want)
			}
		})
	}
}

func TestContainsIgnoresPolarity(t *testing.T) {
	plain := mustParse(t, "10:20")
	marked := mustParse(t, "@10:20")
	for _, x := range []float64{5, 10, 15, 20, 25} {
		if plain.Contains(x) != marked.Contains(x) {
			t.Errorf("Contains(%v) differs between polarities", x)
		}
	}
}

func TestAlerts(t *testing.T) {
	tests := []struct {
		expr string
		x    float64
		want bool
	}{
		// "10" → outside [0, 10]
		{"10", 5, false},
		{"10", 15, true},
		{"10", -1, true},
		{"10", 0, false},
		{"10", 10, false},
		// "10:" → outside [10, +inf)
		{"10:", 5, true},
		{"10:", 100, false},
		{"10:", 10, false},
		// "~:10" → outside (-inf, 10]
		{"~:10", -1000, false},
		{"~:10", 20, true},
		// "@10:20" → inside [10, 20]
		{"@10:20", 15, true},
		{"@10:20", 25, false},
		{"@10:20", 10, true},
		{"@10:20", 20, true},
		{"@10:20", 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := mustParse(t, tt.expr)
			if got := r.Alerts(tt.x); got != tt.want {
				t.Errorf("Parse(%q).Alerts(%v) = %v, want %v", tt.expr, tt.x, got, tt.want)
			}
		})
	}
}

func TestAlertsMatchesContainsByPolarity(t *testing.T) {
	samples := []float64{-50, 0, 9.9, 10, 15, 20, 20.1, 1e6}
	for _, expr := range []string{"10:20", "@10:20", "~:10", "@~:10", "5:", "@5:"} {
		r := mustParse(t, expr)
		for _, x := range samples {
			want := r.Contains(x)
			if r.IsOutside() {
				want = !want
			}
			if got := r.Alerts(x); got != want {
				t.Errorf("%q: Alerts(%v) = %v, want %v", expr, x, got, want)
			}
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"10", "0:10"},
		{"10:", "10:"},
		{":10", "0:10"},
		{"~:10", "~:10"},
		{"@10:20", "@10:20"},
		{"@~:", "@~:"},
		{"-10:-5", "-10:-5"},
		{"0.5:1.5", "0.5:1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := mustParse(t, tt.expr).String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	exprs := []string{"10", "10:", ":10", "~:10", "10:20", "@10:20", "@~:10", "~:", "-10:-5", "0.5:1.5", "1e6:"}
	samples := []float64{-1e9, -20, -10, -5, 0, 0.5, 1, 1.5, 5, 9.999, 10, 15, 20, 1e6, 1e9}

	for _, expr := range exprs {
		orig := mustParse(t, expr)
		again, err := Parse(orig.String())
		if err != nil {
			t.Fatalf("reparse of %q (from %q) failed: %v", orig.String(), expr, err)
		}
		for _, x := range samples {
			if orig.Alerts(x) != again.Alerts(x) {
				t.Errorf("%q: Alerts(%v) changed after round-trip through %q", expr, x, orig.String())
			}
		}
	}
}

func TestBoundValue(t *testing.T) {
	b := Finite(42)
	if v, ok := b.Value(); !ok || v != 42 {
		t.Errorf("Finite(42).Value() = %v, %v", v, ok)
	}
	if b.IsInfinite() {
		t.Error("Finite(42).IsInfinite() = true")
	}

	u := Unbounded()
	if _, ok := u.Value(); ok {
		t.Error("Unbounded().Value() reported a finite value")
	}
	if !u.IsInfinite() {
		t.Error("Unbounded().IsInfinite() = false")
	}
}

func TestPolarityString(t *testing.T) {
	if Inside.String() != "inside" || Outside.String() != "outside" {
		t.Error("unexpected polarity strings")
	}
}
