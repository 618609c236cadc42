package skyline

import (
	"fmt"
	"math"
)

// TimeSeq is a fixed-step time sequence. Values[i] is the sample at
// Start + i*Step; missing samples are NaN. Start is in epoch milliseconds and
// is always aligned to Step. A TimeSeq is immutable after construction.
type TimeSeq struct {
	Start  int64
	Step   int64
	Values []float64
}

// NewTimeSeq creates a time sequence and validates its spec. The step must be
// positive and the start must fall on a step boundary.
func NewTimeSeq(start, step int64, values []float64) (*TimeSeq, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %d must be positive", ErrInvalidSeqSpec, step)
	}
	if start%step != 0 {
		return nil, fmt.Errorf("%w: start %d not aligned to step %d", ErrInvalidSeqSpec, start, step)
	}
	return &TimeSeq{Start: start, Step: step, Values: values}, nil
}

// newConstSeq materialises a constant sequence covering [start, end) at step.
func newConstSeq(start, end, step int64, value float64) *TimeSeq {
	n := int((end - start) / step)
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return &TimeSeq{Start: start, Step: step, Values: values}
}

// Len returns the number of samples.
func (s *TimeSeq) Len() int {
	return len(s.Values)
}

// End returns the exclusive end of the covered window.
func (s *TimeSeq) End() int64 {
	return s.Start + int64(len(s.Values))*s.Step
}

// TimeAt returns the timestamp of sample i.
func (s *TimeSeq) TimeAt(i int) int64 {
	return s.Start + int64(i)*s.Step
}

// ValueAt returns the sample at timestamp t, or NaN when t falls outside the
// sequence or off the step grid.
func (s *TimeSeq) ValueAt(t int64) float64 {
	if t < s.Start || (t-s.Start)%s.Step != 0 {
		return math.NaN()
	}
	i := int((t - s.Start) / s.Step)
	if i >= len(s.Values) {
		return math.NaN()
	}
	return s.Values[i]
}

// Bounded returns the sequence restricted to [start, end). Samples outside the
// receiver's window are filled with NaN; start is floored to the step grid.
func (s *TimeSeq) Bounded(start, end int64) *TimeSeq {
	start = alignStart(start, s.Step)
	n := int((end - start) / s.Step)
	if n < 0 {
		n = 0
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = s.ValueAt(start + int64(i)*s.Step)
	}
	return &TimeSeq{Start: start, Step: s.Step, Values: values}
}

// ForEach iterates over (timestamp, value) pairs in time order.
func (s *TimeSeq) ForEach(fn func(t int64, v float64)) {
	for i, v := range s.Values {
		fn(s.TimeAt(i), v)
	}
}

// binaryOp applies fn elementwise over two sequences sharing a step. The
// result covers the union of the two windows; samples outside either input
// read as NaN, so NaN propagation falls out of fn for the arithmetic ops.
func (s *TimeSeq) binaryOp(other *TimeSeq, fn func(a, b float64) float64) (*TimeSeq, error) {
	if s.Step != other.Step {
		return nil, fmt.Errorf("%w: step mismatch %d vs %d", ErrInvalidSeqSpec, s.Step, other.Step)
	}
	start := s.Start
	if other.Start < start {
		start = other.Start
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	n := int((end - start) / s.Step)
	values := make([]float64, n)
	for i := range values {
		t := start + int64(i)*s.Step
		values[i] = fn(s.ValueAt(t), other.ValueAt(t))
	}
	return &TimeSeq{Start: start, Step: s.Step, Values: values}, nil
}

// unaryOp applies fn elementwise.
func (s *TimeSeq) unaryOp(fn func(v float64) float64) *TimeSeq {
	values := make([]float64, len(s.Values))
	for i, v := range s.Values {
		values[i] = fn(v)
	}
	return &TimeSeq{Start: s.Start, Step: s.Step, Values: values}
}

// alignStart floors t to the step grid.
func alignStart(t, step int64) int64 {
	aligned := (t / step) * step
	if t < 0 && t%step != 0 {
		aligned -= step
	}
	return aligned
}

// Elementwise sample operators. IEEE 754 already gives the required NaN
// propagation for the arithmetic group (NaN op x = NaN, 0/0 = NaN,
// x/0 = +-Inf); the comparison group must keep NaN explicit because Go
// comparisons involving NaN yield false, not NaN.

func addValues(a, b float64) float64 { return a + b }
func subValues(a, b float64) float64 { return a - b }
func mulValues(a, b float64) float64 { return a * b }
func divValues(a, b float64) float64 { return a / b }

func compareValues(fn func(a, b float64) bool) func(a, b float64) float64 {
	return func(a, b float64) float64 {
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.NaN()
		}
		if fn(a, b) {
			return 1.0
		}
		return 0.0
	}
}

var (
	gtValues = compareValues(func(a, b float64) bool { return a > b })
	geValues = compareValues(func(a, b float64) bool { return a >= b })
	ltValues = compareValues(func(a, b float64) bool { return a < b })
	leValues = compareValues(func(a, b float64) bool { return a <= b })
	eqValues = compareValues(func(a, b float64) bool { return a == b })
)
