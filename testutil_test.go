package skyline

import (
	"math"
	"testing"
)

const testStep = int64(60_000)

// testContext returns a window of n steps starting at the epoch.
func testContext(n int) EvalContext {
	return EvalContext{Start: 0, End: int64(n) * testStep, Step: testStep, Timezone: "UTC"}
}

func mustSeq(t *testing.T, start, step int64, values []float64) *TimeSeq {
	t.Helper()
	seq, err := NewTimeSeq(start, step, values)
	if err != nil {
		t.Fatalf("NewTimeSeq(%d, %d): %v", start, step, err)
	}
	return seq
}

func seriesWithTags(t *testing.T, tags map[string]string, values []float64) TimeSeries {
	t.Helper()
	return NewTimeSeries(tags, mustSeq(t, 0, testStep, values))
}

// testIndex builds the corpus shared by the evaluator and graph tests:
// per-cluster sps counters, per-host cpu including negative values, and a
// requests/latency pair for the multi-axis layout.
func testIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	nan := math.NaN()
	return NewMemoryIndex([]TimeSeries{
		seriesWithTags(t, map[string]string{"name": "sps", "nf.cluster": "east"},
			[]float64{10_000, 30_000, 60_000, 80_000, 20_000, 10_000}),
		seriesWithTags(t, map[string]string{"name": "sps", "nf.cluster": "west"},
			[]float64{5_000, 10_000, 20_000, 40_000, 10_000, 5_000}),
		seriesWithTags(t, map[string]string{"name": "cpu", "host": "h2"},
			[]float64{2, -3, 4, -1, 2, 3}),
		seriesWithTags(t, map[string]string{"name": "cpu", "host": "h1"},
			[]float64{1, 2, 3, 4, 5, 6}),
		seriesWithTags(t, map[string]string{"name": "cpu", "host": "h3"},
			[]float64{3, 3, nan, 3, 3, 3}),
		seriesWithTags(t, map[string]string{"name": "requests", "app": "api"},
			[]float64{100, 200, 300, 400, 500, 600}),
		seriesWithTags(t, map[string]string{"name": "latency", "app": "api"},
			[]float64{0.5, 0.7, 0.9, 0.8, 0.6, 0.4}),
	})
}

func approxEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) < 1e-9
}

func valuesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !approxEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
