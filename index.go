package skyline

import (
	"math"
	"sort"
)

// TagIndex is the data-source contract consumed by the evaluator. The engine
// performs no I/O of its own; everything it knows about the corpus arrives
// through this interface. Implementations must be safe for concurrent reads.
type TagIndex interface {
	// Find returns the series whose tags satisfy q and whose time domain
	// intersects [start, end). A predicate over a missing tag yields an empty
	// result, not an error.
	Find(q Query, start, end int64) ([]TimeSeries, error)

	// AllTagKeys returns the distinct tag keys present in the corpus. It is
	// used for validation and autocompletion, never by the rendering hot path.
	AllTagKeys() []string
}

// MemoryIndex is an in-process TagIndex over a static set of series. It is
// immutable after construction and therefore safe to share across requests.
type MemoryIndex struct {
	series []TimeSeries
	keys   []string
}

// NewMemoryIndex builds an index over the given series. The slice is retained;
// callers must not mutate it afterwards.
func NewMemoryIndex(series []TimeSeries) *MemoryIndex {
	keySet := make(map[string]struct{})
	for _, ts := range series {
		for k := range ts.Tags {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &MemoryIndex{series: series, keys: keys}
}

// Find implements TagIndex. Results are ordered by label for determinism.
func (idx *MemoryIndex) Find(q Query, start, end int64) ([]TimeSeries, error) {
	var out []TimeSeries
	for _, ts := range idx.series {
		if !q.Matches(ts.Tags) {
			continue
		}
		if ts.Data != nil && (ts.Data.End() <= start || ts.Data.Start >= end) {
			continue
		}
		out = append(out, ts)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// AllTagKeys implements TagIndex.
func (idx *MemoryIndex) AllTagKeys() []string {
	return idx.keys
}

// AggFunc enumerates the reducers available to aggregations and group-by.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggCount
	AggMin
	AggMax
	AggAvg
)

// String returns the operator word of the reducer.
func (f AggFunc) String() string {
	switch f {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	}
	return "unknown"
}

// aggAccumulator folds samples step by step. Reduction skips NaN inputs; a
// step where every input is NaN stays NaN.
type aggAccumulator struct {
	fn     AggFunc
	sums   []float64
	counts []int
	mins   []float64
	maxs   []float64
}

func newAggAccumulator(fn AggFunc, n int) *aggAccumulator {
	a := &aggAccumulator{fn: fn, sums: make([]float64, n), counts: make([]int, n)}
	if fn == AggMin || fn == AggMax {
		a.mins = make([]float64, n)
		a.maxs = make([]float64, n)
		for i := 0; i < n; i++ {
			a.mins[i] = math.Inf(1)
			a.maxs[i] = math.Inf(-1)
		}
	}
	return a
}

func (a *aggAccumulator) add(values []float64) {
	for i, v := range values {
		if i >= len(a.counts) || math.IsNaN(v) {
			continue
		}
		a.counts[i]++
		a.sums[i] += v
		if a.mins != nil {
			if v < a.mins[i] {
				a.mins[i] = v
			}
			if v > a.maxs[i] {
				a.maxs[i] = v
			}
		}
	}
}

func (a *aggAccumulator) finalize() []float64 {
	out := make([]float64, len(a.counts))
	for i, n := range a.counts {
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		switch a.fn {
		case AggSum:
			out[i] = a.sums[i]
		case AggCount:
			out[i] = float64(n)
		case AggMin:
			out[i] = a.mins[i]
		case AggMax:
			out[i] = a.maxs[i]
		case AggAvg:
			out[i] = a.sums[i] / float64(n)
		}
	}
	return out
}

// aggregateSeries reduces member series to one sequence over [start, end) at
// step. Each member is sampled onto the [start, end) grid at step first so all
// inputs share a grid.
func aggregateSeries(members []TimeSeries, fn AggFunc, start, end, step int64) *TimeSeq {
	n := int((end - start) / step)
	acc := newAggAccumulator(fn, n)
	for _, ts := range members {
		if ts.Data == nil {
			continue
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = ts.Data.ValueAt(start + int64(i)*step)
		}
		acc.add(vals)
	}
	return &TimeSeq{Start: start, Step: step, Values: acc.finalize()}
}

// GroupBy partitions series by the unique tuples of values over keys and
// reduces each partition with fn. Output tags are exactly the group-by keys;
// labels default to "k1=v1,k2=v2" in key order; output is sorted
// lexicographically by the joined tuple values. Series missing any key are
// dropped. An empty input produces an empty (valid) result.
func GroupBy(series []TimeSeries, keys []string, fn AggFunc, start, end, step int64) []TimeSeries {
	groups := make(map[string][]TimeSeries)
	order := make([]string, 0)
	for _, ts := range series {
		gk, ok := groupKey(ts.Tags, keys)
		if !ok {
			continue
		}
		if _, seen := groups[gk]; !seen {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], ts)
	}
	sort.Strings(order)

	out := make([]TimeSeries, 0, len(order))
	for _, gk := range order {
		members := groups[gk]
		tags := selectTags(members[0].Tags, keys)
		out = append(out, TimeSeries{
			Tags:  tags,
			Label: groupLabel(tags, keys),
			Data:  aggregateSeries(members, fn, start, end, step),
		})
	}
	return out
}
