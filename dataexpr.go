package skyline

import (
	"fmt"
	"strconv"
	"strings"
)

// DataExpr fetches and optionally groups or aggregates a set of series from
// the tag index. Expressions are immutable; identical expression strings are
// evaluated once per request and served from the evaluator's cache.
type DataExpr interface {
	evalData(st *evalState) ([]TimeSeries, error)
	exprString() string
}

// queryExpr returns the raw matches for a predicate, one output series per
// indexed series, bounded to the evaluation window.
type queryExpr struct {
	q Query
}

func (e queryExpr) evalData(st *evalState) ([]TimeSeries, error) {
	found, err := st.index.Find(e.q, st.ctx.Start, st.ctx.End)
	if err != nil {
		return nil, err
	}
	out := make([]TimeSeries, 0, len(found))
	for _, ts := range found {
		if ts.Data == nil {
			continue
		}
		bounded := ts.Data.Bounded(st.ctx.Start, st.ctx.End)
		out = append(out, TimeSeries{Tags: ts.Tags, Label: ts.Label, Data: bounded})
	}
	return out, nil
}

func (e queryExpr) exprString() string {
	return e.q.String()
}

// aggExpr reduces every match of a predicate to a single series.
type aggExpr struct {
	q  Query
	fn AggFunc
}

func (e aggExpr) evalData(st *evalState) ([]TimeSeries, error) {
	found, err := st.index.Find(e.q, st.ctx.Start, st.ctx.End)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		// No matches: an empty result, not a NaN line.
		return nil, nil
	}
	seq := aggregateSeries(found, e.fn, st.ctx.Start, st.ctx.End, st.ctx.Step)
	tags := equalTags(e.q)
	return []TimeSeries{{Tags: tags, Label: e.exprString(), Data: seq}}, nil
}

func (e aggExpr) exprString() string {
	return fmt.Sprintf("%s,:%s", e.q.String(), e.fn)
}

// groupByExpr partitions the matches of a predicate by tag keys, reducing each
// partition. The reducer defaults to sum until an aggregation operator
// replaces it.
type groupByExpr struct {
	q    Query
	keys []string
	fn   AggFunc
}

func (e groupByExpr) evalData(st *evalState) ([]TimeSeries, error) {
	found, err := st.index.Find(e.q, st.ctx.Start, st.ctx.End)
	if err != nil {
		return nil, err
	}
	return GroupBy(found, e.keys, e.fn, st.ctx.Start, st.ctx.End, st.ctx.Step), nil
}

func (e groupByExpr) exprString() string {
	return fmt.Sprintf("%s,(,%s,),:by,:%s", e.q.String(), strings.Join(e.keys, ","), e.fn)
}

// withAggFunc rebinds the reducer of a data expression. Raw query expressions
// become plain aggregates; group-by expressions keep their partitioning.
func withAggFunc(d DataExpr, fn AggFunc) DataExpr {
	switch e := d.(type) {
	case queryExpr:
		return aggExpr{q: e.q, fn: fn}
	case aggExpr:
		return aggExpr{q: e.q, fn: fn}
	case groupByExpr:
		return groupByExpr{q: e.q, keys: e.keys, fn: fn}
	}
	return d
}

// equalTags collects the exact-equality tag pairs reachable through the AND
// spine of a predicate. Aggregate outputs carry these as their tags.
func equalTags(q Query) map[string]string {
	tags := make(map[string]string)
	collectEqualTags(q, tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func collectEqualTags(q Query, into map[string]string) {
	switch t := q.(type) {
	case EqualQuery:
		into[t.Key] = t.Value
	case AndQuery:
		collectEqualTags(t.Q1, into)
		collectEqualTags(t.Q2, into)
	}
}

// TimeSeriesExpr is a pure computation over one or more data expressions.
type TimeSeriesExpr interface {
	evalSeries(st *evalState) ([]TimeSeries, error)
	exprString() string
}

// dataSourceExpr lifts a DataExpr into the time-series expression tier.
type dataSourceExpr struct {
	data DataExpr
}

func (e dataSourceExpr) evalSeries(st *evalState) ([]TimeSeries, error) {
	return st.evalData(e.data)
}

func (e dataSourceExpr) exprString() string {
	return e.data.exprString()
}

// constExpr is a constant series materialised at the context step.
type constExpr struct {
	value float64
	label string
}

func (e constExpr) evalSeries(st *evalState) ([]TimeSeries, error) {
	seq := newConstSeq(st.ctx.Start, st.ctx.End, st.ctx.Step, e.value)
	return []TimeSeries{{Label: e.label, Data: seq}}, nil
}

func (e constExpr) exprString() string {
	return fmt.Sprintf("%s,%s,:const", e.label, strconv.FormatFloat(e.value, 'g', -1, 64))
}

// binaryExpr applies an elementwise operator between two expressions. When one
// side yields a single series it broadcasts against every series of the other
// side; two multi-series sides pair up positionally and must agree on count.
type binaryExpr struct {
	op  string
	lhs TimeSeriesExpr
	rhs TimeSeriesExpr
	fn  func(a, b float64) float64
}

func (e binaryExpr) evalSeries(st *evalState) ([]TimeSeries, error) {
	left, err := e.lhs.evalSeries(st)
	if err != nil {
		return nil, err
	}
	right, err := e.rhs.evalSeries(st)
	if err != nil {
		return nil, err
	}
	pair := func(a, b TimeSeries) (TimeSeries, error) {
		seq, err := a.Data.binaryOp(b.Data, e.fn)
		if err != nil {
			return TimeSeries{}, err
		}
		label := fmt.Sprintf("(%s %s %s)", a.Label, e.op, b.Label)
		return TimeSeries{Tags: a.Tags, Label: label, Data: seq}, nil
	}

	var out []TimeSeries
	switch {
	case len(left) == 0 || len(right) == 0:
		return nil, nil
	case len(right) == 1:
		for _, a := range left {
			ts, err := pair(a, right[0])
			if err != nil {
				return nil, err
			}
			out = append(out, ts)
		}
	case len(left) == 1:
		for _, b := range right {
			ts, err := pair(left[0], b)
			if err != nil {
				return nil, err
			}
			out = append(out, ts)
		}
	case len(left) == len(right):
		for i := range left {
			ts, err := pair(left[i], right[i])
			if err != nil {
				return nil, err
			}
			out = append(out, ts)
		}
	default:
		return nil, newEvalError(EvalErrorArityMismatch, ":"+e.op,
			fmt.Sprintf("cannot pair %d series with %d series", len(left), len(right)))
	}
	return out, nil
}

func (e binaryExpr) exprString() string {
	return fmt.Sprintf("%s,%s,:%s", e.lhs.exprString(), e.rhs.exprString(), e.op)
}

// scalarExpr applies an elementwise operator between an expression and a
// scalar constant. reversed marks scalar-on-the-left programs like
// "100,expr,:sub".
type scalarExpr struct {
	op       string
	src      TimeSeriesExpr
	scalar   float64
	reversed bool
	fn       func(a, b float64) float64
}

func (e scalarExpr) evalSeries(st *evalState) ([]TimeSeries, error) {
	series, err := e.src.evalSeries(st)
	if err != nil {
		return nil, err
	}
	out := make([]TimeSeries, 0, len(series))
	for _, ts := range series {
		seq := ts.Data.unaryOp(func(v float64) float64 {
			if e.reversed {
				return e.fn(e.scalar, v)
			}
			return e.fn(v, e.scalar)
		})
		scalarText := strconv.FormatFloat(e.scalar, 'g', -1, 64)
		label := fmt.Sprintf("(%s %s %s)", ts.Label, e.op, scalarText)
		if e.reversed {
			label = fmt.Sprintf("(%s %s %s)", scalarText, e.op, ts.Label)
		}
		out = append(out, TimeSeries{Tags: ts.Tags, Label: label, Data: seq})
	}
	return out, nil
}

func (e scalarExpr) exprString() string {
	scalarText := strconv.FormatFloat(e.scalar, 'g', -1, 64)
	if e.reversed {
		return fmt.Sprintf("%s,%s,:%s", scalarText, e.src.exprString(), e.op)
	}
	return fmt.Sprintf("%s,%s,:%s", e.src.exprString(), scalarText, e.op)
}
