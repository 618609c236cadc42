package skyline

import (
	"errors"
	"math"
	"testing"
)

func evalText(t *testing.T, text string, n int) []*Presentation {
	t.Helper()
	prog, err := ParseProgram(text)
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", text, err)
	}
	pres, err := EvalProgram(prog, testContext(n), testIndex(t))
	if err != nil {
		t.Fatalf("EvalProgram(%q): %v", text, err)
	}
	return pres
}

func evalTextErr(t *testing.T, text string) error {
	t.Helper()
	prog, err := ParseProgram(text)
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", text, err)
	}
	_, err = EvalProgram(prog, testContext(6), testIndex(t))
	if err == nil {
		t.Fatalf("EvalProgram(%q) succeeded, want error", text)
	}
	return err
}

func TestEvalQueryToDefaultPresentation(t *testing.T) {
	pres := evalText(t, "name,sps,:eq", 6)
	if len(pres) != 1 {
		t.Fatalf("got %d presentations, want 1", len(pres))
	}
	p := pres[0]
	if p.Style != StyleLine || p.Alpha != 100 || p.Axis != 0 || p.Color != "" {
		t.Errorf("default presentation = %+v", p)
	}
}

func TestEvalDecorators(t *testing.T) {
	pres := evalText(t, "name,sps,:eq,:sum,:area,f00,:color,3,:lw,40,:alpha,traffic,:legend,1,:axis", 6)
	if len(pres) != 1 {
		t.Fatalf("got %d presentations, want 1", len(pres))
	}
	p := pres[0]
	if p.Style != StyleArea {
		t.Errorf("Style = %v, want area", p.Style)
	}
	if p.Color != "f00" {
		t.Errorf("Color = %q", p.Color)
	}
	if p.LineWidth != 3 {
		t.Errorf("LineWidth = %d", p.LineWidth)
	}
	if p.Alpha != 40 {
		t.Errorf("Alpha = %d", p.Alpha)
	}
	if p.Label != "traffic" {
		t.Errorf("Label = %q", p.Label)
	}
	if p.Axis != 1 {
		t.Errorf("Axis = %d", p.Axis)
	}
}

func TestEvalStackOps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "dup", text: "name,sps,:eq,:sum,:dup", want: 2},
		{name: "drop", text: "name,sps,:eq,:sum,:dup,:drop", want: 1},
		{name: "swap", text: "name,sps,:eq,:sum,name,cpu,:eq,:sum,:swap", want: 2},
		{name: "rot", text: "name,sps,:eq,name,cpu,:eq,name,requests,:eq,:rot", want: 3},
		{name: "2over", text: "name,sps,:eq,name,cpu,:eq,name,requests,:eq,:2over", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pres := evalText(t, tt.text, 6)
			if len(pres) != tt.want {
				t.Errorf("got %d presentations, want %d", len(pres), tt.want)
			}
		})
	}
}

func TestEvalRotOrder(t *testing.T) {
	// (a b c -- b c a): the sps expression cycles from bottom to top.
	pres := evalText(t, "name,sps,:eq,:sum,name,cpu,:eq,:sum,name,requests,:eq,:sum,:rot", 6)
	if len(pres) != 3 {
		t.Fatalf("got %d presentations, want 3", len(pres))
	}
	last, ok := pres[2].Expr.(dataSourceExpr)
	if !ok {
		t.Fatalf("top of stack is %T, want dataSourceExpr", pres[2].Expr)
	}
	agg, ok := last.data.(aggExpr)
	if !ok || agg.q.(EqualQuery).Value != "sps" {
		t.Errorf("top of stack = %v, want the sps aggregate", last.data.exprString())
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target error
	}{
		{name: "underflow", text: ":and", target: ErrStackUnderflow},
		{name: "unknown operator", text: ":frobnicate", target: ErrUnknownOperator},
		{name: "lw type mismatch", text: "name,sps,:eq,foo,:lw", target: ErrTypeMismatch},
		{name: "axis type mismatch", text: "name,sps,:eq,oops,:axis", target: ErrTypeMismatch},
		{name: "by needs list", text: "name,sps,:eq,nf.cluster,:by", target: ErrTypeMismatch},
		{name: "and needs queries", text: "a,b,:and", target: ErrTypeMismatch},
		{name: "literal left on stack", text: "name,sps,:eq,orphan", target: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evalTextErr(t, tt.text)
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			var eerr *EvalError
			if !errors.As(err, &eerr) {
				t.Errorf("error %v is not an EvalError", err)
			}
		})
	}
}

func TestEvalNumericArithmetic(t *testing.T) {
	// Two numbers collapse immediately; the result feeds :const.
	pres := evalText(t, "2,3,:add,:const", 6)
	if len(pres) != 1 {
		t.Fatalf("got %d presentations, want 1", len(pres))
	}
	ce, ok := pres[0].Expr.(constExpr)
	if !ok {
		t.Fatalf("expr is %T, want constExpr", pres[0].Expr)
	}
	if ce.value != 5 {
		t.Errorf("const value = %v, want 5", ce.value)
	}
}

func TestEvalConstLabel(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantLabel string
	}{
		{name: "label under value", text: "threshold,50000,:const", wantLabel: "threshold"},
		{name: "no label", text: "50000,:const", wantLabel: "50000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pres := evalText(t, tt.text, 6)
			ce := pres[0].Expr.(constExpr)
			if ce.label != tt.wantLabel {
				t.Errorf("label = %q, want %q", ce.label, tt.wantLabel)
			}
		})
	}
}

func TestEvalConstMaterialisation(t *testing.T) {
	prog, err := ParseProgram("50000,:const")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ctx := testContext(4)
	pres, err := EvalProgram(prog, ctx, testIndex(t))
	if err != nil {
		t.Fatalf("EvalProgram: %v", err)
	}
	st := &evalState{ctx: ctx, index: testIndex(t), cache: map[string][]TimeSeries{}}
	series, err := pres[0].Expr.evalSeries(st)
	if err != nil {
		t.Fatalf("evalSeries: %v", err)
	}
	if len(series) != 1 || series[0].Data.Len() != 4 {
		t.Fatalf("const series = %+v", series)
	}
	for _, v := range series[0].Data.Values {
		if v != 50_000 {
			t.Errorf("const sample = %v, want 50000", v)
		}
	}
}

func TestEvalScalarComparison(t *testing.T) {
	prog, err := ParseProgram("name,sps,:eq,:sum,50000,:gt")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ctx := testContext(6)
	pres, err := EvalProgram(prog, ctx, testIndex(t))
	if err != nil {
		t.Fatalf("EvalProgram: %v", err)
	}
	st := &evalState{ctx: ctx, index: testIndex(t), cache: map[string][]TimeSeries{}}
	series, err := pres[0].Expr.evalSeries(st)
	if err != nil {
		t.Fatalf("evalSeries: %v", err)
	}
	// Summed sps: 15000 40000 80000 120000 30000 15000 -> >50000 at steps 2,3.
	want := []float64{0, 0, 1, 1, 0, 0}
	if !valuesEqual(series[0].Data.Values, want) {
		t.Errorf("comparison = %v, want %v", series[0].Data.Values, want)
	}
}

func TestEvalSeriesSeriesArithmetic(t *testing.T) {
	prog, err := ParseProgram("name,requests,:eq,:sum,name,latency,:eq,:sum,:mul")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ctx := testContext(6)
	pres, err := EvalProgram(prog, ctx, testIndex(t))
	if err != nil {
		t.Fatalf("EvalProgram: %v", err)
	}
	st := &evalState{ctx: ctx, index: testIndex(t), cache: map[string][]TimeSeries{}}
	series, err := pres[0].Expr.evalSeries(st)
	if err != nil {
		t.Fatalf("evalSeries: %v", err)
	}
	want := []float64{50, 140, 270, 320, 300, 240}
	if !valuesEqual(series[0].Data.Values, want) {
		t.Errorf("mul = %v, want %v", series[0].Data.Values, want)
	}
}

func TestVSpanExtraction(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		want   [][2]int64
	}{
		{name: "no bands", values: []float64{0, 0, 0}, want: nil},
		{name: "one band", values: []float64{0, 1, 1, 0}, want: [][2]int64{{testStep, 3 * testStep}}},
		{name: "band to end", values: []float64{0, 0, 1}, want: [][2]int64{{2 * testStep, 3 * testStep}}},
		{name: "nan closes band", values: []float64{1, nan, 1}, want: [][2]int64{{0, testStep}, {2 * testStep, 3 * testStep}}},
		{name: "all active", values: []float64{1, 1, 1}, want: [][2]int64{{0, 3 * testStep}}},
		{name: "nan never opens", values: []float64{nan, nan, nan}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := mustSeq(t, 0, testStep, tt.values)
			got := spansFromSeq(seq)
			if len(got) != len(tt.want) {
				t.Fatalf("spans = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestVSpanMonotonicity(t *testing.T) {
	seq := mustSeq(t, 0, testStep, []float64{1, 0, 1, 1, 0, 1})
	spans := spansFromSeq(seq)
	for i, s := range spans {
		if s[0] >= s[1] {
			t.Errorf("span %d not positive: %v", i, s)
		}
		if i > 0 && spans[i-1][1] > s[0] {
			t.Errorf("span %d overlaps previous: %v after %v", i, s, spans[i-1])
		}
	}
}

func TestEvalDataExprCaching(t *testing.T) {
	idx := &countingIndex{inner: testIndex(t)}
	prog, err := ParseProgram("name,sps,:eq,:sum,:dup,2,:mul,:swap")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ctx := testContext(6)
	if _, err := BuildGraphDef(prog, ctx, DefaultOptions(), idx); err != nil {
		t.Fatalf("BuildGraphDef: %v", err)
	}
	if idx.finds != 1 {
		t.Errorf("index queried %d times, want 1 (cached)", idx.finds)
	}
}

// countingIndex counts Find calls to observe evaluator caching.
type countingIndex struct {
	inner *MemoryIndex
	finds int
}

func (c *countingIndex) Find(q Query, start, end int64) ([]TimeSeries, error) {
	c.finds++
	return c.inner.Find(q, start, end)
}

func (c *countingIndex) AllTagKeys() []string {
	return c.inner.AllTagKeys()
}
