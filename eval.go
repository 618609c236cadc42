package skyline

import (
	"fmt"
	"math"
	"strconv"
)

// evalState carries the per-request evaluation inputs plus the DataExpr result
// cache. Identical data expressions inside one program hit the index once.
type evalState struct {
	ctx   EvalContext
	index TagIndex
	cache map[string][]TimeSeries
}

func (st *evalState) evalData(d DataExpr) ([]TimeSeries, error) {
	key := d.exprString()
	if cached, ok := st.cache[key]; ok {
		return cached, nil
	}
	series, err := d.evalData(st)
	if err != nil {
		return nil, err
	}
	st.cache[key] = series
	return series, nil
}

// evaluator executes a tokenized program against an operand stack.
type evaluator struct {
	st    *evalState
	stack []Value
	op    string // operator word currently executing, for error context
}

// EvalProgram executes a program and returns the resulting presentations in
// stack order. Leftover data or time-series expressions are wrapped in default
// presentations; leftover literals are an error.
func EvalProgram(prog Program, ctx EvalContext, index TagIndex) ([]*Presentation, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	e := &evaluator{st: &evalState{ctx: ctx, index: index, cache: make(map[string][]TimeSeries)}}
	for _, tok := range prog {
		if err := e.exec(tok); err != nil {
			return nil, err
		}
	}
	return e.finish()
}

func (e *evaluator) exec(tok Token) error {
	switch tok.Kind {
	case TokenString:
		e.push(stringValue(tok.Text))
	case TokenNumber:
		e.push(numberValue(tok.Num))
	case TokenList:
		e.push(listValue(tok.List))
	case TokenOperator:
		return e.execOperator(tok.Text)
	}
	return nil
}

func (e *evaluator) execOperator(op string) error {
	e.op = op
	switch op {
	case ":true":
		e.push(queryValue(TrueQuery{}))
	case ":false":
		e.push(queryValue(FalseQuery{}))
	case ":eq":
		return e.execEq()
	case ":re":
		return e.execRe()
	case ":has":
		k, err := e.popString()
		if err != nil {
			return err
		}
		e.push(queryValue(HasKeyQuery{Key: k}))
	case ":and", ":or":
		q2, err := e.popQuery()
		if err != nil {
			return err
		}
		q1, err := e.popQuery()
		if err != nil {
			return err
		}
		if op == ":and" {
			e.push(queryValue(AndQuery{Q1: q1, Q2: q2}))
		} else {
			e.push(queryValue(OrQuery{Q1: q1, Q2: q2}))
		}
	case ":not":
		q, err := e.popQuery()
		if err != nil {
			return err
		}
		e.push(queryValue(NotQuery{Q: q}))
	case ":by":
		return e.execBy()
	case ":sum", ":count", ":min", ":max", ":avg":
		return e.execAgg(op)
	case ":add", ":sub", ":mul", ":div", ":gt", ":ge", ":lt", ":le":
		return e.execBinary(op)
	case ":dup", ":swap", ":drop", ":rot", ":2over":
		return e.execStackOp(op)
	case ":const":
		return e.execConst()
	case ":line", ":area", ":stack", ":vspan":
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.Style = parseLineStyle(op[1:])
		e.push(presValue(p))
	case ":color":
		c, err := e.popString()
		if err != nil {
			return err
		}
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.Color = c
		e.push(presValue(p))
	case ":lw":
		n, err := e.popNumber()
		if err != nil {
			return err
		}
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.LineWidth = int(n)
		e.push(presValue(p))
	case ":alpha":
		n, err := e.popNumber()
		if err != nil {
			return err
		}
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.Alpha = clampAlpha(int(n))
		e.push(presValue(p))
	case ":legend":
		label, err := e.popString()
		if err != nil {
			return err
		}
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.Label = label
		e.push(presValue(p))
	case ":axis":
		n, err := e.popNumber()
		if err != nil {
			return err
		}
		if n != 0 && n != 1 {
			return newEvalError(EvalErrorTypeMismatch, op, fmt.Sprintf("axis must be 0 or 1, got %g", n))
		}
		p, err := e.popPresentation()
		if err != nil {
			return err
		}
		p.Axis = int(n)
		e.push(presValue(p))
	default:
		return newEvalError(EvalErrorUnknownOperator, op, "unknown operator")
	}
	return nil
}

// execEq resolves the :eq operator contextually: two literal words build an
// equality predicate, anything numeric or series-valued compares per sample.
func (e *evaluator) execEq() error {
	if len(e.stack) < 2 {
		return e.underflow(2)
	}
	b := e.stack[len(e.stack)-1]
	a := e.stack[len(e.stack)-2]
	if a.Kind == KindString && (b.Kind == KindString || b.Kind == KindNumber) {
		e.stack = e.stack[:len(e.stack)-2]
		v := b.Str
		if b.Kind == KindNumber {
			v = strconv.FormatFloat(b.Num, 'g', -1, 64)
		}
		e.push(queryValue(EqualQuery{Key: a.Str, Value: v}))
		return nil
	}
	return e.execBinary(":eq")
}

func (e *evaluator) execRe() error {
	pattern, err := e.popString()
	if err != nil {
		return err
	}
	key, err := e.popString()
	if err != nil {
		return err
	}
	q, err := NewRegexQuery(key, pattern)
	if err != nil {
		return newEvalError(EvalErrorUnknown, ":re", err.Error())
	}
	e.push(queryValue(q))
	return nil
}

func (e *evaluator) execBy() error {
	keys, err := e.popList()
	if err != nil {
		return err
	}
	v, err := e.pop()
	if err != nil {
		return err
	}
	switch v.Kind {
	case KindQuery:
		e.push(dataValue(groupByExpr{q: v.Query, keys: keys, fn: AggSum}))
	case KindDataExpr:
		switch d := v.Data.(type) {
		case queryExpr:
			e.push(dataValue(groupByExpr{q: d.q, keys: keys, fn: AggSum}))
		case aggExpr:
			e.push(dataValue(groupByExpr{q: d.q, keys: keys, fn: d.fn}))
		default:
			return newEvalError(EvalErrorTypeMismatch, ":by", "cannot group an already grouped expression")
		}
	default:
		return e.typeMismatch(":by", "expected a predicate or data expression", v.Kind)
	}
	return nil
}

func (e *evaluator) execAgg(op string) error {
	var fn AggFunc
	switch op {
	case ":sum":
		fn = AggSum
	case ":count":
		fn = AggCount
	case ":min":
		fn = AggMin
	case ":max":
		fn = AggMax
	case ":avg":
		fn = AggAvg
	}
	v, err := e.pop()
	if err != nil {
		return err
	}
	switch v.Kind {
	case KindQuery:
		e.push(dataValue(aggExpr{q: v.Query, fn: fn}))
	case KindDataExpr:
		e.push(dataValue(withAggFunc(v.Data, fn)))
	default:
		return e.typeMismatch(op, "expected a predicate or data expression", v.Kind)
	}
	return nil
}

var binaryFns = map[string]func(a, b float64) float64{
	":add": addValues,
	":sub": subValues,
	":mul": mulValues,
	":div": divValues,
	":gt":  gtValues,
	":ge":  geValues,
	":lt":  ltValues,
	":le":  leValues,
	":eq":  eqValues,
}

func (e *evaluator) execBinary(op string) error {
	fn := binaryFns[op]
	b, err := e.pop()
	if err != nil {
		return err
	}
	a, err := e.pop()
	if err != nil {
		return err
	}
	switch {
	case a.isNumeric() && b.isNumeric():
		e.push(numberValue(fn(a.Num, b.Num)))
	case a.isSeries() && b.isNumeric():
		src, _ := a.asExpr()
		e.push(exprValue(scalarExpr{op: op[1:], src: src, scalar: b.Num, fn: fn}))
	case a.isNumeric() && b.isSeries():
		src, _ := b.asExpr()
		e.push(exprValue(scalarExpr{op: op[1:], src: src, scalar: a.Num, reversed: true, fn: fn}))
	case a.isSeries() && b.isSeries():
		lhs, _ := a.asExpr()
		rhs, _ := b.asExpr()
		e.push(exprValue(binaryExpr{op: op[1:], lhs: lhs, rhs: rhs, fn: fn}))
	default:
		return e.typeMismatch(op, "expected numbers or series", a.Kind, b.Kind)
	}
	return nil
}

func (e *evaluator) execStackOp(op string) error {
	n := len(e.stack)
	switch op {
	case ":dup":
		if n < 1 {
			return e.underflow(1)
		}
		top := e.stack[n-1]
		if top.Kind == KindPresentation {
			top = presValue(top.Pres.clone())
		}
		e.push(top)
	case ":swap":
		if n < 2 {
			return e.underflow(2)
		}
		e.stack[n-1], e.stack[n-2] = e.stack[n-2], e.stack[n-1]
	case ":drop":
		if n < 1 {
			return e.underflow(1)
		}
		e.stack = e.stack[:n-1]
	case ":rot":
		// (a b c -- b c a)
		if n < 3 {
			return e.underflow(3)
		}
		a := e.stack[n-3]
		copy(e.stack[n-3:], e.stack[n-2:])
		e.stack[n-1] = a
	case ":2over":
		// (a b c -- a b c a)
		if n < 3 {
			return e.underflow(3)
		}
		v := e.stack[n-3]
		if v.Kind == KindPresentation {
			v = presValue(v.Pres.clone())
		}
		e.push(v)
	}
	return nil
}

// execConst pops the constant value and, when a string literal sits beneath
// it, consumes that as the label. Programs that label via :legend instead
// leave no string underneath and get the formatted value as the default.
func (e *evaluator) execConst() error {
	c, err := e.popNumber()
	if err != nil {
		return err
	}
	label := strconv.FormatFloat(c, 'g', -1, 64)
	if n := len(e.stack); n > 0 && e.stack[n-1].Kind == KindString {
		label = e.stack[n-1].Str
		e.stack = e.stack[:n-1]
	}
	e.push(exprValue(constExpr{value: c, label: label}))
	return nil
}

func (e *evaluator) finish() ([]*Presentation, error) {
	out := make([]*Presentation, 0, len(e.stack))
	for _, v := range e.stack {
		switch v.Kind {
		case KindPresentation:
			out = append(out, v.Pres)
		case KindQuery, KindDataExpr, KindTimeSeriesExpr:
			expr, _ := v.asExpr()
			out = append(out, newPresentation(expr))
		default:
			return nil, newEvalError(EvalErrorTypeMismatch, "",
				fmt.Sprintf("%s value left on stack at end of program", v.Kind))
		}
	}
	return out, nil
}

// Stack helpers.

func (e *evaluator) push(v Value) {
	e.stack = append(e.stack, v)
}

func (e *evaluator) pop() (Value, error) {
	if len(e.stack) == 0 {
		return Value{}, e.underflow(1)
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

func (e *evaluator) popString() (string, error) {
	v, err := e.pop()
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64), nil
	}
	return "", e.typeMismatch(e.op, "expected a string", v.Kind)
}

func (e *evaluator) popNumber() (float64, error) {
	v, err := e.pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != KindNumber {
		return 0, e.typeMismatch(e.op, "expected a number", v.Kind)
	}
	return v.Num, nil
}

func (e *evaluator) popQuery() (Query, error) {
	v, err := e.pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != KindQuery {
		return nil, e.typeMismatch(e.op, "expected a predicate", v.Kind)
	}
	return v.Query, nil
}

func (e *evaluator) popList() ([]string, error) {
	v, err := e.pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != KindList {
		return nil, e.typeMismatch(e.op, "expected a word list", v.Kind)
	}
	return v.List, nil
}

// popPresentation pops the decorator target, wrapping bare expressions in a
// default presentation.
func (e *evaluator) popPresentation() (*Presentation, error) {
	v, err := e.pop()
	if err != nil {
		return nil, err
	}
	if v.Kind == KindPresentation {
		return v.Pres, nil
	}
	if expr, ok := v.asExpr(); ok {
		return newPresentation(expr), nil
	}
	return nil, e.typeMismatch(e.op, "expected a series expression", v.Kind)
}

func (e *evaluator) underflow(need int) error {
	return newEvalError(EvalErrorStackUnderflow, e.op,
		fmt.Sprintf("need %d operands, have %d", need, len(e.stack)))
}

func (e *evaluator) typeMismatch(op, msg string, kinds ...ValueKind) error {
	err := newEvalError(EvalErrorTypeMismatch, op, msg)
	err.Types = kinds
	return err
}

func clampAlpha(a int) int {
	if a < 0 {
		return 0
	}
	if a > 100 {
		return 100
	}
	return a
}

// spansFromSeq converts a boolean sequence into half-open [start, end) bands.
// A band opens at the first sample that is a non-zero number and closes at the
// first subsequent sample that is zero or NaN. Bands are never merged.
func spansFromSeq(seq *TimeSeq) [][2]int64 {
	var spans [][2]int64
	open := int64(-1)
	for i, v := range seq.Values {
		active := !math.IsNaN(v) && v != 0
		t := seq.TimeAt(i)
		if active && open < 0 {
			open = t
		} else if !active && open >= 0 {
			spans = append(spans, [2]int64{open, t})
			open = -1
		}
	}
	if open >= 0 {
		spans = append(spans, [2]int64{open, seq.End()})
	}
	return spans
}
