// Package skyline is a time-series graph rendering engine driven by a
// stack-based query language over a corpus of tagged series.
//
// A graph request is one pure evaluation: a postfix program is tokenized,
// executed against an operand stack to produce presentations, bound to a
// GraphDef render plan, and rasterised to a deterministic PNG.
//
// Basic usage:
//
//	index := skyline.NewMemoryIndex(series)
//	ctx := skyline.EvalContext{
//		Start: start, End: end, Step: 60_000, Timezone: "UTC",
//	}
//	res, err := skyline.Render(
//		"name,sps,:eq,(,nf.cluster,),:by,:sum", ctx,
//		skyline.DefaultOptions(), index)
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.WriteFile("graph.png", res.PNG, 0o644)
//
// The program language composes tag predicates (:eq, :re, :and, :or, :not,
// :has), data expressions (:by, :sum, :count, :min, :max, :avg), per-sample
// arithmetic (:add, :sub, :mul, :div and the comparison operators), and
// visual decorators (:line, :area, :stack, :vspan, :color, :lw, :alpha,
// :legend, :axis, :const).
//
// The GraphDef produced alongside the PNG is self-describing: it can be
// serialised with EncodeGraphDef, shipped elsewhere, and re-rendered with
// RenderPNG to byte-identical output.
//
// Series data arrives through the TagIndex interface; MemoryIndex serves
// in-process corpora and SQLiteIndex serves row-per-sample databases. The
// engine itself never touches I/O.
package skyline
