package skyline

// RenderResult is the output of one graph request: the rasterised image and
// the structured plan it was drawn from.
type RenderResult struct {
	PNG      []byte
	GraphDef *GraphDef
}

// Render is the programmatic entry point: parse the program, evaluate it
// against the tag index over the context window, build the GraphDef, and
// rasterise it. The call is a pure function of its inputs with no side
// effects; errors surface with their original kind (parse, eval, data,
// render) and index I/O failures pass through untouched.
func Render(program string, ctx EvalContext, opts Options, index TagIndex) (*RenderResult, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Validate(); err != nil {
		return nil, err
	}

	prog, err := ParseProgram(program)
	if err != nil {
		return nil, err
	}
	gdef, err := BuildGraphDef(prog, ctx, opts, index)
	if err != nil {
		return nil, err
	}
	pngBytes, err := RenderPNG(gdef)
	if err != nil {
		return nil, err
	}
	return &RenderResult{PNG: pngBytes, GraphDef: gdef}, nil
}
