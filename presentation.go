package skyline

// LineStyle selects how a presentation is drawn.
type LineStyle int

const (
	// StyleLine draws a polyline.
	StyleLine LineStyle = iota
	// StyleArea fills between the polyline and the zero baseline.
	StyleArea
	// StyleStack accumulates onto the plot's running stack baselines.
	StyleStack
	// StyleVSpan converts the boolean series into vertical bands.
	StyleVSpan
)

// String returns the style's wire name.
func (s LineStyle) String() string {
	switch s {
	case StyleLine:
		return "line"
	case StyleArea:
		return "area"
	case StyleStack:
		return "stack"
	case StyleVSpan:
		return "vspan"
	}
	return "line"
}

// parseLineStyle maps a wire name back to a style; unknown names fall back to
// line.
func parseLineStyle(s string) LineStyle {
	switch s {
	case "area":
		return StyleArea
	case "stack":
		return StyleStack
	case "vspan":
		return StyleVSpan
	}
	return StyleLine
}

// Presentation is a time-series expression annotated with visual attributes,
// the final operand kind a program produces.
type Presentation struct {
	Expr      TimeSeriesExpr
	Style     LineStyle
	Color     string // hex "rrggbb"/"aarrggbb" or a named color; empty selects from the palette
	LineWidth int
	Alpha     int // opacity percentage 0-100
	Label     string
	Axis      int // 0 left, 1 right
}

// newPresentation wraps an expression with default visual attributes.
func newPresentation(expr TimeSeriesExpr) *Presentation {
	return &Presentation{
		Expr:      expr,
		Style:     StyleLine,
		LineWidth: 1,
		Alpha:     100,
	}
}

// clone copies the presentation so decorators never alias stack duplicates.
func (p *Presentation) clone() *Presentation {
	cp := *p
	return &cp
}
