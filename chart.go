package skyline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Canvas layout constants, in pixels.
const (
	marginTop    = 10
	marginRight  = 10
	marginBottom = 40
	marginLeft   = 60

	titleBandHeight = 20
	legendRowHeight = 16
	legendSwatch    = 9
	legendPadding   = 8
	plotGap         = 8
)

// RenderPNG rasterises a GraphDef to PNG bytes. Rendering is atomic: the
// caller receives either a complete image or an error, never partial output.
// Output is byte-deterministic for identical input.
func RenderPNG(gdef *GraphDef) ([]byte, error) {
	if gdef.Width < MinWidth || gdef.Height < MinHeight {
		return nil, newRenderError(
			"canvas below minimum", ErrInvalidCanvas)
	}
	if gdef.Step <= 0 || gdef.EndTime <= gdef.StartTime {
		return nil, newRenderError("graph window is empty", ErrInvalidContext)
	}

	theme := colorsFor(gdef.Theme)
	img := image.NewRGBA(image.Rect(0, 0, gdef.Width, gdef.Height))
	fillRect(img, img.Rect, theme.background)

	// Margins shrink on small canvases so the minimum size still leaves a
	// usable plot area.
	mt := minInt(marginTop, gdef.Height/8)
	mb := minInt(marginBottom, gdef.Height/4)
	ml := minInt(marginLeft, gdef.Width/4)
	mr := minInt(marginRight, gdef.Width/8)

	top := mt
	if gdef.Title != "" {
		drawTextCentered(img, gdef.Width/2, top+lineHeight, gdef.Title, theme.text)
		top += titleBandHeight
	}

	var entries []legendEntry
	if gdef.Legend {
		entries = legendEntries(gdef)
	}
	legendRows := layoutLegendRows(entries, gdef.Width-2*legendPadding)
	legendHeight := len(legendRows) * legendRowHeight
	if gdef.Height-mb-legendHeight-top < 10 {
		// Not enough room for a legend band on this canvas.
		legendRows = nil
		legendHeight = 0
	}

	bottom := gdef.Height - mb - legendHeight
	if bottom-top < 10 {
		return nil, newRenderError("no room for plot area", ErrInvalidCanvas)
	}
	plotArea := image.Rect(ml, top, gdef.Width-mr, bottom)

	nplots := len(gdef.Plots)
	if nplots == 0 {
		nplots = 1
	}
	bandHeight := (plotArea.Dy() - (nplots-1)*plotGap) / nplots
	for i := 0; i < nplots; i++ {
		rect := image.Rect(
			plotArea.Min.X,
			plotArea.Min.Y+i*(bandHeight+plotGap),
			plotArea.Max.X,
			plotArea.Min.Y+i*(bandHeight+plotGap)+bandHeight,
		)
		var plot Plot
		if i < len(gdef.Plots) {
			plot = gdef.Plots[i]
		}
		drawPlot(img, rect, plot, gdef, theme, i == nplots-1)
	}

	if legendHeight > 0 {
		drawLegend(img, legendRows, gdef.Height-legendHeight, theme)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, newRenderError("png encode failed", err)
	}
	return buf.Bytes(), nil
}

// plotGeom maps data coordinates to pixels inside a plot rectangle.
type plotGeom struct {
	rect   image.Rectangle
	start  int64
	end    int64
	lo, hi float64
}

func (g plotGeom) x(t int64) int {
	return g.rect.Min.X + int(int64(g.rect.Dx()-1)*(t-g.start)/(g.end-g.start))
}

func (g plotGeom) y(v float64) int {
	frac := (v - g.lo) / (g.hi - g.lo)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return g.rect.Max.Y - 1 - int(math.Round(frac*float64(g.rect.Dy()-1)))
}

func drawPlot(img *image.RGBA, rect image.Rectangle, plot Plot, gdef *GraphDef, theme themeColors, lastPlot bool) {
	lo, hi := axisRange(plot)
	if lo > 0 {
		// Anchor positive-only plots at zero.
		lo = 0
	}
	ticks := yTicks(lo, hi)

	g := plotGeom{rect: rect, start: gdef.StartTime, end: gdef.EndTime, lo: lo, hi: hi}

	loc := EvalContext{Timezone: gdef.Timezone}.Location()
	xticks := xTicksFor(gdef.StartTime, gdef.EndTime, loc)

	// Gridlines.
	for _, tk := range ticks {
		y := g.y(tk.value)
		drawHLine(img, rect.Min.X, rect.Max.X-1, y, theme.grid)
	}
	for _, tk := range xticks {
		x := g.x(tk.time)
		drawVLine(img, x, rect.Min.Y, rect.Max.Y-1, theme.grid)
	}

	// VSpans render behind all lines.
	for _, vs := range plot.VSpans {
		c, err := parseColor(vs.Color, vs.Alpha)
		if err != nil {
			c = color.NRGBA{R: 0xff, A: uint8(255 * clampAlpha(vs.Alpha) / 100)}
		}
		fillRect(img, image.Rect(g.x(vs.Start), rect.Min.Y, g.x(vs.End), rect.Max.Y), c)
	}

	drawPlotLines(img, g, plot)

	// Axis frame.
	drawVLine(img, rect.Min.X, rect.Min.Y, rect.Max.Y-1, theme.axis)
	drawHLine(img, rect.Min.X, rect.Max.X-1, rect.Max.Y-1, theme.axis)

	// Tick labels: y labels on every plot, x labels only under the last one.
	for _, tk := range ticks {
		drawTextRight(img, rect.Min.X-4, g.y(tk.value)+lineHeight/3, tk.label, theme.text)
	}
	if lastPlot {
		for _, tk := range xticks {
			drawTextCentered(img, g.x(tk.time), rect.Max.Y+lineHeight+2, tk.label, theme.text)
		}
	}
	if plot.AxisLabel != "" {
		drawText(img, rect.Min.X+4, rect.Min.Y+lineHeight, plot.AxisLabel, theme.text)
	}
}

// drawPlotLines renders stacks first (they form the backdrop), then areas and
// plain lines together in insertion order.
func drawPlotLines(img *image.RGBA, g plotGeom, plot Plot) {
	var posBase, negBase []float64
	for _, ln := range plot.Lines {
		if ln.Style != StyleStack {
			continue
		}
		n := ln.Data.Len()
		if posBase == nil {
			posBase = make([]float64, n)
			negBase = make([]float64, n)
		}
		c := lineColor(ln)
		for i, v := range ln.Data.Values {
			if math.IsNaN(v) || i >= len(posBase) {
				continue
			}
			base := posBase
			if v < 0 {
				base = negBase
			}
			fillColumn(img, g, ln.Data, i, base[i], base[i]+v, c)
			if v >= 0 {
				posBase[i] += v
			} else {
				negBase[i] += v
			}
		}
	}

	for _, ln := range plot.Lines {
		switch ln.Style {
		case StyleArea:
			c := lineColor(ln)
			for i, v := range ln.Data.Values {
				if math.IsNaN(v) {
					continue
				}
				fillColumn(img, g, ln.Data, i, 0, v, c)
			}
			strokeSeries(img, g, ln)
		case StyleLine:
			strokeSeries(img, g, ln)
		}
	}
}

// fillColumn fills the vertical band for sample i between data values v0 and
// v1. The band spans the x range from this sample to the next.
func fillColumn(img *image.RGBA, g plotGeom, seq *TimeSeq, i int, v0, v1 float64, c color.NRGBA) {
	x0 := g.x(seq.TimeAt(i))
	x1 := g.x(seq.TimeAt(i) + seq.Step)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	y0 := g.y(v0)
	y1 := g.y(v1)
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	fillRect(img, image.Rect(x0, y0, x1, y1+1), c)
}

// strokeSeries draws the polyline of a series. NaN samples break the line
// into segments; an isolated sample renders as a dot of lineWidth diameter.
// Translucent strokes rasterise into a coverage mask first so overlapping
// stamps blend once.
func strokeSeries(img *image.RGBA, g plotGeom, ln Line) {
	c := lineColor(ln)
	width := ln.LineWidth
	if width < 1 {
		width = 1
	}

	var stamp func(x, y int)
	var flush func()
	if c.A == 0xff {
		stamp = func(x, y int) { drawDot(img, x, y, width, c) }
		flush = func() {}
	} else {
		mask := image.NewAlpha(g.rect)
		stamp = func(x, y int) {
			stampMask(mask, x, y, width)
		}
		flush = func() {
			blendMask(img, mask, c)
		}
	}

	values := ln.Data.Values
	prev := -1 // index of previous non-NaN sample
	for i, v := range values {
		if math.IsNaN(v) {
			prev = -1
			continue
		}
		if prev >= 0 {
			x0, y0 := g.x(ln.Data.TimeAt(prev)), g.y(values[prev])
			x1, y1 := g.x(ln.Data.TimeAt(i)), g.y(v)
			bresenham(x0, y0, x1, y1, stamp)
		}
		prev = i
	}
	// Isolated samples have no segment to carry them; render each as a dot of
	// lineWidth diameter.
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		leftGap := i == 0 || math.IsNaN(values[i-1])
		rightGap := i == len(values)-1 || math.IsNaN(values[i+1])
		if leftGap && rightGap {
			stamp(g.x(ln.Data.TimeAt(i)), g.y(v))
		}
	}
	flush()
}

// stampMask marks a disc of the given diameter as fully covered.
func stampMask(mask *image.Alpha, x, y, diameter int) {
	if diameter <= 1 {
		if (image.Point{X: x, Y: y}).In(mask.Rect) {
			mask.SetAlpha(x, y, color.Alpha{A: 0xff})
		}
		return
	}
	r := diameter / 2
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				p := image.Point{X: x + dx, Y: y + dy}
				if p.In(mask.Rect) {
					mask.SetAlpha(p.X, p.Y, color.Alpha{A: 0xff})
				}
			}
		}
	}
}

// blendMask composites a uniform color through a coverage mask.
func blendMask(img *image.RGBA, mask *image.Alpha, c color.NRGBA) {
	for y := mask.Rect.Min.Y; y < mask.Rect.Max.Y; y++ {
		for x := mask.Rect.Min.X; x < mask.Rect.Max.X; x++ {
			if mask.AlphaAt(x, y).A > 0 {
				blendPixel(img, x, y, c)
			}
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// lineColor resolves a line's color and alpha, falling back to opaque black
// for unparseable colors so a bad color never aborts a render.
func lineColor(ln Line) color.NRGBA {
	c, err := parseColor(ln.Color, ln.Alpha)
	if err != nil {
		return color.NRGBA{A: uint8(255 * clampAlpha(ln.Alpha) / 100)}
	}
	return c
}
