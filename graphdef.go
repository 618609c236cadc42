package skyline

import (
	"fmt"
	"math"
)

// Theme selects the chart color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Layout selects how presentations map onto plots.
type Layout string

const (
	// LayoutSingle renders every presentation into one plot.
	LayoutSingle Layout = "single"
	// LayoutAxes partitions presentations by their axis attribute, one plot
	// per axis sharing the x-axis.
	LayoutAxes Layout = "axes"
)

// GraphDef is the self-describing render plan: everything the PNG engine and
// the V2 codec need, with no re-evaluation. The tree is value-typed and
// immutable; plots own their lines and vspans.
type GraphDef struct {
	StartTime int64
	EndTime   int64
	Step      int64
	Width     int
	Height    int
	Theme     Theme
	Layout    Layout
	Title     string
	Timezone  string
	Legend    bool
	Plots     []Plot
}

// Plot is one y-axis worth of lines and vertical spans.
type Plot struct {
	AxisLabel string
	Lines     []Line
	VSpans    []VSpan
}

// Line is a single rendered series.
type Line struct {
	Data      *TimeSeq
	Style     LineStyle
	Color     string
	LineWidth int
	Alpha     int
	Label     string
	Axis      int
}

// VSpan is a vertical band covering the full plot height over [Start, End).
type VSpan struct {
	Start int64
	End   int64
	Color string
	Alpha int
	Label string
}

// BuildGraphDef evaluates a program and binds the result to plots. Every
// series is checked against the context window; a mis-aligned series is a hard
// error, never a silently clipped line.
func BuildGraphDef(prog Program, ctx EvalContext, opts Options, index TagIndex) (*GraphDef, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	e := &evaluator{st: &evalState{ctx: ctx, index: index, cache: make(map[string][]TimeSeries)}}
	for _, tok := range prog {
		if err := e.exec(tok); err != nil {
			return nil, err
		}
	}
	presentations, err := e.finish()
	if err != nil {
		return nil, err
	}

	title := opts.Title
	if opts.OnlyGraph {
		title = ""
	}
	gdef := &GraphDef{
		StartTime: ctx.Start,
		EndTime:   ctx.End,
		Step:      ctx.Step,
		Width:     opts.Width,
		Height:    opts.Height,
		Theme:     opts.Theme,
		Layout:    opts.Layout,
		Title:     title,
		Timezone:  ctx.Timezone,
		Legend:    opts.Legend(),
	}

	plotCount := 1
	if opts.Layout == LayoutAxes {
		plotCount = 2
	}
	plots := make([]Plot, plotCount)

	colors := newColorAssigner(paletteFor(opts.Palette, opts.Theme), presentations)
	for _, p := range presentations {
		series, err := p.Expr.evalSeries(e.st)
		if err != nil {
			return nil, err
		}
		plotIdx := 0
		if opts.Layout == LayoutAxes && p.Axis == 1 {
			plotIdx = 1
		}
		for _, ts := range series {
			if ts.Data.Start != ctx.Start || ts.Data.Step != ctx.Step || ts.Data.End() != ctx.End {
				return nil, fmt.Errorf("%w: series %q covers [%d,%d) step %d, graph covers [%d,%d) step %d",
					ErrUnalignedSeries, ts.Label, ts.Data.Start, ts.Data.End(), ts.Data.Step,
					ctx.Start, ctx.End, ctx.Step)
			}
			label := ts.Label
			if p.Label != "" {
				label = p.Label
			}
			color := p.Color
			if color == "" {
				color = colors.next()
			}
			if p.Style == StyleVSpan {
				for _, span := range spansFromSeq(ts.Data) {
					plots[plotIdx].VSpans = append(plots[plotIdx].VSpans, VSpan{
						Start: span[0],
						End:   span[1],
						Color: color,
						Alpha: p.Alpha,
						Label: label,
					})
				}
				continue
			}
			if p.Style == StyleStack && !opts.KeepEmptyStackSeries && allNaN(ts.Data.Values) {
				continue
			}
			plots[plotIdx].Lines = append(plots[plotIdx].Lines, Line{
				Data:      ts.Data,
				Style:     p.Style,
				Color:     color,
				LineWidth: p.LineWidth,
				Alpha:     p.Alpha,
				Label:     label,
				Axis:      p.Axis,
			})
		}
	}

	gdef.Plots = plots
	return gdef, nil
}

// colorAssigner hands out palette colors in insertion order, skipping colors a
// presentation already claimed explicitly.
type colorAssigner struct {
	palette []string
	used    map[string]bool
	cursor   int
}

func newColorAssigner(palette []string, presentations []*Presentation) *colorAssigner {
	used := make(map[string]bool)
	for _, p := range presentations {
		if p.Color != "" {
			used[normalizeColor(p.Color)] = true
		}
	}
	return &colorAssigner{palette: palette, used: used}
}

func (c *colorAssigner) next() string {
	for i := 0; i < len(c.palette); i++ {
		color := c.palette[c.cursor%len(c.palette)]
		c.cursor++
		if !c.used[normalizeColor(color)] {
			return color
		}
	}
	// Every palette entry is explicitly claimed; cycle anyway.
	color := c.palette[c.cursor%len(c.palette)]
	c.cursor++
	return color
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// axisRange computes the y-range of a plot: the min and max over all finite
// samples, with stacked series ranged on their cumulative sums per sign.
// VSpans never contribute. An empty plot defaults to [0, 1].
func axisRange(p Plot) (float64, float64) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	observe := func(v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var posBase, negBase []float64
	for _, ln := range p.Lines {
		if ln.Style == StyleStack {
			if posBase == nil {
				posBase = make([]float64, ln.Data.Len())
				negBase = make([]float64, ln.Data.Len())
			}
			for i, v := range ln.Data.Values {
				if math.IsNaN(v) || i >= len(posBase) {
					continue
				}
				if v >= 0 {
					posBase[i] += v
					observe(posBase[i])
				} else {
					negBase[i] += v
					observe(negBase[i])
				}
			}
			observe(0)
			continue
		}
		for _, v := range ln.Data.Values {
			observe(v)
		}
		if ln.Style == StyleArea {
			observe(0)
		}
	}

	if lo > hi {
		return 0, 1
	}
	if lo == hi {
		// Flat data still needs a visible range.
		if lo == 0 {
			return 0, 1
		}
		if lo > 0 {
			return 0, hi
		}
		return lo, 0
	}
	return lo, hi
}
