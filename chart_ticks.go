package skyline

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// yTick is a horizontal gridline position with its label.
type yTick struct {
	value float64
	label string
}

// xTick is a vertical gridline position with its label.
type xTick struct {
	time  int64
	label string
}

// yTicks selects horizontal ticks for [lo, hi]: the smallest step of the form
// {1,2,5}*10^k that yields at most eight ticks across the range. The scan
// starts low enough that at least three ticks fit whenever the range allows.
func yTicks(lo, hi float64) []yTick {
	if hi <= lo {
		hi = lo + 1
	}
	span := hi - lo
	exp := int(math.Floor(math.Log10(span))) - 1
	step := 0.0
	for e := exp; e < exp+4; e++ {
		for _, m := range []float64{1, 2, 5} {
			cand := m * math.Pow(10, float64(e))
			if tickCount(lo, hi, cand) <= 8 {
				step = cand
				break
			}
		}
		if step != 0 {
			break
		}
	}
	if step == 0 {
		step = span
	}

	var ticks []yTick
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		// Snap near-zero accumulation error so labels read "0" not "1e-16".
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		ticks = append(ticks, yTick{value: v, label: formatTickValue(v)})
	}
	return ticks
}

func tickCount(lo, hi, step float64) int {
	return int(math.Floor(hi/step)-math.Ceil(lo/step)) + 1
}

// formatTickValue renders an axis value compactly, using k/M/G suffixes for
// large magnitudes.
func formatTickValue(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 1e9:
		return trimZeros(v/1e9) + "G"
	case av >= 1e6:
		return trimZeros(v/1e6) + "M"
	case av >= 1e3:
		return trimZeros(v/1e3) + "k"
	}
	return trimZeros(v)
}

func trimZeros(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}

// Candidate x-axis tick intervals, in milliseconds.
var xTickSteps = []int64{
	10 * 1000,
	60 * 1000,
	5 * 60 * 1000,
	15 * 60 * 1000,
	60 * 60 * 1000,
	6 * 60 * 60 * 1000,
	24 * 60 * 60 * 1000,
	7 * 24 * 60 * 60 * 1000,
}

// xTicksFor selects vertical ticks over [start, end]: the smallest interval
// from the candidate set that keeps the label count at ten or below, aiming
// for five to ten labels. Labels are rendered in loc.
func xTicksFor(start, end int64, loc *time.Location) []xTick {
	span := end - start
	step := xTickSteps[len(xTickSteps)-1]
	for _, cand := range xTickSteps {
		if span/cand <= 9 {
			step = cand
			break
		}
	}

	var ticks []xTick
	first := alignStart(start, step)
	if first < start {
		first += step
	}
	for t := first; t <= end; t += step {
		ticks = append(ticks, xTick{time: t, label: formatTickTime(t, step, loc)})
	}
	return ticks
}

// formatTickTime renders a tick timestamp at a granularity matched to the
// tick interval.
func formatTickTime(t int64, step int64, loc *time.Location) string {
	ts := time.UnixMilli(t).In(loc)
	switch {
	case step < 60*1000:
		return ts.Format("15:04:05")
	case step < 24*60*60*1000:
		return ts.Format("15:04")
	default:
		return fmt.Sprintf("%s %d", ts.Format("Jan"), ts.Day())
	}
}
