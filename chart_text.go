package skyline

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// The chart font is the fixed 7x13 bitmap face shipped with x/image. A bitmap
// face rasterises identically everywhere, which keeps PNG output
// byte-deterministic across platforms.
var chartFace = basicfont.Face7x13

const (
	glyphWidth = 7
	lineHeight = 13
)

// textWidth returns the pixel width of s in the chart font.
func textWidth(s string) int {
	return font.MeasureString(chartFace, s).Ceil()
}

// drawText renders s with its baseline at (x, y).
func drawText(dst *image.RGBA, x, y int, s string, c color.NRGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: chartFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawTextCentered renders s horizontally centered on cx with baseline y.
func drawTextCentered(dst *image.RGBA, cx, y int, s string, c color.NRGBA) {
	drawText(dst, cx-textWidth(s)/2, y, s, c)
}

// drawTextRight renders s right-aligned so it ends at x with baseline y.
func drawTextRight(dst *image.RGBA, x, y int, s string, c color.NRGBA) {
	drawText(dst, x-textWidth(s), y, s, c)
}

// truncateText shortens s so it fits within maxWidth pixels, appending an
// ellipsis when anything was cut.
func truncateText(s string, maxWidth int) string {
	if textWidth(s) <= maxWidth {
		return s
	}
	keep := maxWidth/glyphWidth - 2
	if keep < 1 {
		return ""
	}
	runes := []rune(s)
	if keep >= len(runes) {
		keep = len(runes) - 1
	}
	return string(runes[:keep]) + ".."
}
