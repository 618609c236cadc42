package skyline

import (
	"image"
	"image/color"
)

// blendPixel composites src over dst[x,y] (source-over, straight alpha).
func blendPixel(dst *image.RGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) {
		return
	}
	if c.A == 0xff {
		dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		return
	}
	if c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	a := uint32(c.A)
	ia := 255 - a
	dst.Pix[i+0] = uint8((uint32(c.R)*a + uint32(dst.Pix[i+0])*ia) / 255)
	dst.Pix[i+1] = uint8((uint32(c.G)*a + uint32(dst.Pix[i+1])*ia) / 255)
	dst.Pix[i+2] = uint8((uint32(c.B)*a + uint32(dst.Pix[i+2])*ia) / 255)
	dst.Pix[i+3] = 0xff
}

// fillRect composites a solid rectangle; bounds are clipped to the image.
func fillRect(dst *image.RGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blendPixel(dst, x, y, c)
		}
	}
}

// drawHLine draws a 1px horizontal line.
func drawHLine(dst *image.RGBA, x0, x1, y int, c color.NRGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		blendPixel(dst, x, y, c)
	}
}

// drawVLine draws a 1px vertical line.
func drawVLine(dst *image.RGBA, x, y0, y1 int, c color.NRGBA) {
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		blendPixel(dst, x, y, c)
	}
}

// drawDot fills a disc of the given diameter centered on (cx, cy). A diameter
// below 2 degenerates to a single pixel.
func drawDot(dst *image.RGBA, cx, cy, diameter int, c color.NRGBA) {
	if diameter <= 1 {
		blendPixel(dst, cx, cy, c)
		return
	}
	r := diameter / 2
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r2 {
				blendPixel(dst, cx+dx, cy+dy, c)
			}
		}
	}
}

// drawSegment draws a line segment of the given width. Width is applied by
// stamping discs along the Bresenham walk, which yields round joins and caps.
func drawSegment(dst *image.RGBA, x0, y0, x1, y1, width int, c color.NRGBA) {
	if width <= 1 {
		bresenham(x0, y0, x1, y1, func(x, y int) {
			blendPixel(dst, x, y, c)
		})
		return
	}
	bresenham(x0, y0, x1, y1, func(x, y int) {
		drawDot(dst, x, y, width, c)
	})
}

// bresenham walks the integer line from (x0,y0) to (x1,y1).
func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
