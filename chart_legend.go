package skyline

import "image"

// legendEntry is one swatch-plus-label cell.
type legendEntry struct {
	label  string
	color  string
	alpha  int
	filled bool // filled swatch for area/stack/vspan, line swatch otherwise
}

func (e legendEntry) width() int {
	return legendSwatch + 4 + textWidth(e.label) + legendPadding
}

// legendEntries collects one entry per line and per vspan, plot by plot: a
// plot's lines in insertion order, then its vspans in insertion order. A
// vspan placed before a line in the program is still listed after the lines.
// Duplicate labels keep their own entries.
func legendEntries(gdef *GraphDef) []legendEntry {
	var entries []legendEntry
	for _, plot := range gdef.Plots {
		for _, ln := range plot.Lines {
			entries = append(entries, legendEntry{
				label:  ln.Label,
				color:  ln.Color,
				alpha:  ln.Alpha,
				filled: ln.Style == StyleArea || ln.Style == StyleStack,
			})
		}
		for _, vs := range plot.VSpans {
			entries = append(entries, legendEntry{
				label:  vs.Label,
				color:  vs.Color,
				alpha:  vs.Alpha,
				filled: true,
			})
		}
	}
	return entries
}

// layoutLegendRows wraps entries into rows no wider than maxWidth.
func layoutLegendRows(entries []legendEntry, maxWidth int) [][]legendEntry {
	var rows [][]legendEntry
	var row []legendEntry
	rowWidth := 0
	for _, e := range entries {
		w := e.width()
		if len(row) > 0 && rowWidth+w > maxWidth {
			rows = append(rows, row)
			row = nil
			rowWidth = 0
		}
		row = append(row, e)
		rowWidth += w
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// drawLegend renders the legend band starting at pixel row top.
func drawLegend(img *image.RGBA, rows [][]legendEntry, top int, theme themeColors) {
	y := top
	for _, row := range rows {
		x := legendPadding
		for _, e := range row {
			c, err := parseColor(e.color, e.alpha)
			if err != nil {
				c = theme.text
			}
			swatchY := y + (legendRowHeight-legendSwatch)/2
			if e.filled {
				fillRect(img, image.Rect(x, swatchY, x+legendSwatch, swatchY+legendSwatch), c)
			} else {
				mid := swatchY + legendSwatch/2
				fillRect(img, image.Rect(x, mid-1, x+legendSwatch, mid+2), c)
			}
			drawText(img, x+legendSwatch+4, y+legendRowHeight-4, e.label, theme.text)
			x += e.width()
		}
		y += legendRowHeight
	}
}
