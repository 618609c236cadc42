package skyline

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Built-in palettes. Every palette is ordered, deterministic, and at least
// eight colors long. The armytage palette follows Colin Armytage's set of
// colors chosen for mutual contrast.
var palettes = map[string][]string{
	"armytage": {
		"f0a3ff", "0075dc", "993f00", "4c005c", "191919", "005c31", "2bce48", "ffcc99",
		"808080", "94ffb5", "8f7c00", "9dcc00", "c20088", "003380", "ffa405", "ffa8bb",
		"426600", "ff0010", "5ef1f2", "00998f", "e0ff66", "740aff", "990000", "ffff80",
	},
	"default": {
		"d62728", "1f77b4", "2ca02c", "ff7f0e", "9467bd", "8c564b", "e377c2", "17becf",
	},
	"atlas": {
		"1440e0", "d62728", "2ca02c", "9467bd", "ff7f0e", "17becf", "8c564b", "e377c2",
	},
	"dark24": {
		"2e91e5", "e15f99", "1ca71c", "fb0d0d", "da16ff", "222a2a", "b68100", "750d86",
		"eb663b", "511cfb", "00a08b", "fb00d1", "fc0080", "b2828d", "6c7c32", "778aae",
		"862a16", "a777f1", "620042", "1616a7", "da60ca", "6c4516", "0d2a63", "af0038",
	},
	"light24": {
		"fd3216", "00fe35", "6a76fc", "fed4c4", "fe00ce", "0df9ff", "f6f926", "ff9616",
		"479b55", "eea6fb", "dc587d", "d626ff", "6e899c", "00b5f7", "b68e00", "c9fbe5",
		"ff0092", "22ffa7", "e3ee9e", "86ce00", "bc7196", "7e7dcd", "fc6955", "e48f72",
	},
}

// paletteFor resolves a palette name against the theme. Unknown names fall
// back to the theme default so a misspelled palette still renders.
func paletteFor(name string, theme Theme) []string {
	if p, ok := palettes[name]; ok {
		return p
	}
	if theme == ThemeDark {
		return palettes["light24"]
	}
	return palettes["default"]
}

// Named colors accepted wherever a hex color is.
var namedColors = map[string]string{
	"black":   "000000",
	"white":   "ffffff",
	"red":     "ff0000",
	"green":   "00ff00",
	"blue":    "0000ff",
	"yellow":  "ffff00",
	"orange":  "ffa500",
	"purple":  "800080",
	"gray":    "808080",
	"grey":    "808080",
	"magenta": "ff00ff",
	"cyan":    "00ffff",
}

// normalizeColor maps a color word to lowercase hex without a leading '#'.
func normalizeColor(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "#"))
	if hex, ok := namedColors[s]; ok {
		return hex
	}
	return s
}

// parseColor converts "rrggbb" or "aarrggbb" hex (leading '#' optional) or a
// named color to an RGBA value. alphaPct scales the result's opacity.
func parseColor(s string, alphaPct int) (color.NRGBA, error) {
	hex := normalizeColor(s)
	var a, r, g, b uint64
	var err error
	switch len(hex) {
	case 6:
		a = 0xff
		r, g, b, err = parseHexRGB(hex)
	case 8:
		a, err = strconv.ParseUint(hex[0:2], 16, 8)
		if err == nil {
			r, g, b, err = parseHexRGB(hex[2:])
		}
	default:
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	if alphaPct < 100 {
		a = a * uint64(clampAlpha(alphaPct)) / 100
	}
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}

func parseHexRGB(hex string) (r, g, b uint64, err error) {
	if r, err = strconv.ParseUint(hex[0:2], 16, 8); err != nil {
		return
	}
	if g, err = strconv.ParseUint(hex[2:4], 16, 8); err != nil {
		return
	}
	b, err = strconv.ParseUint(hex[4:6], 16, 8)
	return
}

// themeColors groups the fixed chrome colors of a theme.
type themeColors struct {
	background color.NRGBA
	text       color.NRGBA
	axis       color.NRGBA
	grid       color.NRGBA
}

func colorsFor(theme Theme) themeColors {
	if theme == ThemeDark {
		return themeColors{
			background: color.NRGBA{R: 0x0d, G: 0x0d, B: 0x0d, A: 0xff},
			text:       color.NRGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff},
			axis:       color.NRGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff},
			grid:       color.NRGBA{R: 0x2d, G: 0x2d, B: 0x2d, A: 0xff},
		}
	}
	return themeColors{
		background: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		text:       color.NRGBA{A: 0xff},
		axis:       color.NRGBA{A: 0xff},
		grid:       color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff},
	}
}
