// Package layout holds the page geometry and numbering arithmetic shared by
// the index builder, the merger and the output writers. All lengths are in
// millimetres.
package layout

import (
	"math"
	"strconv"
	"strings"
)

// MillimetresPerInch converts between inches and millimetres.
const MillimetresPerInch = 25.4

// ScreenDPI is the resolution assumed for plain images without better
// information.
const ScreenDPI = 96

// Size is a page size.
type Size struct {
	Width  float64
	Height float64
}

// A4 is the paper size of every generated document.
var A4 = Size{Width: 210, Height: 297}

// Margins are page margins.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// WordMargins are the one-inch default margins Word uses.
var WordMargins = Margins{Top: 25.4, Right: 25.4, Bottom: 25.4, Left: 25.4}

// Rect is a placed rectangle with its origin at the top-left corner.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// ContentBox returns the area inside the margins of a page.
func ContentBox(page Size, m Margins) Rect {
	return Rect{
		X: m.Left,
		Y: m.Top,
		W: page.Width - m.Left - m.Right,
		H: page.Height - m.Top - m.Bottom,
	}
}

// PixelsToMM converts a pixel length at the given DPI to millimetres.
func PixelsToMM(px int, dpi int) float64 {
	if dpi <= 0 {
		dpi = ScreenDPI
	}
	return float64(px) / float64(dpi) * MillimetresPerInch
}

// FitInside scales a w x h item down (never up) so it fits inside box while
// keeping its aspect ratio, and centers it.
func FitInside(w, h float64, box Rect) Rect {
	if w <= 0 || h <= 0 {
		return Rect{X: box.X + box.W/2, Y: box.Y + box.H/2}
	}
	ratio := math.Min(box.W/w, box.H/h)
	if ratio > 1 {
		ratio = 1
	}
	fw, fh := w*ratio, h*ratio
	return Rect{
		X: box.X + (box.W-fw)/2,
		Y: box.Y + (box.H-fh)/2,
		W: fw,
		H: fh,
	}
}

// FitPixels returns the largest pixel size no bigger than maxW x maxH that
// keeps the aspect ratio of w x h. Sizes that already fit are returned as is.
func FitPixels(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := int(math.Floor(float64(w) * ratio))
	fh := int(math.Floor(float64(h) * ratio))
	return max(fw, 1), max(fh, 1)
}

// PageRange formats a listing's page span for the index: "3" for a single
// page, "1 - 2" for a range and "-" when the listing has no pages.
func PageRange(start, end int) string {
	switch {
	case end < start:
		return "-"
	case start == end:
		return strconv.Itoa(start)
	default:
		return strconv.Itoa(start) + " - " + strconv.Itoa(end)
	}
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

// LowerRoman formats n as a lower-case roman numeral. Non-positive values
// are formatted as decimal.
func LowerRoman(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var sb strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			sb.WriteString(r.symbol)
			n -= r.value
		}
	}
	return sb.String()
}

// RowsPerPage returns how many fixed-height rows fit in a given height,
// never less than one.
func RowsPerPage(available, rowHeight float64) int {
	if rowHeight <= 0 {
		return 1
	}
	return max(int(math.Floor(available/rowHeight)), 1)
}
