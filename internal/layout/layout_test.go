package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentBox_A4WordMargins(t *testing.T) {
	box := ContentBox(A4, WordMargins)
	assert.InDelta(t, 25.4, box.X, 1e-9)
	assert.InDelta(t, 25.4, box.Y, 1e-9)
	assert.InDelta(t, 159.2, box.W, 1e-9)
	assert.InDelta(t, 246.2, box.H, 1e-9)
}

func TestFitInside(t *testing.T) {
	box := Rect{X: 10, Y: 20, W: 100, H: 200}

	tests := []struct {
		name string
		size [2]float64
		want Rect
	}{
		{
			name: "small item is centered without scaling",
			size: [2]float64{50, 50},
			want: Rect{X: 35, Y: 95, W: 50, H: 50},
		},
		{
			name: "wide item is limited by width",
			size: [2]float64{400, 100},
			want: Rect{X: 10, Y: 107.5, W: 100, H: 25},
		},
		{
			name: "tall item is limited by height",
			size: [2]float64{100, 800},
			want: Rect{X: 47.5, Y: 20, W: 25, H: 200},
		},
		{
			name: "exact fit",
			size: [2]float64{100, 200},
			want: box,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitInside(tt.size[0], tt.size[1], box)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
			assert.InDelta(t, tt.want.H, got.H, 1e-9)
		})
	}
}

func TestFitInside_PreservesAspectRatio(t *testing.T) {
	box := ContentBox(A4, WordMargins)
	for _, dims := range [][2]float64{{3000, 2000}, {640, 480}, {1, 9000}, {210, 297}} {
		got := FitInside(dims[0], dims[1], box)
		assert.LessOrEqual(t, got.W, box.W+1e-9)
		assert.LessOrEqual(t, got.H, box.H+1e-9)
		assert.InDelta(t, dims[0]/dims[1], got.W/got.H, 1e-6)
	}
}

func TestFitInside_DegenerateSize(t *testing.T) {
	got := FitInside(0, 10, Rect{W: 10, H: 10})
	assert.Zero(t, got.W)
	assert.Zero(t, got.H)
}

func TestFitPixels(t *testing.T) {
	w, h := FitPixels(8000, 4000, 4096, 4096)
	assert.Equal(t, 4096, w)
	assert.Equal(t, 2048, h)

	w, h = FitPixels(800, 600, 4096, 4096)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	w, h = FitPixels(10000, 1, 100, 100)
	assert.Equal(t, 100, w)
	assert.Equal(t, 1, h)
}

func TestPixelsToMM(t *testing.T) {
	assert.InDelta(t, 25.4, PixelsToMM(96, 96), 1e-9)
	assert.InDelta(t, 25.4, PixelsToMM(150, 150), 1e-9)
	assert.InDelta(t, 25.4, PixelsToMM(96, 0), 1e-9)
	// An A4 page rendered at 150 DPI maps back to its paper size.
	assert.InDelta(t, 210, PixelsToMM(1240, 150), 0.1)
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, "3", PageRange(3, 3))
	assert.Equal(t, "1 - 2", PageRange(1, 2))
	assert.Equal(t, "-", PageRange(4, 3))
}

func TestLowerRoman(t *testing.T) {
	cases := map[int]string{
		1: "i", 2: "ii", 3: "iii", 4: "iv", 5: "v", 9: "ix", 10: "x",
		14: "xiv", 19: "xix", 40: "xl", 90: "xc", 400: "cd", 1994: "mcmxciv",
	}
	for n, want := range cases {
		assert.Equal(t, want, LowerRoman(n), "LowerRoman(%d)", n)
	}
	assert.Equal(t, "0", LowerRoman(0))
}

func TestRowsPerPage(t *testing.T) {
	assert.Equal(t, 10, RowsPerPage(100, 10))
	assert.Equal(t, 9, RowsPerPage(99.9, 10))
	assert.Equal(t, 1, RowsPerPage(5, 10))
	assert.Equal(t, 1, RowsPerPage(100, 0))
	assert.Equal(t, 1, RowsPerPage(0, 1))
}
