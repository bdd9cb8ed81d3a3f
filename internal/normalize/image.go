package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	// Extra decoders for listing images.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dgallion1/docbind/internal/layout"
)

// pageImage is an encoded image ready to embed in an output page.
type pageImage struct {
	data   []byte
	format string // "PNG" or "JPEG"
	width  int
	height int
	dpi    int
}

// fitImage bounds an encoded image to maxPixels on its longer side. JPEGs
// that already fit are embedded untouched; everything else is re-encoded as
// an 8-bit PNG so every writer can embed it. dpi is the resolution the image
// was produced at and is scaled along with the pixels.
func fitImage(data []byte, maxPixels, dpi int) (pageImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return pageImage{}, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return pageImage{}, fmt.Errorf("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if maxPixels <= 0 {
		maxPixels = max(cfg.Width, cfg.Height)
	}
	w, h := layout.FitPixels(cfg.Width, cfg.Height, maxPixels, maxPixels)
	scaled := w != cfg.Width || h != cfg.Height

	if format == "jpeg" && !scaled {
		return pageImage{data: data, format: "JPEG", width: w, height: h, dpi: dpi}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return pageImage{}, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if scaled {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		dpi = max(dpi*w/cfg.Width, 1)
	} else {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if format == "jpeg" {
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
			return pageImage{}, fmt.Errorf("encode jpeg: %w", err)
		}
		return pageImage{data: buf.Bytes(), format: "JPEG", width: w, height: h, dpi: dpi}, nil
	}
	if err := png.Encode(&buf, dst); err != nil {
		return pageImage{}, fmt.Errorf("encode png: %w", err)
	}
	return pageImage{data: buf.Bytes(), format: "PNG", width: w, height: h, dpi: dpi}, nil
}
