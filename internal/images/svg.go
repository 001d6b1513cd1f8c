package images

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	// Fallback canvas for SVGs that declare no usable viewBox.
	defaultSVGSize = 512

	maxRasterDim = 8192
)

// RasterizeSVG renders an SVG document to PNG at the given scale
// factor. Dimensions come from the document's viewBox, clamped so a
// hostile or broken file cannot demand an absurd allocation.
func RasterizeSVG(data []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w := icon.ViewBox.W
	h := icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}

	pw := int(math.Ceil(w * scale))
	ph := int(math.Ceil(h * scale))
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}
	if pw > maxRasterDim || ph > maxRasterDim {
		return nil, fmt.Errorf("svg raster size %dx%d exceeds limit", pw, ph)
	}

	icon.SetTarget(0, 0, float64(pw), float64(ph))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
