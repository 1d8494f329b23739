// Package fontrender rasterizes thumbnail label text to premultiplied-ARGB
// bitmaps. It provides two implementations behind a shared interface so
// the compositor always has a usable renderer even with no TTF asset
// available: a TrueType path for crisp text and a guaranteed bitmap-font
// fallback.
package fontrender

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer rasterizes text to a premultiplied-ARGB image sized exactly to
// the rendered string, with baseline information for overlay placement.
type Renderer interface {
	// Render draws s in the given color and returns the resulting bitmap
	// plus its baseline offset from the image's top edge.
	Render(s string, fg color.RGBA) (img *image.RGBA, baseline int, err error)

	// RequiresDirectRendering reports whether this renderer has no
	// advance glyph-bitmap cache of its own and must be drawn into a
	// throwaway image on every call, the way the X11 core font this
	// fallback stands in for always worked.
	RequiresDirectRendering() bool
}

// TrueTypeRenderer rasterizes via golang/freetype, parsing the font once
// and caching parsed fonts by content hash, since the same TTF bytes may
// be handed to multiple renderer instances (e.g. one per thumbnail label
// size).
type TrueTypeRenderer struct {
	face font.Face
}

var (
	parsedFontsMu sync.Mutex
	parsedFonts   = map[[md5.Size]byte]*truetype.Font{}
)

// NewTrueTypeRenderer parses ttf (or reuses a cached parse of identical
// bytes) and builds a hinted face at the given point size.
func NewTrueTypeRenderer(ttf []byte, sizePoints float64) (*TrueTypeRenderer, error) {
	key := md5.Sum(ttf)

	parsedFontsMu.Lock()
	fnt := parsedFonts[key]
	parsedFontsMu.Unlock()

	if fnt == nil {
		var err error
		fnt, err = freetype.ParseFont(ttf)
		if err != nil {
			return nil, fmt.Errorf("fontrender: parse ttf: %w", err)
		}
		parsedFontsMu.Lock()
		parsedFonts[key] = fnt
		parsedFontsMu.Unlock()
	}

	face := truetype.NewFace(fnt, &truetype.Options{
		Size:    sizePoints,
		Hinting: font.HintingFull,
		DPI:     72,
	})
	return &TrueTypeRenderer{face: face}, nil
}

// RequiresDirectRendering is false: the truetype face already caches
// rasterized glyphs internally, so font.Drawer calls are cheap.
func (r *TrueTypeRenderer) RequiresDirectRendering() bool { return false }

// Render draws s with r's face into a tightly-bounded RGBA image.
func (r *TrueTypeRenderer) Render(s string, fg color.RGBA) (*image.RGBA, int, error) {
	return drawString(r.face, s, fg)
}

// CoreFontRenderer is the guaranteed fallback: golang.org/x/image's
// built-in bitmap font, requiring no external asset at all. It stands in
// for the original's X11 core-font fallback, and like that core font has
// no glyph-bitmap cache the compositor can reuse across frames.
type CoreFontRenderer struct{}

// NewCoreFontRenderer returns the bitmap-font fallback renderer.
func NewCoreFontRenderer() *CoreFontRenderer { return &CoreFontRenderer{} }

// RequiresDirectRendering is true: basicfont.Face7x13 has no advance cache
// of its own, so each Render call redraws directly.
func (r *CoreFontRenderer) RequiresDirectRendering() bool { return true }

// Render draws s with the built-in 7x13 bitmap face.
func (r *CoreFontRenderer) Render(s string, fg color.RGBA) (*image.RGBA, int, error) {
	return drawString(basicfont.Face7x13, s, fg)
}

// drawString measures s against face, allocates a tightly-bounded
// premultiplied-ARGB image, and draws s into it with font.Drawer.
func drawString(face font.Face, s string, fg color.RGBA) (*image.RGBA, int, error) {
	if s == "" {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), 0, nil
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	height := ascent + descent

	width := font.MeasureString(face, s).Ceil()
	if width <= 0 {
		width = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	// color.RGBA is alpha-premultiplied by convention, which is exactly
	// what RENDER's PictOpOver composite expects.
	src := &image.Uniform{C: fg}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  src,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	drawer.DrawString(s)

	return img, ascent, nil
}
