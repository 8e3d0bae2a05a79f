package bitcrush

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// rotateHue shifts every pixel's hue by degrees in HSL space. Saturation,
// lightness, and alpha are left as they are.
func rotateHue(img image.Image, degrees float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		src := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}
		h, s, l := src.Hsl()
		h = math.Mod(h+degrees, 360)
		if h < 0 {
			h += 360
		}
		r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: c.A}
	})
}
