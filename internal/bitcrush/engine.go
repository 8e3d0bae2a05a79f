package bitcrush

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

const (
	// Passes is the number of degradation passes.
	Passes = 2
	// MinPassQuality and MaxPassQuality bound the per-pass JPEG quality, [min, max).
	MinPassQuality = 10
	MaxPassQuality = 30
	// DefaultOutputQuality is the quality of the final stored encode.
	DefaultOutputQuality = 25

	// DefaultMaxPixels caps the decoded source at 16 megapixels.
	DefaultMaxPixels = 1 << 24

	rotationHue = 180
)

// Engine runs the bitcrush transform. It is safe for concurrent use as long
// as its Rand is.
type Engine struct {
	rng           Rand
	outputQuality int
	maxPixels     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source.
func WithRand(rng Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithOutputQuality sets the quality of the final encode.
func WithOutputQuality(q int) Option {
	return func(e *Engine) {
		if q > 0 && q <= 100 {
			e.outputQuality = q
		}
	}
}

// WithMaxPixels bounds the declared width times height of accepted inputs.
// Intermediates can reach four times that area.
func WithMaxPixels(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPixels = n
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		rng:           DefaultRand(),
		outputQuality: DefaultOutputQuality,
		maxPixels:     DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OutputQuality reports the configured final encode quality.
func (e *Engine) OutputQuality() int {
	return e.outputQuality
}

// Plan picks the intermediate size for an image of w x h: width in
// [max(w/2,1), 2w) and height in [max(h/2,1), 2h).
func (e *Engine) Plan(w, h int) (int, int) {
	return between(e.rng, max(w/2, 1), 2*w), between(e.rng, max(h/2, 1), 2*h)
}

// Crush degrades img and returns an image with the same dimensions.
func (e *Engine) Crush(img image.Image) (*image.NRGBA, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", artifact.ErrDecode, w, h)
	}
	tempW, tempH := e.Plan(w, h)

	var out *image.NRGBA
	current := img
	for pass := 0; pass < Passes; pass++ {
		degraded := imaging.Resize(current, tempW, tempH, imaging.NearestNeighbor)
		degraded = imaging.Rotate180(degraded)
		degraded = rotateHue(degraded, rotationHue)

		quality := between(e.rng, MinPassQuality, MaxPassQuality)
		encoded, err := EncodeJPEG(degraded, quality)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass+1, err)
		}
		decoded, err := decodeJPEG(encoded)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass+1, err)
		}
		out = imaging.Resize(decoded, w, h, imaging.NearestNeighbor)
		current = out
	}
	return out, nil
}

// MaxPixels reports the configured source pixel limit.
func (e *Engine) MaxPixels() int {
	return e.maxPixels
}

// Transform decodes input, crushes it, and encodes the result at the output
// quality. The returned bounds are those of the decoded source.
func (e *Engine) Transform(input []byte) (artifact.Artifact, image.Rectangle, error) {
	img, err := Decode(input, e.maxPixels)
	if err != nil {
		return artifact.Artifact{}, image.Rectangle{}, err
	}
	crushed, err := e.Crush(img)
	if err != nil {
		return artifact.Artifact{}, image.Rectangle{}, fmt.Errorf("crush: %w", err)
	}
	data, err := EncodeJPEG(crushed, e.outputQuality)
	if err != nil {
		return artifact.Artifact{}, image.Rectangle{}, fmt.Errorf("final encode: %w", err)
	}
	return artifact.Artifact{ContentType: artifact.ContentTypeJPEG, Data: data}, img.Bounds(), nil
}
