package bitcrush

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	// Extra decoders beyond imaging's jpeg, png, gif, tiff and bmp.
	_ "golang.org/x/image/webp"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// Decode parses an uploaded image in any registered format. When maxPixels is
// positive, the header is checked first and larger images are rejected with
// artifact.ErrTooLarge before any pixel buffer is allocated.
func Decode(input []byte, maxPixels int) (image.Image, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input: %w", artifact.ErrDecode)
	}
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", artifact.ErrDecode, err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, fmt.Errorf("%w: empty image %dx%d", artifact.ErrDecode, cfg.Width, cfg.Height)
		}
		if cfg.Width > maxPixels/cfg.Height {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", artifact.ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
		}
	}
	img, err := imaging.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrDecode, err)
	}
	return img, nil
}

// EncodeJPEG serializes img as a JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: quality %d: %v", artifact.ErrEncode, quality, err)
	}
	return buf.Bytes(), nil
}

// decodeJPEG reads back an intermediate this package just encoded, so a
// failure here is a server-side encode fault, never a bad upload.
func decodeJPEG(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: re-decode intermediate: %v", artifact.ErrEncode, err)
	}
	return img, nil
}
