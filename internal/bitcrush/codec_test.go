package bitcrush

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// declaredPNG returns a tiny PNG whose IHDR claims w x h pixels. Only the
// header is valid, which is all a pixel-limit check may look at.
func declaredPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := encodePNG(t, solidImage(1, 1, color.NRGBA{R: 128, G: 128, B: 128, A: 255}))
	// Signature (8) + length (4) + "IHDR" (4), then width and height.
	const ihdr = 8 + 4
	binary.BigEndian.PutUint32(data[ihdr+4:], w)
	binary.BigEndian.PutUint32(data[ihdr+8:], h)
	crc := crc32.ChecksumIEEE(data[ihdr : ihdr+4+13])
	binary.BigEndian.PutUint32(data[ihdr+4+13:], crc)
	return data
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	t.Parallel()

	input := declaredPNG(t, 12000, 12000)
	require.Less(t, len(input), 1024)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 12000, cfg.Width)

	_, err = Decode(input, DefaultMaxPixels)
	require.ErrorIs(t, err, artifact.ErrTooLarge)
	require.NotErrorIs(t, err, artifact.ErrDecode)

	_, _, err = New().Transform(input)
	require.ErrorIs(t, err, artifact.ErrTooLarge)
}

func TestDecodePixelLimitBoundary(t *testing.T) {
	t.Parallel()

	img, err := Decode(encodePNG(t, patternImage(64, 64)), 64*64)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	_, err = Decode(encodePNG(t, patternImage(64, 65)), 64*64)
	require.ErrorIs(t, err, artifact.ErrTooLarge)

	_, _, err = New(WithMaxPixels(100)).Transform(encodePNG(t, patternImage(11, 10)))
	require.ErrorIs(t, err, artifact.ErrTooLarge)
}

func TestDecodeWithoutLimit(t *testing.T) {
	t.Parallel()

	img, err := Decode(encodePNG(t, patternImage(20, 10)), 0)
	require.NoError(t, err)
	require.Equal(t, 20, img.Bounds().Dx())
}

func TestWithMaxPixelsIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultMaxPixels, New(WithMaxPixels(0)).MaxPixels())
	require.Equal(t, DefaultMaxPixels, New(WithMaxPixels(-1)).MaxPixels())
	require.Equal(t, 500, New(WithMaxPixels(500)).MaxPixels())
}

func TestDecodeIntermediateFailureIsEncodeError(t *testing.T) {
	t.Parallel()

	_, err := decodeJPEG([]byte("not a jpeg"))
	require.ErrorIs(t, err, artifact.ErrEncode)
	require.NotErrorIs(t, err, artifact.ErrDecode)
}
