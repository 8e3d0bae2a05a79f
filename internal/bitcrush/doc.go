// Package bitcrush implements the two-pass randomized degradation transform.
//
// Each pass resizes the image to a randomly chosen intermediate size with a
// nearest-neighbor filter, rotates it 180 degrees, rotates its hue 180 degrees,
// and round-trips it through a low-quality JPEG before resizing it back to the
// original dimensions. The rotations cancel after two passes; the compression
// artifacts do not.
package bitcrush
