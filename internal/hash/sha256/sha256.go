// Package sha256 fingerprints uploaded images.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Prefix names the algorithm in every fingerprint.
const Prefix = "sha256:"

// Hasher implements artifact.Hasher.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Fingerprint returns Prefix followed by the hex digest of the source bytes.
func (*Hasher) Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:])
}
