package artifact

import "errors"

// Error kinds surfaced by the core. Callers match them with errors.Is.
var (
	// ErrDecode means the submitted bytes are not a recognized image.
	ErrDecode = errors.New("decode image")
	// ErrTooLarge means the submitted image declares more pixels than allowed.
	ErrTooLarge = errors.New("image too large")
	// ErrEncode means an intermediate or final image could not be serialized.
	ErrEncode = errors.New("encode image")
	// ErrInvalidID means a retrieval token does not contain a parsable id.
	ErrInvalidID = errors.New("invalid image id")
	// ErrNotFound means a well-formed id has no stored artifact.
	ErrNotFound = errors.New("image not found")
)

// ErrQueueClosed is returned by a transform queue after shutdown has begun.
var ErrQueueClosed = errors.New("queue closed")
