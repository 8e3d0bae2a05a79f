package artifact

import (
	"context"
	"image"
	"io"
	"time"
)

// Store maps ids to artifacts for the lifetime of the process.
type Store interface {
	Insert(id ID, a Artifact)
	Lookup(id ID) (Artifact, bool)
	Len() int
}

// IDGenerator mints artifact ids.
type IDGenerator interface {
	NewID() ID
	Parse(raw string) (ID, error)
}

// Queue provides enqueue/dequeue semantics for transform tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// Transformer turns uploaded bytes into a stored-ready artifact and reports the
// bounds of the decoded source.
type Transformer interface {
	Transform(input []byte) (Artifact, image.Rectangle, error)
}

// Object is one artifact export. Metadata is attached where the backend
// supports it.
type Object struct {
	Path        string
	ContentType string
	Metadata    map[string]string
	Data        io.Reader
}

// BlobStore exports artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, obj Object) (string, error)
}

// Publisher pushes artifact notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Ledger records submission metadata.
type Ledger interface {
	RecordSubmission(ctx context.Context, record SubmissionRecord) error
	Close()
}

// Hasher fingerprints uploaded content as "<algorithm>:<hex digest>".
type Hasher interface {
	Fingerprint(data []byte) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
