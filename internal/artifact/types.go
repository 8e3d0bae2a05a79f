package artifact

import (
	"image"
	"time"
)

// ContentTypeJPEG is the content type of every stored artifact.
const ContentTypeJPEG = "image/jpeg"

// DisplayExtension is appended to an ID to form the public token.
const DisplayExtension = ".jpg"

// ID identifies a stored artifact. Its alphabet never contains '.'.
type ID string

// String returns the textual form of the ID.
func (id ID) String() string {
	return string(id)
}

// Artifact is an encoded, degraded image. It is never mutated after creation.
type Artifact struct {
	ContentType string
	Data        []byte
}

// Len reports the size of the encoded payload.
func (a Artifact) Len() int {
	return len(a.Data)
}

// Task is a unit of transform work handed to the worker pool.
type Task struct {
	Input      []byte
	SourceType string
	Result     chan<- Result
}

// Result is what a worker sends back for a Task.
type Result struct {
	Artifact Artifact
	Bounds   image.Rectangle
	Duration time.Duration
	Err      error
}

// SubmissionRecord is written to the submission ledger after a successful insert.
type SubmissionRecord struct {
	ID          ID        `json:"id"`
	SourceHash  string    `json:"source_hash"`
	SourceType  string    `json:"source_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	OutputBytes int       `json:"output_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Created is the notification payload published for every new artifact.
type Created struct {
	ID          ID        `json:"id"`
	Src         string    `json:"src"`
	ContentType string    `json:"content_type"`
	Bytes       int       `json:"bytes"`
	SourceHash  string    `json:"source_hash"`
	CreatedAt   time.Time `json:"created_at"`
}
