// Package artifact defines the core types shared across the bitcrush service:
// the immutable Artifact value, its identifier, the transform task that flows
// through the worker pool, and the interfaces implemented by the store, id
// generator, and post-insert sinks.
package artifact
