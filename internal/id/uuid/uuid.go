// Package uuid mints artifact ids from UUIDv7 values.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// Generator creates UUIDv7 artifact ids. The canonical text form is 36
// characters of lowercase hex and '-', starts with a 48-bit millisecond
// timestamp, and therefore sorts by creation time.
type Generator struct{}

// NewUUIDGenerator creates a new Generator.
func NewUUIDGenerator() *Generator {
	return &Generator{}
}

// NewID returns a fresh UUIDv7 id. It panics only if the system random
// source fails, which the runtime already treats as fatal.
func (Generator) NewID() artifact.ID {
	return artifact.ID(uuid.Must(uuid.NewV7()).String())
}

// Parse validates raw and returns its canonical form.
func (Generator) Parse(raw string) (artifact.ID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, artifact.ErrInvalidID)
	}
	return artifact.ID(id.String()), nil
}
