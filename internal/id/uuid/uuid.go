// Package uuid generates request ids.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUIDv7 strings.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string, falling back to a random v4 when the v7
// clock sequence cannot be produced.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String(), nil
	}
	v4, v4Err := uuid.NewRandom()
	if v4Err != nil {
		return "", fmt.Errorf("generate request id: %w", v4Err)
	}
	return v4.String(), nil
}

// Valid reports whether s parses as a UUID. Incoming X-Request-ID headers are
// only echoed back when valid.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
