// Package id generates identifiers for sessions, stream clients and markers.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated IDs.
const (
	PrefixSession = "sess"
	PrefixClient  = "sse"
)

// Generate returns prefix-<nanoid>, e.g. "sess-V1StGXR8_Z5jdHi6B-myT".
// Fails only when the system cannot provide secure randomness.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// NewKey returns a random marker key (UUIDv4).
func NewKey() string {
	return uuid.NewString()
}
