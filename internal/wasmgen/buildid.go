package wasmgen

import "github.com/google/uuid"

// NewBuildID returns a fresh identifier to stamp into a compiled
// artifact's custom sections, so two binaries compiled from identical
// source can still be told apart by provenance.
func NewBuildID() string {
	return uuid.NewString()
}
