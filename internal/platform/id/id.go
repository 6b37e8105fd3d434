// Package id generates opaque identifiers for sessions and order
// references.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a new random identifier.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return value.String(), nil
}
