// Package idgen generates job identifiers: crypto/rand bytes rendered as
// lowercase hex behind a "job-" prefix.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewJobID returns a new identifier of the form "job-" followed by 8
// lowercase hex characters.
func NewJobID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return "job-" + hex.EncodeToString(b), nil
}
