// Package idgen generates short, URL-safe record IDs backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ClientPrefix is prepended to every client ID.
const ClientPrefix = "cl-"

// Alphabet is lower-case only so that IDs survive case-insensitive
// spreadsheets and file systems unchanged.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// NewClientID returns a new unique client ID.
func NewClientID() (string, error) {
	return GenerateWithPrefix(ClientPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
