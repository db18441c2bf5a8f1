// Package id generates identifiers for locally created records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Lowercase alphanumeric keeps generated ids readable inside composite
// post ids.
const (
	alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	randomSize = 16
)

// Generate returns "<prefix>-<random>" with a sixteen character random
// part. Fails only when the system entropy source does.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, randomSize)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + "-" + suffix, nil
}
