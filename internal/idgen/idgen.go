// Package idgen generates run identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"regexp"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RunPrefix is prepended to every run ID.
const RunPrefix = "run-"

// alphabet is lower-case so run IDs are safe in file names and object keys
// on case-insensitive storage.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// length is the number of random characters (excluding the prefix).
const length = 12

var runIDPattern = regexp.MustCompile(`^` + RunPrefix + `[a-z0-9]{12}$`)

// RunID returns a new run identifier such as "run-3k9x0a1b2c7q".
func RunID() (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return RunPrefix + id, nil
}

// IsRunID reports whether s has the shape of a run identifier.
func IsRunID(s string) bool {
	return runIDPattern.MatchString(s)
}
