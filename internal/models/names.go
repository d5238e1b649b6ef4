// Package models defines the core data structures for the kairon training
// data and action definition core.
//
// It includes the artifact entity model shared across the store, validator,
// importer and exporter modules, together with the naming discipline and the
// error taxonomy surfaced at the API boundary.
package models

import (
	"errors"
	"strings"
)

// ErrEmptyName is returned when an artifact name is blank after trimming.
var ErrEmptyName = errors.New("name cannot be empty or blank spaces")

// CanonicalName converts an artifact name to its canonical form: trimmed and
// lowercased, internal whitespace preserved. All uniqueness checks and
// cross-reference lookups operate on canonical names.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName checks that a name is non-empty after trimming.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

// NamesEqual compares two artifact names case-insensitively.
func NamesEqual(a, b string) bool {
	return CanonicalName(a) == CanonicalName(b)
}
