package util

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2 for non-cryptographic purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateDocumentID generates a unique artifact document ID with "d_" prefix.
func GenerateDocumentID() string {
	return GenerateRandomID("d_", 32)
}

// GenerateAuditID generates a unique audit row ID with "a_" prefix.
func GenerateAuditID() string {
	return GenerateRandomID("a_", 32)
}

// GenerateImportID generates a unique importer log ID with "i_" prefix.
func GenerateImportID() string {
	return GenerateRandomID("i_", 32)
}

// GenerateReferenceID generates the externally visible reference ID of an
// importer run.
func GenerateReferenceID() string {
	return uuid.New().String()
}
