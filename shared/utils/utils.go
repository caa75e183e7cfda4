package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"codebundle/shared/types"

	"github.com/zeebo/xxh3"
)

// HashContent returns the hex sha256 of content
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Checksum is a fast non-cryptographic fingerprint used for per-record
// comparisons.
func Checksum(content string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(content))
}

// RecordsByPath indexes records by their relative path. Later duplicates win.
func RecordsByPath(records shared.Archive) map[string]shared.FileRecord {
	m := make(map[string]shared.FileRecord, len(records))
	for _, r := range records {
		m[r.Path] = r
	}
	return m
}
