// Package checksum computes content digests used for optimistic
// concurrency on note updates.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. The digest of a
// note's rendered content doubles as its ETag.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
