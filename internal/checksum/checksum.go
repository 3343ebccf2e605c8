// Package checksum provides the two content fingerprints used by the
// application: a SHA-256 digest for optimistic concurrency on note saves,
// and a cheap 32-bit rolling hash for idle-analysis deduplication.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a 32-bit multiplicative rolling hash of s
// (h = h*31 + rune, with wrap-around). It is a fast change detector, not a
// cryptographic digest: collisions are possible and tolerated by callers.
// Never use it where integrity matters.
func Fingerprint(s string) uint32 {
	var h uint32
	for _, r := range s {
		h = h*31 + uint32(r)
	}
	return h
}
