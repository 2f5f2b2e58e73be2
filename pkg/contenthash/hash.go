// Package contenthash computes the stable fingerprint the embedding
// store keys vectors by.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Of canonicalizes text (trim, collapse internal whitespace) and returns
// its hex-encoded sha256 digest.
func Of(text string) string {
	fields := strings.Fields(text)
	canonical := strings.Join(fields, " ")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
