package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize is the maximum number of bytes hashed from one value.
const MaxHashSize = 1024 * 1024 // 1MB

// HashPrefix marks hashed values.
const HashPrefix = "sha256:"

// HashContent computes the SHA-256 hash of content and returns it hex
// encoded. Content longer than MaxHashSize is hashed up to MaxHashSize.
//
// Returns an empty string if content is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}

	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// HashString hashes s and returns it with HashPrefix.
func HashString(s string) string {
	return HashPrefix + HashContent([]byte(s))
}

// TruncateString truncates s to maxLen bytes, ending with "..." when there
// is room. A maxLen of zero or less disables truncation.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
