package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash8 is a short stable fingerprint for values that must not be logged raw
// (access tokens, e-mails).
func Hash8(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
