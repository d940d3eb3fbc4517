package secure

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserID maps a raw caller-supplied identifier to the session key
// under which all of that user's rows are stored. SHA-256, no salt:
// the same identifier must resolve to the same key across restarts or
// rate-limit and history lookups would miss. Empty input yields an
// empty key, which callers treat as "no identity" and skip persistence.
func HashUserID(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
