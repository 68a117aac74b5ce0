package invoker

import (
	"crypto/sha256"
	"encoding/hex"
)

// EndpointKey derives the opaque breaker key for a (vendor, credential)
// pair. Hashing keeps credential identifiers out of logs and metrics
// while staying stable across restarts.
func EndpointKey(vendor, credentialID string) string {
	h := sha256.New()
	h.Write([]byte(vendor))
	h.Write([]byte{0})
	h.Write([]byte(credentialID))
	return vendor + "#" + hex.EncodeToString(h.Sum(nil))[:12]
}
