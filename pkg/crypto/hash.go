package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex returns the hex-encoded SHA-256 digest of data.
// It fingerprints event payloads that arrive without an event id.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
