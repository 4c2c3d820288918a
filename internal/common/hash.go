package common

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint hashes the parts into a lowercase hex SHA-256 digest. Each part
// is length-prefixed, so ("ab", "c") and ("a", "bc") never collide.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
