package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint is an incremental 64-bit content hash used to identify graphs
// and matrices in cache keys.
type Fingerprint struct {
	d *xxhash.Digest
}

// NewFingerprint starts an empty fingerprint.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{d: xxhash.New()}
}

// Write adds b to the fingerprint.
func (f *Fingerprint) Write(b []byte) {
	_, _ = f.d.Write(b)
}

// String adds s followed by a separator, so adjacent fields cannot run
// together.
func (f *Fingerprint) String(s string) {
	_, _ = f.d.WriteString(s)
	_, _ = f.d.Write([]byte{0})
}

// Int adds v in a fixed-width encoding.
func (f *Fingerprint) Int(v int) {
	var buf [8]byte
	u := uint64(v)
	for i := range buf {
		buf[i] = byte(u >> (8 * i))
	}
	_, _ = f.d.Write(buf[:])
}

// Sum returns the fingerprint value.
func (f *Fingerprint) Sum() uint64 {
	return f.d.Sum64()
}
