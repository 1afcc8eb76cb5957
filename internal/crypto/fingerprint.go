package crypto

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"parley/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// SafetyNumber derives a human-comparable code from two identity publics.
// The keys are ordered byte-lexicographically before hashing, so both parties
// compute the identical string regardless of call direction: twelve groups of
// five decimal digits from a SHA-512 over the ordered concatenation.
func SafetyNumber(a, b domain.X25519Public) string {
	lo, hi := a.Slice(), b.Slice()
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	sum := sha512.Sum512(append(append([]byte(nil), lo...), hi...))

	groups := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		chunk := sum[i*5 : i*5+5]
		v := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...))
		groups = append(groups, fmt.Sprintf("%05d", v%100000))
	}
	return strings.Join(groups, " ")
}
