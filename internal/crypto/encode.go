package crypto

import (
	"encoding/base64"
	"fmt"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// B64Decode decodes standard base64.
func B64Decode(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// B64Key decodes a base64 string that must hold exactly 32 key bytes.
func B64Key(s string) ([32]byte, error) {
	var out [32]byte
	b, err := B64Decode(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("want 32 key bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
