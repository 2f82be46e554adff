// Package nodeid generates and formats node identities.
//
// A node presents a fixed-width 30 character id on the wire, built from a
// configured prefix and a randomly generated raw id. The width rule is part
// of the peer protocol: legacy peers expect exactly 30 characters.
package nodeid

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Width is the exact length of every formatted node id.
const Width = 30

// Format builds the displayed id from prefix and raw id.
// The concatenation is truncated to Width characters when too long and
// right-padded with '0' when too short. A prefix longer than Width swallows
// the raw id entirely; uniqueness is then up to the operator.
func Format(prefix, raw string) string {
	id := prefix + raw
	if len(id) > Width {
		return id[:Width]
	}
	if len(id) < Width {
		return id + strings.Repeat("0", Width-len(id))
	}
	return id
}

// Random returns a fresh raw id: 32 random bytes, hex encoded.
func Random() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
