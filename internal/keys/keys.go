// Package keys generates object keys in the format the Zotero schema uses
// for items and collections.
package keys

import (
	"crypto/rand"
	"fmt"
)

// Alphabet holds the 31 glyphs Zotero draws object keys from. The visually
// ambiguous characters 0, 1, I, L and O are excluded.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// KeyLength is the fixed length of an object key.
const KeyLength = 8

// Generate returns a new random object key. Uniqueness is probabilistic:
// the owning application does not collision-check either, and callers that
// need a guarantee must verify against existing rows themselves.
func Generate() (string, error) {
	buf := make([]byte, KeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether s is a well-formed object key.
func Valid(s string) bool {
	if len(s) != KeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		found := false
		for j := 0; j < len(Alphabet); j++ {
			if s[i] == Alphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
