package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashRow hashes a record so identical rows collide. Cells are joined with a
// unit separator, which cannot appear in CSV or spreadsheet text.
func HashRow(cells []string) Hash {
	return NewHash([]byte(strings.Join(cells, "\x1f")))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}
