// Package hashx computes content fingerprints for upload integrity checks.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// SumSHA256 reads r to EOF and returns the lowercase hex SHA-256 digest of
// the exact byte sequence, with no framing. The reader is consumed but not
// otherwise modified.
func SumSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("reading payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
