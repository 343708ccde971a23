// Package checksum fingerprints import files.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data after folding CRLF
// line endings to LF and dropping trailing whitespace, so a file re-saved by
// an editor on another platform keeps its fingerprint.
func Sum(data []byte) string {
	norm := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	norm = bytes.TrimRight(norm, " \t\n")
	h := sha256.Sum256(norm)
	return hex.EncodeToString(h[:])
}
