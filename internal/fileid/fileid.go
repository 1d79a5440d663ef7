// Package fileid derives stable document ids from note paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

const prefix = "note:"

// DocID returns the id of the note at path. The path is cleaned and NFC
// normalized first, so a name reported in decomposed form (as macOS does)
// maps to the same id as its composed spelling.
func DocID(path string) string {
	normalized := norm.NFC.String(filepath.Clean(path))
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:16])
}
