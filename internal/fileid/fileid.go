// Package fileid derives stable source ids for local HTML exports.
package fileid

import (
	"encoding/hex"
	"path/filepath"

	"github.com/zeebo/blake3"
)

const (
	prefix = "file-"
	// shortLen is the number of hex digits in a Short id.
	shortLen = 8
)

// FileSourceID returns a stable source ID for the given absolute path.
// Same path always yields the same ID, so regenerated books share a history source.
func FileSourceID(absolutePath string) string {
	return prefix + digest(absolutePath)
}

// Short returns the first hex digits of the path hash, for telling apart books
// built from files that share a base name.
func Short(absolutePath string) string {
	return digest(absolutePath)[:shortLen]
}

func digest(absolutePath string) string {
	hash := blake3.Sum256([]byte(filepath.Clean(absolutePath)))
	return hex.EncodeToString(hash[:16])
}
