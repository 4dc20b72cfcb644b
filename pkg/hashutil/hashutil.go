// Package hashutil provides content-addressable hashing of files.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// copyBufSize bounds memory use while hashing arbitrarily large files.
const copyBufSize = 1024 * 1024

// FileSHA256 returns the hex-encoded SHA-256 digest of the file at path.
// The file is streamed in fixed-size chunks; read errors propagate to the
// caller unmasked.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to read %s while hashing: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
