package integrity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DigestSize is the length of a SHA-256 digest in bytes.
	DigestSize = sha256.Size
	// DigestHexLength is the length of the hex form of a digest.
	DigestHexLength = 2 * DigestSize

	smallFileThreshold = 64 << 10
	smallBufferSize    = 8 << 10
	largeBufferSize    = 64 << 10
)

// Digest is the SHA-256 hash of a whole file.
type Digest [DigestSize]byte

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Equal compares two digests byte by byte.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d[:], other[:])
}

// ParseDigest decodes a hex digest of either case. Surrounding whitespace is ignored.
func ParseDigest(s string) (Digest, error) {
	var d Digest

	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(raw) != DigestSize {
		return d, fmt.Errorf("%w: %q", errInvalidDigest, s)
	}

	copy(d[:], raw)

	return d, nil
}

// ComputeDigest hashes the entire content of the file at path.
// Empty files are fine and produce the digest of empty input.
func ComputeDigest(path string) (Digest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Digest{}, fmt.Errorf("open %s for checksum: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return Digest{}, fmt.Errorf("read metadata of %s: %w", path, err)
	}

	return digestFrom(f, path, info.Size())
}

// VerifyChecksum checks the file at path against expected.
// An empty expected value makes no claim and always passes. A value that
// decodes to 32 bytes is compared as raw bytes; anything else is compared
// case-insensitively with the hex form of the computed digest.
func VerifyChecksum(path, expected string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}

	actual, err := ComputeDigest(path)
	if err != nil {
		return err
	}

	if want, parseErr := ParseDigest(expected); parseErr == nil {
		if !actual.Equal(want) {
			return &ChecksumMismatchError{Path: path, Expected: expected, Actual: actual.String()}
		}

		return nil
	}

	if !strings.EqualFold(actual.String(), expected) {
		return &ChecksumMismatchError{Path: path, Expected: expected, Actual: actual.String()}
	}

	return nil
}

// digestFrom hashes r until EOF with a buffer sized for a file of size bytes.
func digestFrom(r io.Reader, path string, size int64) (Digest, error) {
	var (
		d      Digest
		hasher = sha256.New()
		buf    = make([]byte, bufferSize(size))
	)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return d, fmt.Errorf("read %s for checksum: %w", path, err)
		}
	}

	copy(d[:], hasher.Sum(nil))

	return d, nil
}

// bufferSize keeps small files on a small buffer and large ones on fewer, bigger reads.
func bufferSize(size int64) int {
	if size < smallFileThreshold {
		return smallBufferSize
	}

	return largeBufferSize
}
