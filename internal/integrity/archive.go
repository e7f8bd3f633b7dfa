package integrity

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/paper-fetch/internal/logger"
)

const (
	// MinArchiveSize is the size of an empty ZIP archive (end of central directory record).
	MinArchiveSize = 22
	// ManifestName is optional, its absence is only logged.
	ManifestName = "META-INF/MANIFEST.MF"
)

//nolint:gochecknoglobals // ZIP local file header signature "PK".
var zipMagic = [2]byte{0x50, 0x4B}

// Validate checks that path exists, is at least MinArchiveSize bytes, starts
// with the ZIP signature and parses as an archive with at least one entry.
// Failures are *ValidationError values.
func Validate(ctx context.Context, path string) error {
	f, _, err := openArchive(ctx, path)
	if err != nil {
		return err
	}

	return f.Close()
}

// ValidateAndDigest runs Validate and computes the digest of the file
// without opening or reading it twice.
func ValidateAndDigest(ctx context.Context, path string) (Digest, error) {
	f, size, err := openArchive(ctx, path)
	if err != nil {
		return Digest{}, err
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return Digest{}, fmt.Errorf("seek to start of %s: %w", path, err)
	}

	return digestFrom(f, path, size)
}

// openArchive performs the structural checks and returns the open file and its size.
func openArchive(ctx context.Context, path string) (*os.File, int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, &ValidationError{Reason: ReasonNotExist, Path: path}
	}

	if err != nil {
		return nil, 0, fmt.Errorf("read metadata of %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, 0, &ValidationError{Reason: ReasonCorruptArchive, Path: path, Detail: "not a regular file"}
	}

	size := info.Size()

	switch {
	case size == 0:
		return nil, 0, &ValidationError{Reason: ReasonEmpty, Path: path}
	case size < MinArchiveSize:
		return nil, 0, &ValidationError{
			Reason: ReasonTooSmall,
			Path:   path,
			Detail: fmt.Sprintf("%d bytes", size),
		}
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}

	if err = checkArchive(ctx, f, path, size); err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	return f, size, nil
}

func checkArchive(ctx context.Context, f *os.File, path string, size int64) error {
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return fmt.Errorf("read magic number from %s: %w", path, err)
	}

	if magic[0] != zipMagic[0] || magic[1] != zipMagic[1] {
		return &ValidationError{
			Reason: ReasonBadMagic,
			Path:   path,
			Detail: fmt.Sprintf("expected PK, found %02X%02X", magic[0], magic[1]),
		}
	}

	archive, err := zip.NewReader(f, size)
	if err != nil {
		return &ValidationError{Reason: ReasonCorruptArchive, Path: path, Err: err}
	}

	if len(archive.File) == 0 {
		return &ValidationError{Reason: ReasonNoEntries, Path: path}
	}

	for _, entry := range archive.File {
		if entry.Name == ManifestName {
			return nil
		}
	}

	logger.WarnKV(ctx, "Archive has no manifest, it may still be valid",
		"path", path, "missing", ManifestName)

	return nil
}
