package checksum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/paper-fetch/internal/config"
	"github.com/oshokin/paper-fetch/internal/integrity"
)

// Repository defines persistence operations for an artifact digest.
type Repository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, digest string) error
}

// FileRepository stores a digest in a plain-text sidecar file.
type FileRepository struct {
	// path is the filesystem location of the sidecar.
	path string
	// mu serializes access within the process.
	mu sync.Mutex
}

// ErrNotFound is returned when the sidecar does not exist or its first line is not a digest.
var ErrNotFound = errors.New("checksum not found")

// NewFileRepository creates a repository that reads/writes the sidecar at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load returns the trimmed first line of the sidecar.
// Only the length is checked here, decoding is left to the verifier.
func (r *FileRepository) Load(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("read checksum file %s: %w", r.path, err)
	}

	line, _, _ := bytes.Cut(contents, []byte("\n"))

	digest := strings.TrimSpace(string(line))
	if len(digest) != integrity.DigestHexLength {
		return "", ErrNotFound
	}

	return digest, nil
}

// Save overwrites the sidecar with the digest followed by a newline.
func (r *FileRepository) Save(_ context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.WriteFile(r.path, []byte(digest+"\n"), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write checksum file %s: %w", r.path, err)
	}

	return nil
}
