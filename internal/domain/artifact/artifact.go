package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// Prefix starts every discoverable artifact file name.
	Prefix = "paper-"
	// Extension ends every discoverable artifact file name.
	Extension = ".jar"
	// SidecarExtension is appended to an artifact path to name its checksum file.
	SidecarExtension = ".sha256"
)

// ErrInvalidFilename is returned for artifact names that are not a plain file name.
var ErrInvalidFilename = errors.New("artifact filename must be a plain file name")

// Descriptor identifies exactly one downloadable server binary.
type Descriptor struct {
	// Version is the concrete Minecraft version, never "latest".
	Version string
	// Build is the catalog build number within Version.
	Build uint32
	// Filename is the canonical artifact file name published by the catalog.
	Filename string
}

// NewDescriptor checks that filename can be used as a local path component.
func NewDescriptor(version string, build uint32, filename string) (*Descriptor, error) {
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}

	return &Descriptor{
		Version:  version,
		Build:    build,
		Filename: filename,
	}, nil
}

// String renders the descriptor for logs.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (version %s, build %d)", d.Filename, d.Version, d.Build)
}

// CheckFilename rejects empty names, dot entries and anything with a path separator.
func CheckFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	return nil
}

// IsCandidate reports whether name follows the artifact naming convention.
// Matching is case-sensitive.
func IsCandidate(name string) bool {
	return strings.HasPrefix(name, Prefix) &&
		strings.HasSuffix(name, Extension) &&
		len(name) > len(Prefix)+len(Extension)
}

// SidecarPath returns the checksum file path for the artifact at path.
func SidecarPath(path string) string {
	return path + SidecarExtension
}
