package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/paper-fetch/internal/domain/artifact"
	"github.com/oshokin/paper-fetch/internal/integrity"
	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/repository/checksum"
)

// ErrNoArtifact is returned by Discover when the work directory holds no valid artifact.
var ErrNoArtifact = errors.New("no valid artifact found")

// Catalog resolves a version request to a downloadable artifact.
// *catalog.Client implements it.
type Catalog interface {
	ResolveVersion(ctx context.Context, token string) (string, error)
	LatestBuild(ctx context.Context, version string) (uint32, error)
	Descriptor(ctx context.Context, version string, build uint32) (*artifact.Descriptor, error)
	DownloadURL(d *artifact.Descriptor) string
}

// Downloader stores a remote file at dest. *download.Downloader implements it.
type Downloader interface {
	Download(ctx context.Context, rawURL, dest string) error
}

// Service acquires artifacts inside one work directory. It is not safe for
// concurrent use on the same directory.
type Service struct {
	// catalog answers version and build lookups.
	catalog Catalog
	// downloader fetches artifact bytes.
	downloader Downloader
	// workDir holds artifacts and sidecars.
	workDir string
	// auditDiscovered sends discovered artifacts through Audit.
	auditDiscovered bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditDiscovered controls whether Acquire confirms the digest of an artifact found by Discover.
func WithAuditDiscovered(audit bool) ServiceOption {
	return func(s *Service) {
		s.auditDiscovered = audit
	}
}

// NewService creates a service working in workDir.
func NewService(catalog Catalog, downloader Downloader, workDir string, opts ...ServiceOption) *Service {
	s := &Service{
		catalog:         catalog,
		downloader:      downloader,
		workDir:         filepath.Clean(workDir),
		auditDiscovered: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Acquire returns the file name of a trusted artifact, preferring one already
// present in the work directory and downloading token otherwise.
func (s *Service) Acquire(ctx context.Context, token string) (string, error) {
	name, err := s.Discover(ctx)

	switch {
	case err == nil:
		if !s.auditDiscovered {
			logger.InfoKV(ctx, "Using discovered artifact", "file", name)
			return name, nil
		}

		return s.Audit(ctx, name)
	case errors.Is(err, ErrNoArtifact):
		logger.InfoKV(ctx, "No local artifact, downloading", "version", token)

		return s.Download(ctx, token)
	default:
		return "", err
	}
}

// Discover scans the work directory in lexical order and returns the first
// candidate that passes structural validation. Invalid candidates are logged
// and skipped.
func (s *Service) Discover(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(s.workDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoArtifact
	}

	if err != nil {
		return "", fmt.Errorf("scan work directory %s: %w", s.workDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !artifact.IsCandidate(name) {
			continue
		}

		path := filepath.Join(s.workDir, name)

		// Stat follows symlinks, unlike the directory entry type.
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}

		if err = integrity.Validate(ctx, path); err != nil {
			logger.WarnKV(ctx, "Skipping invalid artifact", "file", name, "error", err)
			continue
		}

		logger.InfoKV(ctx, "Found existing artifact", "file", name)

		return name, nil
	}

	return "", ErrNoArtifact
}

// Audit establishes trust in an artifact that is already on disk. With a
// trusted sidecar the file must match it; without one, the fresh digest is
// written to the sidecar.
func (s *Service) Audit(ctx context.Context, name string) (string, error) {
	if err := artifact.CheckFilename(name); err != nil {
		return "", err
	}

	var (
		path        = filepath.Join(s.workDir, name)
		sidecarPath = artifact.SidecarPath(path)
		repo        = checksum.NewFileRepository(sidecarPath)
	)

	expected, trusted, err := loadTrusted(ctx, repo, sidecarPath)
	if err != nil {
		return "", err
	}

	actual, err := integrity.ValidateAndDigest(ctx, path)
	if err != nil {
		return "", fmt.Errorf("validate %s: %w", name, err)
	}

	if trusted {
		if !actual.Equal(expected) {
			return "", &integrity.ChecksumMismatchError{
				Path:     path,
				Expected: expected.String(),
				Actual:   actual.String(),
			}
		}

		logger.InfoKV(ctx, "Checksum verified", "file", name, "sha256", actual.String())

		return name, nil
	}

	if err = repo.Save(ctx, actual.String()); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Checksum recorded", "file", name, "sha256", actual.String())

	return name, nil
}

// Download resolves token through the catalog and fetches the artifact it
// names. A file already present under that name is audited instead.
func (s *Service) Download(ctx context.Context, token string) (string, error) {
	version, err := s.catalog.ResolveVersion(ctx, token)
	if err != nil {
		return "", fmt.Errorf("resolve version: %w", err)
	}

	build, err := s.catalog.LatestBuild(ctx, version)
	if err != nil {
		return "", fmt.Errorf("locate build: %w", err)
	}

	descriptor, err := s.catalog.Descriptor(ctx, version, build)
	if err != nil {
		return "", fmt.Errorf("fetch artifact descriptor: %w", err)
	}

	logger.InfoKV(ctx, "Resolved artifact", "artifact", descriptor.String())

	path := filepath.Join(s.workDir, descriptor.Filename)

	if _, err = os.Stat(path); err == nil {
		logger.InfoKV(ctx, "Artifact already present, verifying", "file", descriptor.Filename)

		name, auditErr := s.Audit(ctx, descriptor.Filename)
		if auditErr != nil {
			return "", fmt.Errorf("existing %s failed verification, remove it to re-download: %w", path, auditErr)
		}

		return name, nil
	}

	if err = s.downloader.Download(ctx, s.catalog.DownloadURL(descriptor), path); err != nil {
		return "", err
	}

	digest, err := integrity.ValidateAndDigest(ctx, path)
	if err != nil {
		// An invalid file under the canonical name would be audited, and fail, on every later run.
		if removeErr := os.Remove(path); removeErr != nil {
			logger.WarnKV(ctx, "Failed to remove invalid download", "path", path, "error", removeErr)
		}

		return "", fmt.Errorf("validate downloaded %s: %w", descriptor.Filename, err)
	}

	repo := checksum.NewFileRepository(artifact.SidecarPath(path))
	if err = repo.Save(ctx, digest.String()); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Artifact acquired", "file", descriptor.Filename, "sha256", digest.String())

	return descriptor.Filename, nil
}

// loadTrusted returns the sidecar digest when it decodes to a full digest.
// Missing or malformed sidecars are reported as untrusted, not as errors.
func loadTrusted(ctx context.Context, repo checksum.Repository, path string) (integrity.Digest, bool, error) {
	stored, err := repo.Load(ctx)

	switch {
	case errors.Is(err, checksum.ErrNotFound):
		logger.DebugKV(ctx, "No usable checksum file", "path", path)
		return integrity.Digest{}, false, nil
	case err != nil:
		return integrity.Digest{}, false, err
	}

	digest, err := integrity.ParseDigest(stored)
	if err != nil {
		logger.WarnKV(ctx, "Ignoring malformed checksum file", "path", path, "error", err)
		return integrity.Digest{}, false, nil
	}

	return digest, true, nil
}
