package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/oshokin/paper-fetch/internal/catalog"
	"github.com/oshokin/paper-fetch/internal/config"
	"github.com/oshokin/paper-fetch/internal/download"
	"github.com/oshokin/paper-fetch/internal/logger"
	"github.com/oshokin/paper-fetch/internal/transport"
)

const (
	// LockFilename is created in the work directory while a command runs.
	LockFilename = ".paper-fetch.lock"
	// DefaultLockTimeout is how long a command waits for another one to finish.
	DefaultLockTimeout = 30 * time.Second

	lockRetryDelay = 100 * time.Millisecond
	workDirMode    = 0o755
)

// ErrLocked is returned when another process holds the work directory lock.
var ErrLocked = errors.New("work directory is locked by another paper-fetch process")

// Options are inputs accepted by the acquisition entry points.
// Non-empty fields override the settings file.
type Options struct {
	// ConfigPath is the optional path to a YAML or TOML settings file.
	ConfigPath string
	// Version is a version number or "latest".
	Version string
	// WorkDir holds artifacts and sidecars.
	WorkDir string
	// CatalogURL replaces the release catalog endpoint.
	CatalogURL string
	// LogLevel replaces the configured log level.
	LogLevel string
	// Progress receives the download progress bar; nil disables it.
	Progress io.Writer
	// HTTPClient replaces the default HTTP client, e.g. to trust a private CA.
	HTTPClient *http.Client
	// LockTimeout replaces DefaultLockTimeout.
	LockTimeout time.Duration
}

// runner holds what a single command execution needs.
// It is unexported: call Run or Verify.
type runner struct {
	cfg     *config.Config
	service *Service
	lock    *flock.Flock
}

// Run acquires a trusted artifact and returns its path.
func Run(ctx context.Context, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "fetch")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return "", err
	}

	defer r.close(ctx)

	name, err := r.service.Acquire(ctx, r.cfg.Version)
	if err != nil {
		logger.ErrorKV(ctx, "Acquisition failed", "error", err)
		return "", err
	}

	return filepath.Join(r.cfg.WorkDir, name), nil
}

// Verify audits the artifact at path: it must match its sidecar, or a new
// sidecar is written when there is none. The work directory is the directory
// of path when path has one.
func Verify(ctx context.Context, opts *Options, path string) (string, error) {
	ctx = logger.WithName(ctx, "verify")

	local := Options{}
	if opts != nil {
		local = *opts
	}

	dir, name := filepath.Split(filepath.Clean(path))
	if dir != "" {
		local.WorkDir = dir
	}

	r, err := newRunner(ctx, &local)
	if err != nil {
		return "", err
	}

	defer r.close(ctx)

	if _, err = r.service.Audit(ctx, name); err != nil {
		logger.ErrorKV(ctx, "Verification failed", "file", path, "error", err)
		return "", err
	}

	return filepath.Join(r.cfg.WorkDir, name), nil
}

// newRunner loads settings, locks the work directory and wires the service.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(cfg.WorkDir, workDirMode); err != nil {
		return nil, fmt.Errorf("create work directory %s: %w", cfg.WorkDir, err)
	}

	lock, err := lockWorkDir(ctx, cfg.WorkDir, opts.LockTimeout)
	if err != nil {
		return nil, err
	}

	transportOptions := []transport.Option{transport.WithTimeout(cfg.Timeout)}
	if opts.HTTPClient != nil {
		transportOptions = append(transportOptions, transport.WithHTTPClient(opts.HTTPClient))
	}

	var (
		client          = transport.New(transportOptions...)
		downloadOptions []download.Option
	)

	if opts.Progress != nil {
		downloadOptions = append(downloadOptions, download.WithProgress(download.NewProgressBar(opts.Progress, "downloading")))
	}

	service := NewService(
		catalog.NewClient(client, cfg.CatalogURL),
		download.New(client, downloadOptions...),
		cfg.WorkDir,
		WithAuditDiscovered(cfg.AuditDiscovered),
	)

	return &runner{cfg: cfg, service: service, lock: lock}, nil
}

// loadConfig reads the settings file and applies command line overrides.
func loadConfig(ctx context.Context, opts *Options) (*config.Config, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if v := strings.TrimSpace(opts.Version); v != "" {
		cfg.Version = v
	}

	if opts.WorkDir != "" {
		cfg.WorkDir = opts.WorkDir
	}

	if opts.CatalogURL != "" {
		cfg.CatalogURL = opts.CatalogURL
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	logger.DebugKV(ctx, "Settings loaded",
		"version", cfg.Version,
		"work_dir", cfg.WorkDir,
		"catalog_url", cfg.CatalogURL,
		"timeout", cfg.Timeout,
		"audit_discovered", cfg.AuditDiscovered)

	return cfg, nil
}

// lockWorkDir takes the work directory lock, waiting up to timeout for it.
func lockWorkDir(ctx context.Context, workDir string, timeout time.Duration) (*flock.Flock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	var (
		lockPath = filepath.Join(workDir, LockFilename)
		fileLock = flock.New(lockPath)
	)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)

	switch {
	case locked:
		logger.DebugKV(ctx, "Work directory locked", "path", lockPath)
		return fileLock, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil && !errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
}

// close releases the work directory lock.
func (r *runner) close(ctx context.Context) {
	if r.lock == nil {
		return
	}

	if err := r.lock.Unlock(); err != nil {
		logger.WarnKV(ctx, "Failed to release work directory lock", "path", r.lock.Path(), "error", err)
	}
}
