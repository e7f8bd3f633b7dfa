package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/paper-fetch/internal/logger"
)

// Config holds the settings shared by every paper-fetch command.
type Config struct {
	// Version is the Minecraft version to acquire, or "latest".
	Version string `yaml:"version" toml:"version"`
	// WorkDir is the directory holding the artifact and its sidecar.
	WorkDir string `yaml:"work_dir" toml:"work_dir"`
	// CatalogURL is the base URL of the Paper project in the release catalog.
	CatalogURL string `yaml:"catalog_url" toml:"catalog_url"`
	// Timeout bounds every HTTP request, connection and body read included.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// AuditDiscovered runs digest confirmation on artifacts found by the directory scan.
	AuditDiscovered bool `yaml:"audit_discovered" toml:"audit_discovered"`
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level" toml:"log_level"`
	// ReleaseRepo is the GitHub "owner/name" repository publishing paper-fetch releases.
	ReleaseRepo string `yaml:"release_repo" toml:"release_repo"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "paper-fetch.yaml"

	// DefaultVersion asks the catalog for its newest version.
	DefaultVersion = "latest"

	// DefaultWorkDir is the current directory.
	DefaultWorkDir = "."

	// DefaultCatalogURL is the PaperMC v2 API endpoint of the Paper project.
	DefaultCatalogURL = "https://api.papermc.io/v2/projects/paper"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultLogLevel is used when the settings do not name one.
	DefaultLogLevel = "info"

	// DefaultReleaseRepo publishes paper-fetch binaries.
	DefaultReleaseRepo = "oshokin/paper-fetch"

	// DefaultFilePermissions is applied to every file written by paper-fetch: settings and checksum sidecars.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errVersionRequired is returned when the version is blank.
	errVersionRequired = errors.New("version must not be empty, use a version number or \"latest\"")
	// errInsecureCatalog is returned when the catalog URL is not https.
	errInsecureCatalog = errors.New("catalog URL must use https")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errBadReleaseRepo is returned when the release repository is not "owner/name".
	errBadReleaseRepo = errors.New("release repository must look like owner/name")
)

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Version:         DefaultVersion,
		WorkDir:         DefaultWorkDir,
		CatalogURL:      DefaultCatalogURL,
		Timeout:         DefaultTimeout,
		AuditDiscovered: true,
		LogLevel:        DefaultLogLevel,
		ReleaseRepo:     DefaultReleaseRepo,
	}
}

// Load reads settings from path, applies environment overrides and validates the result.
// An empty path means DefaultConfigFilename, which may be absent; an explicit
// path must exist.
func Load(ctx context.Context, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = decode(path, contents, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logger.DebugKV(ctx, "Settings file not found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	applyEnv(ctx, cfg, os.LookupEnv)

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)

	if isTOML(path) {
		var buf bytes.Buffer

		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults for optional fields and reports every invalid one at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultWorkDir
	}

	if cfg.CatalogURL == "" {
		cfg.CatalogURL = DefaultCatalogURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.ReleaseRepo == "" {
		cfg.ReleaseRepo = DefaultReleaseRepo
	}

	var result *multierror.Error

	if strings.TrimSpace(cfg.Version) == "" {
		result = multierror.Append(result, errVersionRequired)
	}

	if u, err := url.ParseRequestURI(cfg.CatalogURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid catalog URL: %w", err))
	} else if u.Scheme != "https" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("%w: %s", errInsecureCatalog, cfg.CatalogURL))
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel))
	}

	if owner, name, ok := strings.Cut(cfg.ReleaseRepo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errBadReleaseRepo, cfg.ReleaseRepo))
	}

	return result.ErrorOrNil()
}

func decode(path string, contents []byte, cfg *Config) error {
	if isTOML(path) {
		if _, err := toml.Decode(string(contents), cfg); err != nil {
			return fmt.Errorf("parse settings %s: %w", path, err)
		}

		return nil
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
