package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and the aggregation of every invalid field.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// Defaults are filled in.
	cfg := &Config{Version: "1.21.1"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultWorkDir, cfg.WorkDir)
	require.Equal(t, DefaultCatalogURL, cfg.CatalogURL)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)

	// Every problem is reported together.
	cfg = &Config{
		Version:     " ",
		CatalogURL:  "http://api.papermc.io/v2/projects/paper",
		LogLevel:    "loud",
		ReleaseRepo: "no-slash",
	}

	err := Validate(cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, errVersionRequired)
	require.ErrorIs(t, err, errInsecureCatalog)
	require.ErrorIs(t, err, errUnknownLogLevel)
	require.ErrorIs(t, err, errBadReleaseRepo)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 4)
}

// TestSaveLoadRoundtrip ensures YAML settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.Version = "1.20.6"
	settings.Timeout = 45 * time.Second
	settings.AuditDiscovered = false

	require.NoError(t, Save(path, settings))

	loaded, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "1.20.6", loaded.Version)
	require.Equal(t, 45*time.Second, loaded.Timeout)
	require.False(t, loaded.AuditDiscovered)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_TOML reads the TOML layout and keeps defaults for absent keys.
func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
version = "1.21.1"
work_dir = "./server"
timeout = "10s"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "1.21.1", cfg.Version)
	require.Equal(t, "./server", cfg.WorkDir)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.True(t, cfg.AuditDiscovered)
	require.Equal(t, DefaultCatalogURL, cfg.CatalogURL)
}

// TestLoad_InvalidTOML surfaces parse failures with the file name.
func TestLoad_InvalidTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \nmin_ram = invalid"), 0o600))

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse settings")
}

// TestLoad_MissingExplicitPath fails when a named file does not exist.
func TestLoad_MissingExplicitPath(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestApplyEnv overrides fields from the table and ignores unparsable values.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"MINECRAFT_VERSION":      "1.20.4",
		"WORK_DIR":               "/srv/paper",
		"PAPER_HTTP_TIMEOUT":     "not-a-duration",
		"PAPER_AUDIT_DISCOVERED": "false",
		"PAPER_LOG_LEVEL":        "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	applyEnv(context.Background(), cfg, lookup)

	require.Equal(t, "1.20.4", cfg.Version)
	require.Equal(t, "/srv/paper", cfg.WorkDir)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.False(t, cfg.AuditDiscovered)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

// TestEnvKeys keeps the version and work directory overrides first.
func TestEnvKeys(t *testing.T) {
	t.Parallel()

	keys := EnvKeys()
	require.Equal(t, []string{"MINECRAFT_VERSION", "WORK_DIR"}, keys[:2])
	require.Contains(t, keys, "PAPER_CATALOG_URL")
}
