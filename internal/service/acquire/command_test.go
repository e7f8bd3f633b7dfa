package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/paper-fetch/internal/catalog/catalogtest"
	"github.com/oshokin/paper-fetch/internal/testutil"
)

// writeSettings stores a settings file pinning the version to latest.
func writeSettings(t *testing.T) string {
	t.Helper()

	return testutil.WriteFile(t, t.TempDir(), "paper-fetch.yaml", []byte("version: latest\nlog_level: warn\n"))
}

// TestRun_DownloadsIntoWorkDir wires settings, transport and catalog end to end.
func TestRun_DownloadsIntoWorkDir(t *testing.T) {
	t.Parallel()

	content := testutil.JarBytes(t, testutil.DefaultEntries()...)

	srv := catalogtest.NewServer(t)
	srv.AddBuild("1.21.1", 100, "paper-1.21.1-100.jar", content)

	workDir := filepath.Join(t.TempDir(), "server")

	path, err := Run(context.Background(), &Options{
		ConfigPath:  writeSettings(t),
		WorkDir:     workDir,
		CatalogURL:  srv.URL,
		HTTPClient:  srv.Client(),
		LockTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(workDir, "paper-1.21.1-100.jar"), path)

	sum := sha256.Sum256(content)
	sidecar, err := os.ReadFile(path + ".sha256")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:]), strings.TrimSpace(string(sidecar)))

	// The lock is released after the run.
	fileLock := flock.New(filepath.Join(workDir, LockFilename))
	locked, err := fileLock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, fileLock.Unlock())
}

// TestRun_LockedWorkDir gives up with ErrLocked while another holder keeps the lock.
func TestRun_LockedWorkDir(t *testing.T) {
	t.Parallel()

	srv := catalogtest.NewServer(t)
	workDir := t.TempDir()

	holder := flock.New(filepath.Join(workDir, LockFilename))
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	defer func() {
		_ = holder.Unlock()
	}()

	_, err = Run(context.Background(), &Options{
		ConfigPath:  writeSettings(t),
		WorkDir:     workDir,
		CatalogURL:  srv.URL,
		HTTPClient:  srv.Client(),
		LockTimeout: 200 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrLocked)
	require.Zero(t, srv.ProjectRequests.Load())
}

// TestRun_InvalidOverrides rejects a plain-http catalog before touching the work directory.
func TestRun_InvalidOverrides(t *testing.T) {
	t.Parallel()

	workDir := filepath.Join(t.TempDir(), "never-created")

	_, err := Run(context.Background(), &Options{
		ConfigPath: writeSettings(t),
		WorkDir:    workDir,
		CatalogURL: "http://api.papermc.io/v2/projects/paper",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "https")
	require.NoDirExists(t, workDir)
}

// TestVerify_WritesSidecarNextToFile uses the directory of the given path as the work directory.
func TestVerify_WritesSidecarNextToFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := testutil.WriteJar(t, dir, "custom-server.jar")

	path, err := Verify(context.Background(), &Options{ConfigPath: writeSettings(t)},
		filepath.Join(dir, "custom-server.jar"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "custom-server.jar"), path)

	sum := sha256.Sum256(data)
	sidecar, err := os.ReadFile(path + ".sha256")
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:])+"\n", string(sidecar))
}
