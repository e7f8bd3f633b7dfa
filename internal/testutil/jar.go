// Package testutil builds archive fixtures for package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ManifestName is the JAR manifest entry.
const ManifestName = "META-INF/MANIFEST.MF"

// Entry is one file inside a fixture archive.
type Entry struct {
	Name string
	Body string
}

// DefaultEntries is a minimal server jar: a manifest and one class file.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: ManifestName, Body: "Manifest-Version: 1.0\nMain-Class: io.papermc.paperclip.Main\n"},
		{Name: "io/papermc/paperclip/Main.class", Body: "\xca\xfe\xba\xbe"},
	}
}

// JarBytes returns a ZIP archive holding entries.
func JarBytes(tb testing.TB, entries ...Entry) []byte {
	tb.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	for _, e := range entries {
		f, err := w.Create(e.Name)
		require.NoError(tb, err)

		_, err = f.Write([]byte(e.Body))
		require.NoError(tb, err)
	}

	require.NoError(tb, w.Close())

	return buf.Bytes()
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, data, 0o600))

	return path
}

// WriteJar writes a DefaultEntries archive to dir/name and returns its contents.
func WriteJar(tb testing.TB, dir, name string) []byte {
	tb.Helper()

	data := JarBytes(tb, DefaultEntries()...)
	WriteFile(tb, dir, name, data)

	return data
}
