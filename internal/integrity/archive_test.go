package integrity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/paper-fetch/internal/testutil"
)

// TestValidate_Rejections checks each structural failure maps to its own reason.
func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	corrupt := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0xAB}, 100)...)

	cases := []struct {
		name   string
		data   []byte
		want   error
		reason Reason
	}{
		{name: "empty.jar", data: nil, want: ErrEmpty, reason: ReasonEmpty},
		{name: "small.jar", data: bytes.Repeat([]byte("P"), MinArchiveSize-1), want: ErrTooSmall, reason: ReasonTooSmall},
		{name: "pk-only.jar", data: []byte("PK\x03\x04"), want: ErrTooSmall, reason: ReasonTooSmall},
		{name: "magic.jar", data: append(make([]byte, 100), "INVALID"...), want: ErrBadMagic, reason: ReasonBadMagic},
		{name: "corrupt.jar", data: corrupt, want: ErrCorruptArchive, reason: ReasonCorruptArchive},
		{name: "no-entries.jar", data: testutil.JarBytes(t), want: ErrNoEntries, reason: ReasonNoEntries},
	}

	for _, tc := range cases {
		path := testutil.WriteFile(t, dir, tc.name, tc.data)

		err := Validate(context.Background(), path)
		require.ErrorIs(t, err, tc.want, tc.name)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr, tc.name)
		require.Equal(t, tc.reason, verr.Reason, tc.name)
		require.Equal(t, path, verr.Path)

		_, err = ValidateAndDigest(context.Background(), path)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
}

// TestValidate_Missing reports not-exists, distinct from corruption.
func TestValidate_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "paper-1.21.1-100.jar")

	err := Validate(context.Background(), path)
	require.ErrorIs(t, err, ErrNotExist)
	require.False(t, errors.Is(err, ErrCorruptArchive))
	require.Contains(t, err.Error(), "does not exist")
}

// TestValidate_Directory does not treat a directory as an archive.
func TestValidate_Directory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "paper-dir.jar")
	require.NoError(t, os.Mkdir(dir, 0o700))

	require.ErrorIs(t, Validate(context.Background(), dir), ErrCorruptArchive)
}

// TestValidate_ValidArchives accepts archives with and without a manifest.
func TestValidate_ValidArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	withManifest := testutil.WriteFile(t, dir, "with.jar", testutil.JarBytes(t, testutil.DefaultEntries()...))
	require.NoError(t, Validate(context.Background(), withManifest))

	withoutManifest := testutil.WriteFile(t, dir, "without.jar",
		testutil.JarBytes(t, testutil.Entry{Name: "test.txt", Body: "test content"}))
	require.NoError(t, Validate(context.Background(), withoutManifest))
}

// TestValidateAndDigest_MatchesWholeFileDigest compares the fused digest with a separate computation.
func TestValidateAndDigest_MatchesWholeFileDigest(t *testing.T) {
	t.Parallel()

	data := testutil.JarBytes(t, testutil.Entry{Name: "test.txt", Body: "test content"})
	path := testutil.WriteFile(t, t.TempDir(), "paper-1.21.1-100.jar", data)

	fused, err := ValidateAndDigest(context.Background(), path)
	require.NoError(t, err)

	separate, err := ComputeDigest(path)
	require.NoError(t, err)

	require.Equal(t, separate, fused)
	require.Equal(t, Digest(sha256.Sum256(data)), fused)
}
