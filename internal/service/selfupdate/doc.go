// Package selfupdate replaces the running paper-fetch binary with the newest
// published release.
//
// Releases are looked up through the GitHub releases API. The asset for the
// current platform is paper-fetch-<goos>-<goarch> (".exe" on Windows) and is
// accompanied by a ".sha256" asset; the binary is only applied when its
// SHA-256 digest matches.
package selfupdate
