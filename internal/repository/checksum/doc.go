// Package checksum persists artifact digests in sidecar files.
//
// A sidecar sits next to the artifact (paper-1.21.1-100.jar.sha256) and holds
// the hex-encoded SHA-256 digest on its first line. A sidecar whose first line
// is not 64 characters long is reported as missing, so a damaged sidecar makes
// the caller recompute the digest instead of failing verification.
package checksum
