// Package integrity decides whether a local artifact can be trusted.
//
// Validate checks that a file is a well-formed JAR (ZIP) archive with at
// least one entry. ComputeDigest and VerifyChecksum deal with the SHA-256
// digest of the whole file. ValidateAndDigest does both with a single open
// and a single sequential read of the content.
package integrity
