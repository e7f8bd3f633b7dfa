package integrity

import (
	"errors"
	"fmt"
)

// Reason tags a structural validation failure.
type Reason string

// Structural validation failures, in the order they are checked.
const (
	ReasonNotExist       Reason = "not-exists"
	ReasonEmpty          Reason = "empty"
	ReasonTooSmall       Reason = "too-small"
	ReasonBadMagic       Reason = "bad-magic"
	ReasonCorruptArchive Reason = "corrupt-archive"
	ReasonNoEntries      Reason = "no-entries"
)

var (
	// ErrNotExist matches validation of a missing file.
	ErrNotExist = errors.New("archive does not exist")
	// ErrEmpty matches validation of a zero-length file.
	ErrEmpty = errors.New("archive is empty")
	// ErrTooSmall matches files shorter than MinArchiveSize.
	ErrTooSmall = errors.New("archive is too small to be valid")
	// ErrBadMagic matches files not starting with the ZIP signature.
	ErrBadMagic = errors.New("missing ZIP magic number")
	// ErrCorruptArchive matches files that do not parse as ZIP.
	ErrCorruptArchive = errors.New("archive is corrupt")
	// ErrNoEntries matches archives without any entry.
	ErrNoEntries = errors.New("archive contains no entries")

	// ErrChecksumMismatch matches every *ChecksumMismatchError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// errInvalidDigest is returned by ParseDigest for anything but 32 hex-encoded bytes.
	errInvalidDigest = errors.New("digest must be 64 hex characters")
)

//nolint:gochecknoglobals // Fixed lookup table.
var reasonErrors = map[Reason]error{
	ReasonNotExist:       ErrNotExist,
	ReasonEmpty:          ErrEmpty,
	ReasonTooSmall:       ErrTooSmall,
	ReasonBadMagic:       ErrBadMagic,
	ReasonCorruptArchive: ErrCorruptArchive,
	ReasonNoEntries:      ErrNoEntries,
}

// ValidationError reports why a file is not a usable archive.
type ValidationError struct {
	// Reason tells callers which check failed.
	Reason Reason
	// Path is the validated file.
	Path string
	// Detail adds specifics such as the size or the bytes found.
	Detail string
	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", reasonErrors[e.Reason], e.Path)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is matches the sentinel of the failure reason.
func (e *ValidationError) Is(target error) bool {
	return reasonErrors[e.Reason] == target
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ChecksumMismatchError reports a file whose digest differs from the expected one.
type ChecksumMismatchError struct {
	// Path is the verified file.
	Path string
	// Expected is the digest the file should have.
	Expected string
	// Actual is the digest computed from the file.
	Actual string
}

// Error implements error.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s for file %s: expected %s, actual %s",
		ErrChecksumMismatch, e.Path, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrChecksumMismatch) hold.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
