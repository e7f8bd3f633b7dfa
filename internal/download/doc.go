// Package download streams remote artifacts to disk.
//
// Bytes land in a hidden temporary file next to the destination and are
// renamed into place only after the transfer completed, so an interrupted
// download never leaves a file that looks like a finished artifact.
package download
