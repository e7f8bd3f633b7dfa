// Package artifact contains the domain model of a Paper server artifact:
// the descriptor resolved from the catalog and the file naming conventions
// used to find artifacts and their checksum sidecars on disk.
package artifact
