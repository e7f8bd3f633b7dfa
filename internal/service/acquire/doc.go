// Package acquire turns a version request into a trusted server jar on disk.
//
// Service composes the catalog client, the downloader, the structural
// validator and the checksum sidecar store. A name returned by Service has
// passed structural validation and digest confirmation: either its digest
// matched a trusted sidecar, or a fresh digest was just written to one.
//
// Run and Verify are the command entry points. They load settings, build the
// collaborators and hold a lock on the work directory for the duration of
// the call so two processes never work on the same artifact.
package acquire
