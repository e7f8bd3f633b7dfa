// Package catalog talks to the PaperMC release catalog.
//
// It decodes the project, build list and download documents, and turns a
// version token into an artifact.Descriptor: "latest" becomes the last
// version the catalog lists, the build is the last build of that version,
// and the file name comes from the build's download document.
package catalog
