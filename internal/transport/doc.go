// Package transport provides the HTTP client shared by the catalog client,
// the downloader and the self-updater.
//
// A Client is built once at startup with a fixed timeout and handed to its
// consumers. It is never modified after New returns, so it may be used from
// several goroutines. Every request is refused unless its URL uses https.
package transport
